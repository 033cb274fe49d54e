package client

import (
	"sync"

	"github.com/UCCS-CS4300-5300/Fall-25-CS-5300-sub001/internal/domain"
)

type cacheKey struct {
	provider string
	tier     domain.Tier
}

type cacheEntry struct {
	id        domain.CredentialID
	plaintext string
}

// credentialCache holds the last decrypted credential per pool, keyed by the
// credential identity it came from. A lookup hits only when the caller's
// fresh identity matches the cached one, so a rotation invalidates the entry
// on the first resolve after commit without any cross-process signaling.
type credentialCache struct {
	mu      sync.RWMutex
	entries map[cacheKey]cacheEntry
}

func newCredentialCache() *credentialCache {
	return &credentialCache{entries: make(map[cacheKey]cacheEntry)}
}

func (c *credentialCache) lookup(key cacheKey, id domain.CredentialID) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok || entry.id != id {
		return "", false
	}
	return entry.plaintext, true
}

func (c *credentialCache) put(key cacheKey, id domain.CredentialID, plaintext string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{id: id, plaintext: plaintext}
}

func (c *credentialCache) drop(key cacheKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}
