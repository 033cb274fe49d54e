package kms

import (
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/hkdf"
)

// DeriveKey uses HKDF to derive a working key from a master key, so the
// configured master key itself is never used directly as cipher material.
func DeriveKey(masterKey, salt, info []byte, keyLength int) ([]byte, error) {
	if len(masterKey) == 0 {
		return nil, fmt.Errorf("master key cannot be empty")
	}
	if len(salt) == 0 {
		return nil, fmt.Errorf("salt cannot be empty")
	}

	reader := hkdf.New(sha256.New, masterKey, salt, info)

	key := make([]byte, keyLength)
	if _, err := reader.Read(key); err != nil {
		return nil, fmt.Errorf("failed to derive key using HKDF: %w", err)
	}

	return key, nil
}
