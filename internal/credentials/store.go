// Package credentials manages the lifecycle of encrypted provider API keys:
// adding new keys, resolving the active key for a tier, and revocation.
// Plaintext key material only ever exists transiently inside Add and Decrypt;
// it is never logged and never stored.
package credentials

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/juju/clock"

	"github.com/UCCS-CS4300-5300/Fall-25-CS-5300-sub001/internal/domain"
	apperrors "github.com/UCCS-CS4300-5300/Fall-25-CS-5300-sub001/internal/errors"
	"github.com/UCCS-CS4300-5300/Fall-25-CS-5300-sub001/internal/kms"
)

// keyPrefixLen is how many leading characters of the raw key are retained
// for masked display. Everything else is discarded after encryption.
const keyPrefixLen = 8

// Store coordinates credential persistence with envelope encryption.
type Store struct {
	repo   domain.CredentialRepository
	cipher kms.Cipher
	clock  clock.Clock
	logger *slog.Logger
}

// NewStore wires a Store from its dependencies.
func NewStore(repo domain.CredentialRepository, cipher kms.Cipher, clk clock.Clock, logger *slog.Logger) *Store {
	return &Store{
		repo:   repo,
		cipher: cipher,
		clock:  clk,
		logger: logger,
	}
}

// Add encrypts a raw API key and persists it as a pending credential for the
// given provider and tier. The returned credential carries no plaintext.
func (s *Store) Add(ctx context.Context, provider string, tier domain.Tier, name, plaintext string) (*domain.Credential, error) {
	provider = strings.TrimSpace(provider)
	if provider == "" {
		return nil, fmt.Errorf("%w: provider is required", apperrors.ErrConfiguration)
	}
	if !tier.IsValid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidTier, tier)
	}
	if plaintext == "" {
		return nil, fmt.Errorf("%w: key material is empty", apperrors.ErrConfiguration)
	}

	ciphertext, err := s.cipher.Encrypt(ctx, []byte(plaintext))
	if err != nil {
		return nil, fmt.Errorf("encrypting credential: %w", err)
	}

	prefix := plaintext
	if len(prefix) > keyPrefixLen {
		prefix = prefix[:keyPrefixLen]
	}

	cred := &domain.Credential{
		ID:         domain.NewCredentialID(),
		Provider:   provider,
		Tier:       tier,
		Name:       name,
		Ciphertext: ciphertext,
		KeyPrefix:  prefix,
		Status:     domain.CredentialStatusPending,
		AddedAt:    s.clock.Now().UTC(),
	}

	if err := s.repo.Create(ctx, cred); err != nil {
		return nil, fmt.Errorf("storing credential: %w", err)
	}

	s.logger.InfoContext(ctx, "credential added",
		slog.String("credential_id", cred.ID.String()),
		slog.String("provider", provider),
		slog.String("tier", tier.String()),
		slog.String("key", cred.Masked()),
	)
	return cred, nil
}

// GetActive returns the credential currently serving calls for the provider
// and tier, or ErrNoActiveCredential.
func (s *Store) GetActive(ctx context.Context, provider string, tier domain.Tier) (*domain.Credential, error) {
	return s.repo.GetActive(ctx, provider, tier)
}

// NextPending returns the oldest pending credential for the provider and
// tier, or ErrNoPendingCredential.
func (s *Store) NextPending(ctx context.Context, provider string, tier domain.Tier) (*domain.Credential, error) {
	return s.repo.NextPending(ctx, provider, tier)
}

// Get returns a credential by id.
func (s *Store) Get(ctx context.Context, id domain.CredentialID) (*domain.Credential, error) {
	return s.repo.Get(ctx, id)
}

// List returns every credential stored for the provider, all tiers and
// statuses included.
func (s *Store) List(ctx context.Context, provider string) ([]*domain.Credential, error) {
	return s.repo.List(ctx, provider)
}

// Decrypt recovers the raw API key from a stored credential. Callers must
// not retain the returned string beyond the request that needed it.
func (s *Store) Decrypt(ctx context.Context, cred *domain.Credential) (string, error) {
	plaintext, err := s.cipher.Decrypt(ctx, cred.Ciphertext)
	if err != nil {
		s.logger.ErrorContext(ctx, "credential decryption failed",
			slog.String("credential_id", cred.ID.String()),
			slog.String("provider", cred.Provider),
			slog.String("key", cred.Masked()),
		)
		return "", fmt.Errorf("credential %s: %w", cred.ID, err)
	}
	return string(plaintext), nil
}

// MarkUsed bumps the usage counter and last-used timestamp for a credential.
func (s *Store) MarkUsed(ctx context.Context, id domain.CredentialID) error {
	return s.repo.MarkUsed(ctx, id, s.clock.Now().UTC())
}

// Reenable puts a rotated-out credential back into the pending queue so the
// round-robin can pick it up again. Revoked credentials stay revoked.
func (s *Store) Reenable(ctx context.Context, id domain.CredentialID) error {
	if err := s.repo.Reenable(ctx, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "credential re-enabled",
		slog.String("credential_id", id.String()),
	)
	return nil
}

// Revoke immediately deactivates a credential regardless of its status. A
// revoked credential is never selected again, for serving or for rotation.
func (s *Store) Revoke(ctx context.Context, id domain.CredentialID) error {
	now := s.clock.Now().UTC()
	if err := s.repo.Revoke(ctx, id, now); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "credential revoked",
		slog.String("credential_id", id.String()),
		slog.Time("revoked_at", now),
	)
	return nil
}

// ageOf reports how long a credential has been active, zero if it never was.
func ageOf(cred *domain.Credential, now time.Time) time.Duration {
	if cred.ActivatedAt == nil {
		return 0
	}
	return now.Sub(*cred.ActivatedAt)
}

// Age reports how long the credential has been active as of the store clock.
func (s *Store) Age(cred *domain.Credential) time.Duration {
	return ageOf(cred, s.clock.Now().UTC())
}
