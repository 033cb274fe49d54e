package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidTier   = errors.New("invalid tier")
	ErrInvalidStatus = errors.New("invalid credential status")
)

// CredentialID identifies one stored credential.
type CredentialID struct {
	value uuid.UUID
}

func NewCredentialID() CredentialID {
	return CredentialID{value: uuid.New()}
}

func CredentialIDFromString(s string) (CredentialID, error) {
	if s == "" {
		return CredentialID{}, fmt.Errorf("credential id cannot be empty")
	}

	id, err := uuid.Parse(s)
	if err != nil {
		return CredentialID{}, fmt.Errorf("invalid credential id: %w", err)
	}
	return CredentialID{value: id}, nil
}

func (c CredentialID) String() string {
	return c.value.String()
}

func (c CredentialID) IsZero() bool {
	return c.value == uuid.Nil
}

// Tier selects which credential pool and which downstream model is used.
type Tier string

const (
	TierPremium  Tier = "premium"
	TierStandard Tier = "standard"
	TierFallback Tier = "fallback"
)

// Tiers lists all tiers in descending order of capability.
func Tiers() []Tier {
	return []Tier{TierPremium, TierStandard, TierFallback}
}

func ParseTier(s string) (Tier, error) {
	switch Tier(s) {
	case TierPremium, TierStandard, TierFallback:
		return Tier(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidTier, s)
	}
}

func (t Tier) String() string {
	return string(t)
}

func (t Tier) IsValid() bool {
	switch t {
	case TierPremium, TierStandard, TierFallback:
		return true
	}
	return false
}

// CredentialStatus represents the lifecycle state of a credential.
type CredentialStatus string

const (
	CredentialStatusPending  CredentialStatus = "pending"
	CredentialStatusActive   CredentialStatus = "active"
	CredentialStatusInactive CredentialStatus = "inactive"
	CredentialStatusRevoked  CredentialStatus = "revoked"
)

func ParseCredentialStatus(s string) (CredentialStatus, error) {
	switch CredentialStatus(s) {
	case CredentialStatusPending, CredentialStatusActive, CredentialStatusInactive, CredentialStatusRevoked:
		return CredentialStatus(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
}

// Credential represents one stored API secret for a (provider, tier) pool.
// The plaintext is never held on the struct; only the ciphertext and a short
// display prefix are persisted.
type Credential struct {
	ID            CredentialID
	Provider      string
	Tier          Tier
	Name          string
	Ciphertext    []byte
	KeyPrefix     string
	Status        CredentialStatus
	UsageCount    int64
	LastUsedAt    *time.Time
	AddedAt       time.Time
	ActivatedAt   *time.Time
	DeactivatedAt *time.Time
}

const maskedFixedSuffix = "****"

// Masked renders the display-safe form of the credential: the stored prefix,
// an ellipsis, and the last four characters of the prefix (or a fixed suffix
// when the prefix is too short). Never reversible to the plaintext.
func (c *Credential) Masked() string {
	return MaskPrefix(c.KeyPrefix)
}

// MaskPrefix masks a raw key prefix for display and log output.
func MaskPrefix(prefix string) string {
	if prefix == "" {
		return maskedFixedSuffix
	}
	suffix := maskedFixedSuffix
	if len(prefix) >= 4 {
		suffix = prefix[len(prefix)-4:]
	}
	return prefix + "..." + suffix
}

// Rotation is the atomic changeset of one successful rotation: the outgoing
// active credential (if any), the pending candidate to activate, the updated
// schedule bookkeeping, and the success log entry. Repositories apply all of
// it as a single unit or not at all.
type Rotation struct {
	Provider   string
	Tier       Tier
	OldID      *CredentialID
	NewID      CredentialID
	Schedule   *RotationSchedule
	Entry      *RotationLogEntry
	OccurredAt time.Time
}

// CredentialRepository defines storage for credentials and the atomic
// rotation exchange.
type CredentialRepository interface {
	Create(ctx context.Context, c *Credential) error
	Get(ctx context.Context, id CredentialID) (*Credential, error)
	GetActive(ctx context.Context, provider string, tier Tier) (*Credential, error)
	NextPending(ctx context.Context, provider string, tier Tier) (*Credential, error)
	List(ctx context.Context, provider string) ([]*Credential, error)
	MarkUsed(ctx context.Context, id CredentialID, usedAt time.Time) error
	Revoke(ctx context.Context, id CredentialID, revokedAt time.Time) error
	Reenable(ctx context.Context, id CredentialID) error
	ApplyRotation(ctx context.Context, rot *Rotation) (*Credential, error)
}
