package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RotationStatus is the outcome class of one rotation attempt.
type RotationStatus string

const (
	RotationStatusSuccess RotationStatus = "success"
	RotationStatusFailed  RotationStatus = "failed"
	RotationStatusSkipped RotationStatus = "skipped"
)

// RotationTrigger records what initiated a rotation attempt.
type RotationTrigger string

const (
	TriggerScheduled RotationTrigger = "scheduled"
	TriggerManual    RotationTrigger = "manual"
	TriggerForced    RotationTrigger = "forced"
)

// RotationLogEntry is the write-once audit record of one rotation attempt.
// Entries are created exactly once per attempt and never updated or deleted;
// the repository interface deliberately exposes no mutation beyond Create.
// Credential identifiers are stored in masked form only.
type RotationLogEntry struct {
	ID                  uuid.UUID
	Provider            string
	Tier                Tier
	OldCredentialMasked string
	NewCredentialMasked string
	Status              RotationStatus
	Trigger             RotationTrigger
	OccurredAt          time.Time
	PerformedBy         string
	ErrorMessage        string
	Notes               string
}

// RotationLogRepository defines append-only storage for rotation log
// entries.
type RotationLogRepository interface {
	Create(ctx context.Context, e *RotationLogEntry) error
	History(ctx context.Context, provider string, tier Tier, limit int) ([]*RotationLogEntry, error)
}
