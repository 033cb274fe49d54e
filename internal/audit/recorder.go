// Package audit records rotation attempts to the write-once rotation log
// and mirrors every entry to structured logging. Entries carry masked
// credential identifiers only.
package audit

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/juju/clock"

	"github.com/UCCS-CS4300-5300/Fall-25-CS-5300-sub001/internal/domain"
)

// Recorder persists rotation log entries. Unlike plain operational logging,
// a failed write here is surfaced to the caller; an unrecorded rotation
// attempt is itself a failure.
type Recorder struct {
	repo   domain.RotationLogRepository
	clock  clock.Clock
	logger *slog.Logger
}

func NewRecorder(repo domain.RotationLogRepository, clk clock.Clock, logger *slog.Logger) *Recorder {
	return &Recorder{repo: repo, clock: clk, logger: logger}
}

// Stamp fills in the entry identity and timestamp if the caller has not.
func (r *Recorder) Stamp(e *domain.RotationLogEntry) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = r.clock.Now().UTC()
	}
}

// Record stamps, persists, and mirrors one entry.
func (r *Recorder) Record(ctx context.Context, e *domain.RotationLogEntry) error {
	r.Stamp(e)
	r.Mirror(ctx, e)
	if err := r.repo.Create(ctx, e); err != nil {
		r.logger.ErrorContext(ctx, "rotation log write failed",
			slog.String("entry_id", e.ID.String()),
			slog.String("provider", e.Provider),
			slog.Any("error", err),
		)
		return fmt.Errorf("recording rotation log entry: %w", err)
	}
	return nil
}

// Mirror emits the entry to the structured log without persisting it. Used
// for entries already written inside the rotation transaction.
func (r *Recorder) Mirror(ctx context.Context, e *domain.RotationLogEntry) {
	level := slog.LevelInfo
	if e.Status == domain.RotationStatusFailed {
		level = slog.LevelWarn
	}

	attrs := []slog.Attr{
		slog.String("provider", e.Provider),
		slog.String("tier", e.Tier.String()),
		slog.String("status", string(e.Status)),
		slog.String("trigger", string(e.Trigger)),
		slog.String("old_credential", e.OldCredentialMasked),
		slog.String("new_credential", e.NewCredentialMasked),
	}
	if e.PerformedBy != "" {
		attrs = append(attrs, slog.String("performed_by", e.PerformedBy))
	}
	if e.ErrorMessage != "" {
		attrs = append(attrs, slog.String("error_message", e.ErrorMessage))
	}
	r.logger.LogAttrs(ctx, level, "rotation attempt", attrs...)
}

// History returns recorded entries, newest first. Empty provider or tier
// matches all; limit <= 0 returns everything.
func (r *Recorder) History(ctx context.Context, provider string, tier domain.Tier, limit int) ([]*domain.RotationLogEntry, error) {
	return r.repo.History(ctx, provider, tier, limit)
}
