// Package rotation orchestrates credential rotation attempts: due-check,
// candidate selection, the atomic activation exchange, audit recording, and
// post-rotation notification.
package rotation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/juju/clock"

	"github.com/UCCS-CS4300-5300/Fall-25-CS-5300-sub001/internal/audit"
	"github.com/UCCS-CS4300-5300/Fall-25-CS-5300-sub001/internal/domain"
	apperrors "github.com/UCCS-CS4300-5300/Fall-25-CS-5300-sub001/internal/errors"
	"github.com/UCCS-CS4300-5300/Fall-25-CS-5300-sub001/internal/notify"
)

// msgNoKeys is the operator-facing failure message recorded when a rotation
// finds no pending candidate. The wording is load-bearing; runbooks and
// alerting match on it.
const msgNoKeys = "No keys available for rotation"

const (
	reasonNotDue     = "not due"
	reasonDisabled   = "disabled"
	reasonInProgress = "rotation already in progress"
	reasonDryRun     = "dry run"
)

// Engine runs one rotation attempt end to end. It works on ciphertext
// identities only and never decrypts anything.
type Engine struct {
	credentials domain.CredentialRepository
	schedules   domain.ScheduleRepository
	recorder    *audit.Recorder
	notifier    notify.Notifier
	clock       clock.Clock
	logger      *slog.Logger
}

func NewEngine(
	credentials domain.CredentialRepository,
	schedules domain.ScheduleRepository,
	recorder *audit.Recorder,
	notifier notify.Notifier,
	clk clock.Clock,
	logger *slog.Logger,
) *Engine {
	return &Engine{
		credentials: credentials,
		schedules:   schedules,
		recorder:    recorder,
		notifier:    notifier,
		clock:       clk,
		logger:      logger,
	}
}

// RotateParams describes one rotation attempt.
type RotateParams struct {
	Provider    string
	Tier        domain.Tier
	Trigger     domain.RotationTrigger
	Force       bool
	DryRun      bool
	PerformedBy string
	Notes       string
}

// Outcome is what one attempt did (or, for a dry run, would have done).
type Outcome struct {
	Provider  string
	Tier      domain.Tier
	Status    domain.RotationStatus
	Reason    string
	OldMasked string
	NewMasked string
	DryRun    bool
}

// Rotate performs one rotation attempt for a (provider, tier) pool.
//
// Skips (not due, disabled, concurrent rotation) return a skipped Outcome
// and a nil error. A missing candidate returns a failed Outcome together
// with ErrNoPendingCredential. Every non-dry-run attempt leaves exactly one
// rotation log entry; dry runs write nothing anywhere.
func (e *Engine) Rotate(ctx context.Context, p RotateParams) (*Outcome, error) {
	p.Provider = strings.TrimSpace(p.Provider)
	if p.Provider == "" {
		return nil, fmt.Errorf("%w: provider is required", apperrors.ErrConfiguration)
	}
	if !p.Tier.IsValid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidTier, p.Tier)
	}
	trigger := p.Trigger
	if trigger == "" {
		trigger = domain.TriggerManual
		if p.Force {
			trigger = domain.TriggerForced
		}
	}

	now := e.clock.Now().UTC()
	out := &Outcome{Provider: p.Provider, Tier: p.Tier, DryRun: p.DryRun}

	sched, err := e.schedules.Get(ctx, p.Provider, p.Tier)
	switch {
	case err == nil:
	case errors.Is(err, apperrors.ErrScheduleNotFound):
		sched = nil
	default:
		return nil, fmt.Errorf("loading schedule: %w", err)
	}

	if !p.Force && !sched.IsDue(now) {
		out.Status = domain.RotationStatusSkipped
		out.Reason = reasonNotDue
		if sched == nil || !sched.Enabled {
			out.Reason = reasonDisabled
		}
		if p.DryRun {
			return out, nil
		}
		if err := e.recorder.Record(ctx, e.newEntry(p, trigger, domain.RotationStatusSkipped, now, out, out.Reason)); err != nil {
			return out, err
		}
		return out, nil
	}

	old, err := e.credentials.GetActive(ctx, p.Provider, p.Tier)
	switch {
	case err == nil:
		out.OldMasked = old.Masked()
	case errors.Is(err, apperrors.ErrNoActiveCredential):
		old = nil
	default:
		return nil, fmt.Errorf("reading active credential: %w", err)
	}

	next, err := e.credentials.NextPending(ctx, p.Provider, p.Tier)
	switch {
	case err == nil:
	case errors.Is(err, apperrors.ErrNoPendingCredential):
		out.Status = domain.RotationStatusFailed
		out.Reason = msgNoKeys
		if p.DryRun {
			return out, fmt.Errorf("%s/%s: %w", p.Provider, p.Tier, apperrors.ErrNoPendingCredential)
		}
		if recErr := e.recorder.Record(ctx, e.newEntry(p, trigger, domain.RotationStatusFailed, now, out, msgNoKeys)); recErr != nil {
			e.logger.ErrorContext(ctx, "failed to record rotation failure", slog.Any("error", recErr))
		}
		return out, fmt.Errorf("%s/%s: %w", p.Provider, p.Tier, apperrors.ErrNoPendingCredential)
	default:
		return nil, fmt.Errorf("reading pending credential: %w", err)
	}
	out.NewMasked = next.Masked()

	if p.DryRun {
		out.Status = domain.RotationStatusSuccess
		out.Reason = reasonDryRun
		e.logger.InfoContext(ctx, "dry run rotation",
			slog.String("provider", p.Provider),
			slog.String("tier", p.Tier.String()),
			slog.String("old_credential", out.OldMasked),
			slog.String("new_credential", out.NewMasked),
		)
		return out, nil
	}

	var oldID *domain.CredentialID
	if old != nil {
		id := old.ID
		oldID = &id
	}
	var updated *domain.RotationSchedule
	if sched != nil {
		copied := *sched
		copied.RecordSuccess(now)
		updated = &copied
	}

	entry := e.newEntry(p, trigger, domain.RotationStatusSuccess, now, out, "")
	e.recorder.Stamp(entry)

	if _, err := e.credentials.ApplyRotation(ctx, &domain.Rotation{
		Provider:   p.Provider,
		Tier:       p.Tier,
		OldID:      oldID,
		NewID:      next.ID,
		Schedule:   updated,
		Entry:      entry,
		OccurredAt: now,
	}); err != nil {
		return e.applyFailed(ctx, p, trigger, now, out, err)
	}

	out.Status = domain.RotationStatusSuccess
	e.recorder.Mirror(ctx, entry)

	if sched != nil && sched.NotifyOnRotation {
		e.sendNotification(ctx, sched.NotificationTarget, notify.Event{
			Provider:      p.Provider,
			Tier:          p.Tier,
			OldCredential: out.OldMasked,
			NewCredential: out.NewMasked,
			Trigger:       trigger,
			OccurredAt:    now,
		})
	}
	return out, nil
}

// applyFailed turns an ApplyRotation error into the right outcome. Lock and
// revalidation conflicts mean another rotation won the pool; that is a skip,
// not a failure. Anything else is recorded as failed and surfaced.
func (e *Engine) applyFailed(ctx context.Context, p RotateParams, trigger domain.RotationTrigger, now time.Time, out *Outcome, applyErr error) (*Outcome, error) {
	if errors.Is(applyErr, apperrors.ErrRotationLocked) || errors.Is(applyErr, apperrors.ErrRotationConflict) {
		out.Status = domain.RotationStatusSkipped
		out.Reason = reasonInProgress
		out.NewMasked = ""
		if err := e.recorder.Record(ctx, e.newEntry(p, trigger, domain.RotationStatusSkipped, now, out, out.Reason)); err != nil {
			return out, err
		}
		return out, nil
	}

	out.Status = domain.RotationStatusFailed
	out.Reason = applyErr.Error()
	if recErr := e.recorder.Record(ctx, e.newEntry(p, trigger, domain.RotationStatusFailed, now, out, applyErr.Error())); recErr != nil {
		e.logger.ErrorContext(ctx, "failed to record rotation failure", slog.Any("error", recErr))
	}
	return out, fmt.Errorf("applying rotation: %w", applyErr)
}

func (e *Engine) newEntry(p RotateParams, trigger domain.RotationTrigger, status domain.RotationStatus, now time.Time, out *Outcome, errMsg string) *domain.RotationLogEntry {
	return &domain.RotationLogEntry{
		Provider:            p.Provider,
		Tier:                p.Tier,
		OldCredentialMasked: out.OldMasked,
		NewCredentialMasked: out.NewMasked,
		Status:              status,
		Trigger:             trigger,
		OccurredAt:          now,
		PerformedBy:         p.PerformedBy,
		ErrorMessage:        errMsg,
		Notes:               p.Notes,
	}
}

func (e *Engine) sendNotification(ctx context.Context, target string, event notify.Event) {
	if target == "" {
		e.logger.WarnContext(ctx, "rotation notification enabled but no target configured",
			slog.String("provider", event.Provider),
			slog.String("tier", event.Tier.String()),
		)
		return
	}
	if err := e.notifier.Notify(ctx, target, event); err != nil {
		e.logger.WarnContext(ctx, "rotation notification failed",
			slog.String("target", target),
			slog.Any("error", err),
		)
	}
}
