// Package schedule manages rotation cadence configuration per provider and
// tier pool. Due-date arithmetic lives on the domain types; the registry is
// the operator-facing surface for creating, editing, and disabling schedules.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/UCCS-CS4300-5300/Fall-25-CS-5300-sub001/internal/domain"
	apperrors "github.com/UCCS-CS4300-5300/Fall-25-CS-5300-sub001/internal/errors"
)

// Registry mediates operator edits to rotation schedules. Rotation
// bookkeeping (last and next rotation times) is owned by the rotation
// engine; edits here never touch it.
type Registry struct {
	repo   domain.ScheduleRepository
	logger *slog.Logger
}

func NewRegistry(repo domain.ScheduleRepository, logger *slog.Logger) *Registry {
	return &Registry{repo: repo, logger: logger}
}

// SetParams describes one schedule create-or-update.
type SetParams struct {
	Provider           string
	Tier               domain.Tier
	Frequency          domain.Frequency
	NotifyOnRotation   bool
	NotificationTarget string
}

// Set creates the schedule for a pool or updates its cadence and
// notification settings. Setting always (re)enables the schedule. A new
// schedule has no next rotation time and is therefore due immediately;
// an edited schedule keeps its existing bookkeeping until the next
// successful rotation recomputes it.
func (r *Registry) Set(ctx context.Context, p SetParams) (*domain.RotationSchedule, error) {
	p.Provider = strings.TrimSpace(p.Provider)
	if p.Provider == "" {
		return nil, fmt.Errorf("%w: provider is required", apperrors.ErrConfiguration)
	}
	if !p.Tier.IsValid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidTier, p.Tier)
	}
	if _, err := domain.ParseFrequency(p.Frequency.String()); err != nil {
		return nil, err
	}

	sched, err := r.repo.Get(ctx, p.Provider, p.Tier)
	switch {
	case err == nil:
	case errors.Is(err, apperrors.ErrScheduleNotFound):
		sched = &domain.RotationSchedule{Provider: p.Provider, Tier: p.Tier}
	default:
		return nil, fmt.Errorf("loading schedule: %w", err)
	}

	sched.Enabled = true
	sched.Frequency = p.Frequency
	sched.NotifyOnRotation = p.NotifyOnRotation
	sched.NotificationTarget = p.NotificationTarget

	if err := r.repo.Upsert(ctx, sched); err != nil {
		return nil, fmt.Errorf("storing schedule: %w", err)
	}

	r.logger.InfoContext(ctx, "rotation schedule set",
		slog.String("provider", p.Provider),
		slog.String("tier", p.Tier.String()),
		slog.String("frequency", p.Frequency.String()),
		slog.Bool("notify", p.NotifyOnRotation),
	)
	return sched, nil
}

// Disable turns the schedule off without discarding its cadence or history.
func (r *Registry) Disable(ctx context.Context, provider string, tier domain.Tier) error {
	sched, err := r.repo.Get(ctx, provider, tier)
	if err != nil {
		return err
	}
	if !sched.Enabled {
		return nil
	}
	sched.Enabled = false
	if err := r.repo.Upsert(ctx, sched); err != nil {
		return fmt.Errorf("storing schedule: %w", err)
	}

	r.logger.InfoContext(ctx, "rotation schedule disabled",
		slog.String("provider", provider),
		slog.String("tier", tier.String()),
	)
	return nil
}

// Get returns the schedule for a pool, or ErrScheduleNotFound.
func (r *Registry) Get(ctx context.Context, provider string, tier domain.Tier) (*domain.RotationSchedule, error) {
	return r.repo.Get(ctx, provider, tier)
}

// List returns every schedule, all pools.
func (r *Registry) List(ctx context.Context) ([]*domain.RotationSchedule, error) {
	return r.repo.List(ctx)
}

// ListDue returns the schedules that are enabled and due at now.
func (r *Registry) ListDue(ctx context.Context, now time.Time) ([]*domain.RotationSchedule, error) {
	return r.repo.ListDue(ctx, now)
}
