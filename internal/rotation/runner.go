package rotation

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/juju/clock"

	"github.com/UCCS-CS4300-5300/Fall-25-CS-5300-sub001/internal/domain"
	"github.com/UCCS-CS4300-5300/Fall-25-CS-5300-sub001/pkg/patterns/lifecycle"
)

const defaultSweepInterval = time.Hour

// Runner polls for due schedules and rotates them in-process. It serves
// deployments without a system cron; an external scheduler invoking the CLI
// remains the primary path. Implements lifecycle.ManagedResource.
type Runner struct {
	engine    *Engine
	schedules domain.ScheduleRepository
	interval  time.Duration
	clock     clock.Clock
	logger    *slog.Logger

	mu          sync.Mutex
	cancel      context.CancelFunc
	done        chan struct{}
	running     bool
	lastSweepAt time.Time
}

func NewRunner(engine *Engine, schedules domain.ScheduleRepository, interval time.Duration, clk clock.Clock, logger *slog.Logger) *Runner {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	return &Runner{
		engine:    engine,
		schedules: schedules,
		interval:  interval,
		clock:     clk,
		logger:    logger,
	}
}

// Start launches the poll loop. A sweep runs immediately so work that came
// due while the process was down is not delayed by one interval.
func (r *Runner) Start(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return nil
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.done = make(chan struct{})
	r.running = true

	go r.run(loopCtx)

	r.logger.Info("rotation runner started", slog.Duration("interval", r.interval))
	return nil
}

// Stop cancels the poll loop and waits for it to drain.
func (r *Runner) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = false
	cancel, done := r.cancel, r.done
	r.mu.Unlock()

	cancel()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for rotation runner to stop: %w", ctx.Err())
	}
}

// Health reports whether the loop is running and when it last swept.
func (r *Runner) Health(_ context.Context) lifecycle.HealthStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return lifecycle.HealthStatus{Ready: false, Message: "rotation runner stopped"}
	}
	if r.lastSweepAt.IsZero() {
		return lifecycle.HealthStatus{Ready: true, Message: "waiting for first sweep"}
	}
	return lifecycle.HealthStatus{
		Ready:   true,
		Message: fmt.Sprintf("last sweep at %s", r.lastSweepAt.Format(time.RFC3339)),
	}
}

func (r *Runner) run(ctx context.Context) {
	defer close(r.done)

	r.Sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.clock.After(r.interval):
			r.Sweep(ctx)
		}
	}
}

// Sweep rotates every schedule that is due right now, with Trigger set to
// scheduled. Pools that are not due are never touched and produce no audit
// entries. Per-pool failures are logged and do not stop the sweep; the
// returned count is the number of due schedules attempted.
func (r *Runner) Sweep(ctx context.Context) (int, error) {
	now := r.clock.Now().UTC()

	due, err := r.schedules.ListDue(ctx, now)
	if err != nil {
		r.logger.ErrorContext(ctx, "listing due schedules failed", slog.Any("error", err))
		return 0, fmt.Errorf("listing due schedules: %w", err)
	}

	for _, sched := range due {
		outcome, err := r.engine.Rotate(ctx, RotateParams{
			Provider: sched.Provider,
			Tier:     sched.Tier,
			Trigger:  domain.TriggerScheduled,
		})
		if err != nil {
			r.logger.ErrorContext(ctx, "scheduled rotation failed",
				slog.String("provider", sched.Provider),
				slog.String("tier", sched.Tier.String()),
				slog.Any("error", err),
			)
			continue
		}
		r.logger.InfoContext(ctx, "scheduled rotation finished",
			slog.String("provider", outcome.Provider),
			slog.String("tier", outcome.Tier.String()),
			slog.String("status", string(outcome.Status)),
			slog.String("new_credential", outcome.NewMasked),
		)
	}

	r.mu.Lock()
	r.lastSweepAt = now
	r.mu.Unlock()
	return len(due), nil
}
