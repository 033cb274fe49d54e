// Package notify delivers rotation notifications to operator-configured
// targets. Events carry masked credential identifiers only; delivery is
// best-effort and never blocks or fails a rotation.
package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/UCCS-CS4300-5300/Fall-25-CS-5300-sub001/internal/domain"
)

// Event is the externally visible record of one completed rotation.
type Event struct {
	Provider      string                 `json:"provider"`
	Tier          domain.Tier            `json:"tier"`
	OldCredential string                 `json:"old_credential"`
	NewCredential string                 `json:"new_credential"`
	Trigger       domain.RotationTrigger `json:"trigger"`
	OccurredAt    time.Time              `json:"occurred_at"`
}

// Notifier delivers one event to a target. Implementations must tolerate
// being called concurrently.
type Notifier interface {
	Notify(ctx context.Context, target string, event Event) error
}

// LogNotifier writes events to the structured log. Default when no webhook
// is configured, and the test double of choice.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n *LogNotifier) Notify(ctx context.Context, target string, event Event) error {
	n.Logger.InfoContext(ctx, "rotation notification",
		slog.String("target", target),
		slog.String("provider", event.Provider),
		slog.String("tier", event.Tier.String()),
		slog.String("old_credential", event.OldCredential),
		slog.String("new_credential", event.NewCredential),
		slog.String("trigger", string(event.Trigger)),
	)
	return nil
}
