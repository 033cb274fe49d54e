package audit_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UCCS-CS4300-5300/Fall-25-CS-5300-sub001/internal/audit"
	"github.com/UCCS-CS4300-5300/Fall-25-CS-5300-sub001/internal/domain"
	"github.com/UCCS-CS4300-5300/Fall-25-CS-5300-sub001/internal/infra/persistence/memory"
)

func TestRecorderRecordStampsAndPersists(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	store := memory.NewStore()
	var buf bytes.Buffer
	rec := audit.NewRecorder(store.RotationLog(), testclock.NewClock(start), slog.New(slog.NewTextHandler(&buf, nil)))

	entry := &domain.RotationLogEntry{
		Provider:            "openai",
		Tier:                domain.TierPremium,
		OldCredentialMasked: "sk-proj-...roj-",
		NewCredentialMasked: "sk-next-...ext-",
		Status:              domain.RotationStatusSuccess,
		Trigger:             domain.TriggerManual,
		PerformedBy:         "ops@example.com",
	}
	require.NoError(t, rec.Record(ctx, entry))

	assert.NotEqual(t, uuid.Nil, entry.ID)
	assert.True(t, entry.OccurredAt.Equal(start))

	history, err := rec.History(ctx, "openai", "", 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, entry.ID, history[0].ID)

	out := buf.String()
	assert.Contains(t, out, "rotation attempt")
	assert.Contains(t, out, "sk-proj-...roj-")
	assert.Contains(t, out, "performed_by=ops@example.com")
}

func TestRecorderKeepsCallerTimestamp(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	clk := testclock.NewClock(time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC))
	rec := audit.NewRecorder(store.RotationLog(), clk, discardLogger())

	at := time.Date(2025, 5, 20, 3, 0, 0, 0, time.UTC)
	entry := &domain.RotationLogEntry{
		ID:         uuid.New(),
		Provider:   "groq",
		Tier:       domain.TierFallback,
		Status:     domain.RotationStatusSkipped,
		Trigger:    domain.TriggerScheduled,
		OccurredAt: at,
	}
	originalID := entry.ID
	require.NoError(t, rec.Record(ctx, entry))

	assert.Equal(t, originalID, entry.ID)
	assert.True(t, entry.OccurredAt.Equal(at))
}

func TestRecorderSurfacesStorageFailure(t *testing.T) {
	ctx := context.Background()
	clk := testclock.NewClock(time.Now())
	rec := audit.NewRecorder(failingLog{}, clk, discardLogger())

	err := rec.Record(ctx, &domain.RotationLogEntry{
		Provider: "openai",
		Tier:     domain.TierPremium,
		Status:   domain.RotationStatusFailed,
		Trigger:  domain.TriggerManual,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, errWriteRefused)
}

var errWriteRefused = errors.New("write refused")

type failingLog struct{}

func (failingLog) Create(context.Context, *domain.RotationLogEntry) error {
	return errWriteRefused
}

func (failingLog) History(context.Context, string, domain.Tier, int) ([]*domain.RotationLogEntry, error) {
	return nil, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
