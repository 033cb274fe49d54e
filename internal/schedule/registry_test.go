package schedule_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UCCS-CS4300-5300/Fall-25-CS-5300-sub001/internal/domain"
	apperrors "github.com/UCCS-CS4300-5300/Fall-25-CS-5300-sub001/internal/errors"
	"github.com/UCCS-CS4300-5300/Fall-25-CS-5300-sub001/internal/infra/persistence/memory"
	"github.com/UCCS-CS4300-5300/Fall-25-CS-5300-sub001/internal/schedule"
)

func newRegistry(t *testing.T) (*schedule.Registry, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return schedule.NewRegistry(store.Schedules(), logger), store
}

func TestRegistrySetCreatesEnabledSchedule(t *testing.T) {
	ctx := context.Background()
	reg, _ := newRegistry(t)

	sched, err := reg.Set(ctx, schedule.SetParams{
		Provider:  "openai",
		Tier:      domain.TierPremium,
		Frequency: domain.FrequencyMonthly,
	})
	require.NoError(t, err)

	assert.True(t, sched.Enabled)
	assert.Equal(t, domain.FrequencyMonthly, sched.Frequency)
	assert.Nil(t, sched.NextRotationAt, "a fresh schedule has no computed next rotation")
	assert.True(t, sched.IsDue(time.Now()), "a fresh schedule is due immediately")
}

func TestRegistrySetKeepsRotationBookkeeping(t *testing.T) {
	ctx := context.Background()
	reg, store := newRegistry(t)

	last := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	next := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.UpsertSchedule(ctx, &domain.RotationSchedule{
		Provider:       "openai",
		Tier:           domain.TierPremium,
		Enabled:        false,
		Frequency:      domain.FrequencyMonthly,
		LastRotationAt: &last,
		NextRotationAt: &next,
	}))

	sched, err := reg.Set(ctx, schedule.SetParams{
		Provider:           "openai",
		Tier:               domain.TierPremium,
		Frequency:          domain.FrequencyWeekly,
		NotifyOnRotation:   true,
		NotificationTarget: "https://hooks.example.com/rotations",
	})
	require.NoError(t, err)

	assert.True(t, sched.Enabled, "setting re-enables a disabled schedule")
	assert.Equal(t, domain.FrequencyWeekly, sched.Frequency)
	require.NotNil(t, sched.NextRotationAt)
	assert.True(t, sched.NextRotationAt.Equal(next),
		"cadence edits leave the next rotation time to the engine")
	require.NotNil(t, sched.LastRotationAt)
	assert.True(t, sched.LastRotationAt.Equal(last))
}

func TestRegistrySetValidation(t *testing.T) {
	ctx := context.Background()
	reg, _ := newRegistry(t)

	_, err := reg.Set(ctx, schedule.SetParams{Provider: "", Tier: domain.TierPremium, Frequency: domain.FrequencyDaily})
	assert.ErrorIs(t, err, apperrors.ErrConfiguration)

	_, err = reg.Set(ctx, schedule.SetParams{Provider: "openai", Tier: "gold", Frequency: domain.FrequencyDaily})
	assert.ErrorIs(t, err, domain.ErrInvalidTier)

	_, err = reg.Set(ctx, schedule.SetParams{Provider: "openai", Tier: domain.TierPremium, Frequency: "hourly"})
	assert.ErrorIs(t, err, domain.ErrInvalidFrequency)
}

func TestRegistryDisable(t *testing.T) {
	ctx := context.Background()
	reg, _ := newRegistry(t)

	_, err := reg.Set(ctx, schedule.SetParams{
		Provider:  "groq",
		Tier:      domain.TierFallback,
		Frequency: domain.FrequencyQuarterly,
	})
	require.NoError(t, err)

	require.NoError(t, reg.Disable(ctx, "groq", domain.TierFallback))

	sched, err := reg.Get(ctx, "groq", domain.TierFallback)
	require.NoError(t, err)
	assert.False(t, sched.Enabled)
	assert.Equal(t, domain.FrequencyQuarterly, sched.Frequency, "disabling keeps the cadence")

	// Disabling twice is harmless; disabling a missing schedule is not.
	require.NoError(t, reg.Disable(ctx, "groq", domain.TierFallback))
	err = reg.Disable(ctx, "missing", domain.TierPremium)
	assert.ErrorIs(t, err, apperrors.ErrScheduleNotFound)
}

func TestRegistryListDue(t *testing.T) {
	ctx := context.Background()
	reg, _ := newRegistry(t)

	_, err := reg.Set(ctx, schedule.SetParams{Provider: "openai", Tier: domain.TierPremium, Frequency: domain.FrequencyDaily})
	require.NoError(t, err)
	_, err = reg.Set(ctx, schedule.SetParams{Provider: "openai", Tier: domain.TierStandard, Frequency: domain.FrequencyDaily})
	require.NoError(t, err)
	require.NoError(t, reg.Disable(ctx, "openai", domain.TierStandard))

	due, err := reg.ListDue(ctx, time.Now().UTC())
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, domain.TierPremium, due[0].Tier)
}
