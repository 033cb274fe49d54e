package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UCCS-CS4300-5300/Fall-25-CS-5300-sub001/internal/domain"
	apperrors "github.com/UCCS-CS4300-5300/Fall-25-CS-5300-sub001/internal/errors"
	"github.com/UCCS-CS4300-5300/Fall-25-CS-5300-sub001/internal/infra/persistence/memory"
)

func newCredential(provider string, tier domain.Tier, status domain.CredentialStatus, addedAt time.Time) *domain.Credential {
	return &domain.Credential{
		ID:         domain.NewCredentialID(),
		Provider:   provider,
		Tier:       tier,
		Name:       "test key",
		Ciphertext: []byte("opaque"),
		KeyPrefix:  "sk-proj-",
		Status:     status,
		AddedAt:    addedAt,
	}
}

func TestStoreCredentialLookups(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	_, err := store.GetActive(ctx, "openai", domain.TierPremium)
	require.ErrorIs(t, err, apperrors.ErrNoActiveCredential)

	_, err = store.NextPending(ctx, "openai", domain.TierPremium)
	require.ErrorIs(t, err, apperrors.ErrNoPendingCredential)

	active := newCredential("openai", domain.TierPremium, domain.CredentialStatusActive, base)
	older := newCredential("openai", domain.TierPremium, domain.CredentialStatusPending, base.Add(time.Hour))
	newer := newCredential("openai", domain.TierPremium, domain.CredentialStatusPending, base.Add(2*time.Hour))
	require.NoError(t, store.Create(ctx, active))
	require.NoError(t, store.Create(ctx, older))
	require.NoError(t, store.Create(ctx, newer))

	got, err := store.GetActive(ctx, "openai", domain.TierPremium)
	require.NoError(t, err)
	assert.Equal(t, active.ID, got.ID)

	pending, err := store.NextPending(ctx, "openai", domain.TierPremium)
	require.NoError(t, err)
	assert.Equal(t, older.ID, pending.ID, "oldest pending credential wins")

	_, err = store.Get(ctx, domain.NewCredentialID())
	assert.ErrorIs(t, err, apperrors.ErrCredentialNotFound)
}

func TestStoreRejectsSecondActive(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	now := time.Now().UTC()

	require.NoError(t, store.Create(ctx, newCredential("groq", domain.TierStandard, domain.CredentialStatusActive, now)))

	err := store.Create(ctx, newCredential("groq", domain.TierStandard, domain.CredentialStatusActive, now))
	require.ErrorIs(t, err, apperrors.ErrRotationConflict)

	// Other pools are unaffected.
	require.NoError(t, store.Create(ctx, newCredential("groq", domain.TierFallback, domain.CredentialStatusActive, now)))
}

func TestStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	cred := newCredential("openai", domain.TierPremium, domain.CredentialStatusPending, time.Now().UTC())
	require.NoError(t, store.Create(ctx, cred))

	got, err := store.Get(ctx, cred.ID)
	require.NoError(t, err)
	got.Name = "mutated"
	got.Ciphertext[0] = 'X'

	again, err := store.Get(ctx, cred.ID)
	require.NoError(t, err)
	assert.Equal(t, "test key", again.Name)
	assert.Equal(t, []byte("opaque"), again.Ciphertext)
}

func TestStoreApplyRotation(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	t.Run("exchanges active and pending atomically", func(t *testing.T) {
		store := memory.NewStore()
		old := newCredential("openai", domain.TierPremium, domain.CredentialStatusActive, base)
		next := newCredential("openai", domain.TierPremium, domain.CredentialStatusPending, base.Add(time.Hour))
		require.NoError(t, store.Create(ctx, old))
		require.NoError(t, store.Create(ctx, next))

		at := base.Add(24 * time.Hour)
		sched := &domain.RotationSchedule{
			Provider:  "openai",
			Tier:      domain.TierPremium,
			Enabled:   true,
			Frequency: domain.FrequencyMonthly,
		}
		sched.RecordSuccess(at)

		activated, err := store.ApplyRotation(ctx, &domain.Rotation{
			Provider:   "openai",
			Tier:       domain.TierPremium,
			OldID:      &old.ID,
			NewID:      next.ID,
			Schedule:   sched,
			Entry:      &domain.RotationLogEntry{Provider: "openai", Tier: domain.TierPremium, Status: domain.RotationStatusSuccess, OccurredAt: at},
			OccurredAt: at,
		})
		require.NoError(t, err)
		assert.Equal(t, next.ID, activated.ID)
		assert.Equal(t, domain.CredentialStatusActive, activated.Status)
		require.NotNil(t, activated.ActivatedAt)
		assert.True(t, activated.ActivatedAt.Equal(at))

		retired, err := store.Get(ctx, old.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.CredentialStatusInactive, retired.Status)
		require.NotNil(t, retired.DeactivatedAt)

		stored, err := store.GetSchedule(ctx, "openai", domain.TierPremium)
		require.NoError(t, err)
		require.NotNil(t, stored.LastRotationAt)
		assert.True(t, stored.LastRotationAt.Equal(at))

		history, err := store.History(ctx, "openai", "", 0)
		require.NoError(t, err)
		require.Len(t, history, 1)
		assert.Equal(t, domain.RotationStatusSuccess, history[0].Status)
	})

	t.Run("first rotation has no outgoing credential", func(t *testing.T) {
		store := memory.NewStore()
		next := newCredential("openai", domain.TierPremium, domain.CredentialStatusPending, base)
		require.NoError(t, store.Create(ctx, next))

		activated, err := store.ApplyRotation(ctx, &domain.Rotation{
			Provider:   "openai",
			Tier:       domain.TierPremium,
			NewID:      next.ID,
			OccurredAt: base,
		})
		require.NoError(t, err)
		assert.Equal(t, domain.CredentialStatusActive, activated.Status)
	})

	t.Run("conflicts when active changed underneath", func(t *testing.T) {
		store := memory.NewStore()
		old := newCredential("openai", domain.TierPremium, domain.CredentialStatusActive, base)
		next := newCredential("openai", domain.TierPremium, domain.CredentialStatusPending, base)
		require.NoError(t, store.Create(ctx, old))
		require.NoError(t, store.Create(ctx, next))

		stale := domain.NewCredentialID()
		_, err := store.ApplyRotation(ctx, &domain.Rotation{
			Provider:   "openai",
			Tier:       domain.TierPremium,
			OldID:      &stale,
			NewID:      next.ID,
			OccurredAt: base,
		})
		require.ErrorIs(t, err, apperrors.ErrRotationConflict)

		// Nothing flipped.
		current, err := store.GetActive(ctx, "openai", domain.TierPremium)
		require.NoError(t, err)
		assert.Equal(t, old.ID, current.ID)
	})

	t.Run("conflicts when candidate is not pending", func(t *testing.T) {
		store := memory.NewStore()
		old := newCredential("openai", domain.TierPremium, domain.CredentialStatusActive, base)
		revoked := newCredential("openai", domain.TierPremium, domain.CredentialStatusRevoked, base)
		require.NoError(t, store.Create(ctx, old))
		require.NoError(t, store.Create(ctx, revoked))

		_, err := store.ApplyRotation(ctx, &domain.Rotation{
			Provider:   "openai",
			Tier:       domain.TierPremium,
			OldID:      &old.ID,
			NewID:      revoked.ID,
			OccurredAt: base,
		})
		require.ErrorIs(t, err, apperrors.ErrRotationConflict)
	})

	t.Run("reports a held pool lock", func(t *testing.T) {
		store := memory.NewStore()
		old := newCredential("openai", domain.TierPremium, domain.CredentialStatusActive, base)
		next := newCredential("openai", domain.TierPremium, domain.CredentialStatusPending, base)
		require.NoError(t, store.Create(ctx, old))
		require.NoError(t, store.Create(ctx, next))

		release, ok := store.TryLockRotation("openai", domain.TierPremium)
		require.True(t, ok)
		defer release()

		_, err := store.ApplyRotation(ctx, &domain.Rotation{
			Provider:   "openai",
			Tier:       domain.TierPremium,
			OldID:      &old.ID,
			NewID:      next.ID,
			OccurredAt: base,
		})
		require.ErrorIs(t, err, apperrors.ErrRotationLocked)
	})
}

func TestStoreRevokeIsTerminal(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	cred := newCredential("openai", domain.TierPremium, domain.CredentialStatusActive, time.Now().UTC())
	require.NoError(t, store.Create(ctx, cred))

	first := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.Revoke(ctx, cred.ID, first))

	err := store.Revoke(ctx, cred.ID, first.Add(time.Hour))
	require.ErrorIs(t, err, apperrors.ErrCredentialRevoked)

	got, err := store.Get(ctx, cred.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CredentialStatusRevoked, got.Status)
	require.NotNil(t, got.DeactivatedAt)
	assert.True(t, got.DeactivatedAt.Equal(first), "second revoke must not move the timestamp")
}

func TestStoreMarkUsed(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	cred := newCredential("openai", domain.TierPremium, domain.CredentialStatusActive, time.Now().UTC())
	require.NoError(t, store.Create(ctx, cred))

	usedAt := time.Date(2025, 6, 3, 9, 30, 0, 0, time.UTC)
	require.NoError(t, store.MarkUsed(ctx, cred.ID, usedAt))
	require.NoError(t, store.MarkUsed(ctx, cred.ID, usedAt.Add(time.Minute)))

	got, err := store.Get(ctx, cred.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.UsageCount)
	require.NotNil(t, got.LastUsedAt)
	assert.True(t, got.LastUsedAt.Equal(usedAt.Add(time.Minute)))
}

func TestStoreHistoryFilterAndOrder(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	for i, e := range []*domain.RotationLogEntry{
		{Provider: "openai", Tier: domain.TierPremium, Status: domain.RotationStatusSuccess},
		{Provider: "openai", Tier: domain.TierStandard, Status: domain.RotationStatusFailed},
		{Provider: "groq", Tier: domain.TierPremium, Status: domain.RotationStatusSkipped},
	} {
		e.OccurredAt = base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, store.CreateLogEntry(ctx, e))
	}

	all, err := store.History(ctx, "", "", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "groq", all[0].Provider, "newest first")

	openai, err := store.History(ctx, "openai", "", 0)
	require.NoError(t, err)
	require.Len(t, openai, 2)

	limited, err := store.History(ctx, "openai", domain.TierStandard, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, domain.RotationStatusFailed, limited[0].Status)
}

func TestStoreScheduleListDue(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	now := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)
	schedules := []*domain.RotationSchedule{
		{Provider: "openai", Tier: domain.TierPremium, Enabled: true, Frequency: domain.FrequencyDaily, NextRotationAt: &past},
		{Provider: "openai", Tier: domain.TierStandard, Enabled: true, Frequency: domain.FrequencyDaily, NextRotationAt: &future},
		{Provider: "groq", Tier: domain.TierPremium, Enabled: false, Frequency: domain.FrequencyDaily, NextRotationAt: &past},
		{Provider: "groq", Tier: domain.TierFallback, Enabled: true, Frequency: domain.FrequencyWeekly},
	}
	for _, s := range schedules {
		require.NoError(t, store.UpsertSchedule(ctx, s))
	}

	due, err := store.ListDueSchedules(ctx, now)
	require.NoError(t, err)
	require.Len(t, due, 2, "past-due and never-rotated schedules are due; future and disabled are not")

	_, err = store.GetSchedule(ctx, "missing", domain.TierPremium)
	assert.ErrorIs(t, err, apperrors.ErrScheduleNotFound)
}

func TestStoreSpendDefaults(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	now := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

	spend, err := store.CurrentMonthSpend(ctx, "openai", now)
	require.NoError(t, err)
	assert.True(t, spend.IsZero())

	cap, err := store.ActiveCap(ctx)
	require.NoError(t, err)
	assert.Nil(t, cap)

	store.SetSpend("openai", 2025, time.June, decimal.RequireFromString("42.50"))
	store.SetCap(decimal.RequireFromString("100.00"), true)

	spend, err = store.CurrentMonthSpend(ctx, "openai", now)
	require.NoError(t, err)
	assert.True(t, spend.Equal(decimal.RequireFromString("42.50")))

	// A different month reads zero.
	july := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	spend, err = store.CurrentMonthSpend(ctx, "openai", july)
	require.NoError(t, err)
	assert.True(t, spend.IsZero())

	cap, err = store.ActiveCap(ctx)
	require.NoError(t, err)
	require.NotNil(t, cap)
	assert.True(t, cap.Active)
}
