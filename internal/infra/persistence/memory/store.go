// Package memory provides an in-memory implementation of every repository
// interface in the domain package. It backs the "memory" persistence driver
// for local development and is the storage fake used throughout the test
// suite. All returned values are deep copies; mutating them does not touch
// stored state.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/UCCS-CS4300-5300/Fall-25-CS-5300-sub001/internal/domain"
	apperrors "github.com/UCCS-CS4300-5300/Fall-25-CS-5300-sub001/internal/errors"
)

type scheduleKey struct {
	provider string
	tier     domain.Tier
}

type spendKey struct {
	provider string
	year     int
	month    time.Month
}

// Store holds all state behind one mutex. The per-pool rotation locks live
// in a separate map so a rotation in flight rejects concurrent rotations of
// the same pool without blocking reads.
type Store struct {
	mu        sync.RWMutex
	creds     map[string]*domain.Credential
	schedules map[scheduleKey]*domain.RotationSchedule
	entries   []*domain.RotationLogEntry
	spend     map[spendKey]decimal.Decimal
	cap       *domain.SpendingCap

	lockMu   sync.Mutex
	rotLocks map[scheduleKey]*sync.Mutex
}

func NewStore() *Store {
	return &Store{
		creds:     make(map[string]*domain.Credential),
		schedules: make(map[scheduleKey]*domain.RotationSchedule),
		spend:     make(map[spendKey]decimal.Decimal),
		rotLocks:  make(map[scheduleKey]*sync.Mutex),
	}
}

// Create stores a new credential. The single-active-per-pool constraint is
// enforced here the same way the partial unique index enforces it in
// Postgres.
func (s *Store) Create(_ context.Context, c *domain.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := c.ID.String()
	if _, exists := s.creds[id]; exists {
		return fmt.Errorf("credential %s already exists", id)
	}
	if c.Status == domain.CredentialStatusActive {
		if cur := s.activeLocked(c.Provider, c.Tier); cur != nil {
			return fmt.Errorf("%w: pool %s/%s already has an active credential",
				apperrors.ErrRotationConflict, c.Provider, c.Tier)
		}
	}
	s.creds[id] = copyCredential(c)
	return nil
}

func (s *Store) Get(_ context.Context, id domain.CredentialID) (*domain.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.creds[id.String()]
	if !ok {
		return nil, apperrors.ErrCredentialNotFound
	}
	return copyCredential(c), nil
}

func (s *Store) GetActive(_ context.Context, provider string, tier domain.Tier) (*domain.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if c := s.activeLocked(provider, tier); c != nil {
		return copyCredential(c), nil
	}
	return nil, apperrors.ErrNoActiveCredential
}

func (s *Store) NextPending(_ context.Context, provider string, tier domain.Tier) (*domain.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if c := s.nextPendingLocked(provider, tier); c != nil {
		return copyCredential(c), nil
	}
	return nil, apperrors.ErrNoPendingCredential
}

func (s *Store) List(_ context.Context, provider string) ([]*domain.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Credential
	for _, c := range s.creds {
		if c.Provider == provider {
			out = append(out, copyCredential(c))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].AddedAt.Equal(out[j].AddedAt) {
			return out[i].AddedAt.Before(out[j].AddedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (s *Store) MarkUsed(_ context.Context, id domain.CredentialID, usedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.creds[id.String()]
	if !ok {
		return apperrors.ErrCredentialNotFound
	}
	c.UsageCount++
	t := usedAt
	c.LastUsedAt = &t
	return nil
}

// Revoke is terminal; revoking an already revoked credential reports
// ErrCredentialRevoked and leaves its deactivation time unchanged.
func (s *Store) Revoke(_ context.Context, id domain.CredentialID, revokedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.creds[id.String()]
	if !ok {
		return apperrors.ErrCredentialNotFound
	}
	if c.Status == domain.CredentialStatusRevoked {
		return fmt.Errorf("%w: %s", apperrors.ErrCredentialRevoked, id)
	}
	c.Status = domain.CredentialStatusRevoked
	t := revokedAt
	c.DeactivatedAt = &t
	return nil
}

// Reenable returns a rotated-out credential to the pending queue. Its
// original added_at is kept, so a re-enabled credential rejoins the
// round-robin at its old position. Only inactive credentials qualify.
func (s *Store) Reenable(_ context.Context, id domain.CredentialID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.creds[id.String()]
	if !ok {
		return apperrors.ErrCredentialNotFound
	}
	switch c.Status {
	case domain.CredentialStatusInactive:
	case domain.CredentialStatusRevoked:
		return fmt.Errorf("%w: %s", apperrors.ErrCredentialRevoked, id)
	default:
		return fmt.Errorf("%w: cannot re-enable a %s credential", domain.ErrInvalidStatus, c.Status)
	}
	c.Status = domain.CredentialStatusPending
	c.ActivatedAt = nil
	c.DeactivatedAt = nil
	return nil
}

// ApplyRotation performs the activation exchange under the pool's rotation
// lock. The state read by the caller is revalidated here; anything that
// changed since returns ErrRotationConflict, and a rotation already holding
// the pool lock returns ErrRotationLocked.
func (s *Store) ApplyRotation(_ context.Context, rot *domain.Rotation) (*domain.Credential, error) {
	release, ok := s.TryLockRotation(rot.Provider, rot.Tier)
	if !ok {
		return nil, fmt.Errorf("%w: pool %s/%s", apperrors.ErrRotationLocked, rot.Provider, rot.Tier)
	}
	defer release()

	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.activeLocked(rot.Provider, rot.Tier)
	switch {
	case rot.OldID == nil && cur != nil:
		return nil, fmt.Errorf("%w: pool %s/%s gained an active credential",
			apperrors.ErrRotationConflict, rot.Provider, rot.Tier)
	case rot.OldID != nil && (cur == nil || cur.ID != *rot.OldID):
		return nil, fmt.Errorf("%w: active credential changed under rotation",
			apperrors.ErrRotationConflict)
	}

	next, ok := s.creds[rot.NewID.String()]
	if !ok || next.Status != domain.CredentialStatusPending {
		return nil, fmt.Errorf("%w: candidate credential is no longer pending",
			apperrors.ErrRotationConflict)
	}

	at := rot.OccurredAt
	if cur != nil {
		cur.Status = domain.CredentialStatusInactive
		t := at
		cur.DeactivatedAt = &t
	}
	next.Status = domain.CredentialStatusActive
	t := at
	next.ActivatedAt = &t

	if rot.Schedule != nil {
		k := scheduleKey{provider: rot.Provider, tier: rot.Tier}
		s.schedules[k] = copySchedule(rot.Schedule)
	}
	if rot.Entry != nil {
		s.entries = append(s.entries, copyEntry(rot.Entry))
	}
	return copyCredential(next), nil
}

// TryLockRotation acquires the rotation lock for a pool without blocking.
// The returned release must be called when ok is true. Exposed so contention
// behavior can be driven directly.
func (s *Store) TryLockRotation(provider string, tier domain.Tier) (release func(), ok bool) {
	k := scheduleKey{provider: provider, tier: tier}

	s.lockMu.Lock()
	m, exists := s.rotLocks[k]
	if !exists {
		m = &sync.Mutex{}
		s.rotLocks[k] = m
	}
	s.lockMu.Unlock()

	if !m.TryLock() {
		return nil, false
	}
	return m.Unlock, true
}

func (s *Store) activeLocked(provider string, tier domain.Tier) *domain.Credential {
	for _, c := range s.creds {
		if c.Provider == provider && c.Tier == tier && c.Status == domain.CredentialStatusActive {
			return c
		}
	}
	return nil
}

func (s *Store) nextPendingLocked(provider string, tier domain.Tier) *domain.Credential {
	var oldest *domain.Credential
	for _, c := range s.creds {
		if c.Provider != provider || c.Tier != tier || c.Status != domain.CredentialStatusPending {
			continue
		}
		if oldest == nil || c.AddedAt.Before(oldest.AddedAt) ||
			(c.AddedAt.Equal(oldest.AddedAt) && c.ID.String() < oldest.ID.String()) {
			oldest = c
		}
	}
	return oldest
}

func (s *Store) GetSchedule(_ context.Context, provider string, tier domain.Tier) (*domain.RotationSchedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sched, ok := s.schedules[scheduleKey{provider: provider, tier: tier}]
	if !ok {
		return nil, apperrors.ErrScheduleNotFound
	}
	return copySchedule(sched), nil
}

func (s *Store) UpsertSchedule(_ context.Context, sched *domain.RotationSchedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := scheduleKey{provider: sched.Provider, tier: sched.Tier}
	s.schedules[k] = copySchedule(sched)
	return nil
}

func (s *Store) ListSchedules(_ context.Context) ([]*domain.RotationSchedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.RotationSchedule, 0, len(s.schedules))
	for _, sched := range s.schedules {
		out = append(out, copySchedule(sched))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Provider != out[j].Provider {
			return out[i].Provider < out[j].Provider
		}
		return out[i].Tier < out[j].Tier
	})
	return out, nil
}

func (s *Store) ListDueSchedules(ctx context.Context, now time.Time) ([]*domain.RotationSchedule, error) {
	all, err := s.ListSchedules(ctx)
	if err != nil {
		return nil, err
	}
	due := all[:0]
	for _, sched := range all {
		if sched.IsDue(now) {
			due = append(due, sched)
		}
	}
	return due, nil
}

func (s *Store) CreateLogEntry(_ context.Context, e *domain.RotationLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = append(s.entries, copyEntry(e))
	return nil
}

// History returns entries newest first. Empty provider or tier matches all.
func (s *Store) History(_ context.Context, provider string, tier domain.Tier, limit int) ([]*domain.RotationLogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.RotationLogEntry
	for _, e := range s.entries {
		if provider != "" && e.Provider != provider {
			continue
		}
		if tier != "" && e.Tier != tier {
			continue
		}
		out = append(out, copyEntry(e))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].OccurredAt.After(out[j].OccurredAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) CurrentMonthSpend(_ context.Context, provider string, now time.Time) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now = now.UTC()
	k := spendKey{provider: provider, year: now.Year(), month: now.Month()}
	if amount, ok := s.spend[k]; ok {
		return amount, nil
	}
	return decimal.Zero, nil
}

func (s *Store) ActiveCap(_ context.Context) (*domain.SpendingCap, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.cap == nil {
		return nil, nil
	}
	capCopy := *s.cap
	return &capCopy, nil
}

// SetSpend seeds the spend total for a provider month. Dev and test hook;
// real spend totals are written by the cost accounting pipeline.
func (s *Store) SetSpend(provider string, year int, month time.Month, amount decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spend[spendKey{provider: provider, year: year, month: month}] = amount
}

// SetCap installs the spending cap. Passing active=false simulates a
// deactivated cap still present in storage.
func (s *Store) SetCap(amount decimal.Decimal, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cap = &domain.SpendingCap{Amount: amount, Active: active}
}

// Credentials exposes the store as a credential repository.
func (s *Store) Credentials() domain.CredentialRepository { return s }

// Schedules exposes the store as a schedule repository.
func (s *Store) Schedules() domain.ScheduleRepository { return scheduleView{s} }

// RotationLog exposes the store as a rotation log repository.
func (s *Store) RotationLog() domain.RotationLogRepository { return rotationLogView{s} }

// Spend exposes the store as a spend reader.
func (s *Store) Spend() domain.SpendRepository { return s }

// scheduleView and rotationLogView rename store methods onto the repository
// interfaces; the interfaces share method names with CredentialRepository, so
// one receiver cannot carry all of them directly.
type scheduleView struct{ s *Store }

func (v scheduleView) Get(ctx context.Context, provider string, tier domain.Tier) (*domain.RotationSchedule, error) {
	return v.s.GetSchedule(ctx, provider, tier)
}

func (v scheduleView) Upsert(ctx context.Context, sched *domain.RotationSchedule) error {
	return v.s.UpsertSchedule(ctx, sched)
}

func (v scheduleView) List(ctx context.Context) ([]*domain.RotationSchedule, error) {
	return v.s.ListSchedules(ctx)
}

func (v scheduleView) ListDue(ctx context.Context, now time.Time) ([]*domain.RotationSchedule, error) {
	return v.s.ListDueSchedules(ctx, now)
}

type rotationLogView struct{ s *Store }

func (v rotationLogView) Create(ctx context.Context, e *domain.RotationLogEntry) error {
	return v.s.CreateLogEntry(ctx, e)
}

func (v rotationLogView) History(ctx context.Context, provider string, tier domain.Tier, limit int) ([]*domain.RotationLogEntry, error) {
	return v.s.History(ctx, provider, tier, limit)
}

func copyCredential(c *domain.Credential) *domain.Credential {
	out := *c
	out.Ciphertext = append([]byte(nil), c.Ciphertext...)
	out.LastUsedAt = copyTime(c.LastUsedAt)
	out.ActivatedAt = copyTime(c.ActivatedAt)
	out.DeactivatedAt = copyTime(c.DeactivatedAt)
	return &out
}

func copySchedule(sched *domain.RotationSchedule) *domain.RotationSchedule {
	out := *sched
	out.LastRotationAt = copyTime(sched.LastRotationAt)
	out.NextRotationAt = copyTime(sched.NextRotationAt)
	return &out
}

func copyEntry(e *domain.RotationLogEntry) *domain.RotationLogEntry {
	out := *e
	return &out
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	out := *t
	return &out
}
