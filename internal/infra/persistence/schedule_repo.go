package persistence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/UCCS-CS4300-5300/Fall-25-CS-5300-sub001/internal/domain"
	app_errors "github.com/UCCS-CS4300-5300/Fall-25-CS-5300-sub001/internal/errors"
)

const (
	scheduleColumns = `provider, tier, enabled, frequency, last_rotation_at, next_rotation_at, notify_on_rotation, notification_target`

	scheduleUpsertQuery = `
		INSERT INTO rotation_schedules (` + scheduleColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (provider, tier) DO UPDATE SET
			enabled = EXCLUDED.enabled,
			frequency = EXCLUDED.frequency,
			last_rotation_at = EXCLUDED.last_rotation_at,
			next_rotation_at = EXCLUDED.next_rotation_at,
			notify_on_rotation = EXCLUDED.notify_on_rotation,
			notification_target = EXCLUDED.notification_target`

	scheduleGetQuery = `
		SELECT ` + scheduleColumns + `
		FROM rotation_schedules
		WHERE provider = $1 AND tier = $2`

	scheduleListQuery = `
		SELECT ` + scheduleColumns + `
		FROM rotation_schedules
		ORDER BY provider, tier`

	scheduleListDueQuery = `
		SELECT ` + scheduleColumns + `
		FROM rotation_schedules
		WHERE enabled AND (next_rotation_at IS NULL OR next_rotation_at <= $1)
		ORDER BY provider, tier`
)

// ScheduleRepository is the PostgreSQL implementation of
// domain.ScheduleRepository.
type ScheduleRepository struct {
	*PostgresBase
}

func NewScheduleRepository(db *pgxpool.Pool, logger *slog.Logger) *ScheduleRepository {
	return &ScheduleRepository{PostgresBase: NewPostgresBase(db, logger)}
}

func (r *ScheduleRepository) Get(ctx context.Context, provider string, tier domain.Tier) (*domain.RotationSchedule, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	s, err := scanSchedule(r.DB.QueryRow(ctx, scheduleGetQuery, provider, tier))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, app_errors.ErrScheduleNotFound
		}
		return nil, fmt.Errorf("failed to get rotation schedule for %s/%s: %w", provider, tier, err)
	}
	return s, nil
}

func (r *ScheduleRepository) Upsert(ctx context.Context, s *domain.RotationSchedule) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if _, err := r.DB.Exec(ctx, scheduleUpsertQuery, scheduleUpsertArgs(s)...); err != nil {
		return fmt.Errorf("failed to upsert rotation schedule for %s/%s: %w", s.Provider, s.Tier, err)
	}
	return nil
}

func (r *ScheduleRepository) List(ctx context.Context) ([]*domain.RotationSchedule, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := r.DB.Query(ctx, scheduleListQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query rotation schedules: %w", err)
	}
	defer rows.Close()

	return collectSchedules(rows)
}

func (r *ScheduleRepository) ListDue(ctx context.Context, now time.Time) ([]*domain.RotationSchedule, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := r.DB.Query(ctx, scheduleListDueQuery, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query due rotation schedules: %w", err)
	}
	defer rows.Close()

	return collectSchedules(rows)
}

func collectSchedules(rows pgx.Rows) ([]*domain.RotationSchedule, error) {
	var schedules []*domain.RotationSchedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan schedule row: %w", err)
		}
		schedules = append(schedules, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over schedules: %w", err)
	}
	return schedules, nil
}

func scanSchedule(row pgx.Row) (*domain.RotationSchedule, error) {
	var s domain.RotationSchedule
	err := row.Scan(
		&s.Provider,
		&s.Tier,
		&s.Enabled,
		&s.Frequency,
		&s.LastRotationAt,
		&s.NextRotationAt,
		&s.NotifyOnRotation,
		&s.NotificationTarget,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func scheduleUpsertArgs(s *domain.RotationSchedule) []any {
	return []any{
		s.Provider, s.Tier, s.Enabled, s.Frequency,
		s.LastRotationAt, s.NextRotationAt,
		s.NotifyOnRotation, s.NotificationTarget,
	}
}
