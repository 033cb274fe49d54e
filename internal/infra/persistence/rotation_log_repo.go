package persistence

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/UCCS-CS4300-5300/Fall-25-CS-5300-sub001/internal/domain"
)

const (
	rotationLogColumns = `id, provider, tier, old_credential_masked, new_credential_masked, status, trigger, occurred_at, performed_by, error_message, notes`

	rotationLogInsertQuery = `
		INSERT INTO rotation_log (` + rotationLogColumns + `)
		VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	rotationLogHistoryQuery = `
		SELECT ` + rotationLogColumns + `
		FROM rotation_log
		WHERE ($1 = '' OR provider = $1)
		  AND ($2 = '' OR tier = $2)
		ORDER BY occurred_at DESC, id
		LIMIT $3`
)

// RotationLogRepository is the PostgreSQL implementation of
// domain.RotationLogRepository. The table carries a trigger rejecting
// UPDATE and DELETE, so entries written here are immutable even against
// raw SQL through the application role.
type RotationLogRepository struct {
	*PostgresBase
}

func NewRotationLogRepository(db *pgxpool.Pool, logger *slog.Logger) *RotationLogRepository {
	return &RotationLogRepository{PostgresBase: NewPostgresBase(db, logger)}
}

func (r *RotationLogRepository) Create(ctx context.Context, e *domain.RotationLogEntry) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if _, err := r.DB.Exec(ctx, rotationLogInsertQuery, rotationLogInsertArgs(e)...); err != nil {
		return fmt.Errorf("failed to append rotation log entry: %w", err)
	}
	return nil
}

// History returns entries newest first. Empty provider or tier matches all;
// a non-positive limit returns everything.
func (r *RotationLogRepository) History(ctx context.Context, provider string, tier domain.Tier, limit int) ([]*domain.RotationLogEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var rowLimit any
	if limit > 0 {
		rowLimit = limit
	}

	rows, err := r.DB.Query(ctx, rotationLogHistoryQuery, provider, tier, rowLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to query rotation log: %w", err)
	}
	defer rows.Close()

	var entries []*domain.RotationLogEntry
	for rows.Next() {
		e, err := scanRotationLogEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rotation log row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over rotation log: %w", err)
	}
	return entries, nil
}

func scanRotationLogEntry(row pgx.Row) (*domain.RotationLogEntry, error) {
	var e domain.RotationLogEntry
	var id uuid.UUID

	err := row.Scan(
		&id,
		&e.Provider,
		&e.Tier,
		&e.OldCredentialMasked,
		&e.NewCredentialMasked,
		&e.Status,
		&e.Trigger,
		&e.OccurredAt,
		&e.PerformedBy,
		&e.ErrorMessage,
		&e.Notes,
	)
	if err != nil {
		return nil, err
	}
	e.ID = id
	return &e, nil
}

func rotationLogInsertArgs(e *domain.RotationLogEntry) []any {
	return []any{
		e.ID.String(), e.Provider, e.Tier,
		e.OldCredentialMasked, e.NewCredentialMasked,
		e.Status, e.Trigger, e.OccurredAt,
		e.PerformedBy, e.ErrorMessage, e.Notes,
	}
}
