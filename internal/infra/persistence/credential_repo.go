package persistence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/UCCS-CS4300-5300/Fall-25-CS-5300-sub001/internal/domain"
	app_errors "github.com/UCCS-CS4300-5300/Fall-25-CS-5300-sub001/internal/errors"
)

const queryTimeout = 3 * time.Second

// Name of the partial unique index enforcing one active credential per
// (provider, tier) pool. Unique violations are classified by it.
const activeCredentialIndex = "credentials_one_active_per_pool"

const (
	credentialColumns = `id, provider, tier, name, ciphertext, key_prefix, status, usage_count, last_used_at, added_at, activated_at, deactivated_at`

	credentialInsertQuery = `
		INSERT INTO credentials (` + credentialColumns + `)
		VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	credentialGetQuery = `
		SELECT ` + credentialColumns + `
		FROM credentials
		WHERE id = $1::uuid`

	credentialGetActiveQuery = `
		SELECT ` + credentialColumns + `
		FROM credentials
		WHERE provider = $1 AND tier = $2 AND status = 'active'`

	credentialNextPendingQuery = `
		SELECT ` + credentialColumns + `
		FROM credentials
		WHERE provider = $1 AND tier = $2 AND status = 'pending'
		ORDER BY added_at ASC, id ASC
		LIMIT 1`

	credentialListQuery = `
		SELECT ` + credentialColumns + `
		FROM credentials
		WHERE provider = $1
		ORDER BY added_at ASC, id ASC`

	credentialMarkUsedQuery = `
		UPDATE credentials
		SET usage_count = usage_count + 1, last_used_at = $2
		WHERE id = $1::uuid`

	credentialRevokeQuery = `
		UPDATE credentials
		SET status = 'revoked', deactivated_at = $2
		WHERE id = $1::uuid AND status <> 'revoked'`

	credentialReenableQuery = `
		UPDATE credentials
		SET status = 'pending', activated_at = NULL, deactivated_at = NULL
		WHERE id = $1::uuid AND status = 'inactive'`

	credentialStatusQuery = `
		SELECT status FROM credentials WHERE id = $1::uuid`

	credentialActiveIDForUpdateQuery = `
		SELECT id FROM credentials
		WHERE provider = $1 AND tier = $2 AND status = 'active'
		FOR UPDATE`

	credentialDeactivateQuery = `
		UPDATE credentials
		SET status = 'inactive', deactivated_at = $2
		WHERE id = $1::uuid AND status = 'active'`

	credentialActivateQuery = `
		UPDATE credentials
		SET status = 'active', activated_at = $2
		WHERE id = $1::uuid AND status = 'pending'`
)

// CredentialRepository is the PostgreSQL implementation of
// domain.CredentialRepository. The rotation exchange runs inside a
// serializable transaction guarded by a per-pool advisory lock.
type CredentialRepository struct {
	*PostgresBase
	txManager *TransactionManager[*domain.Credential]
}

func NewCredentialRepository(db *pgxpool.Pool, logger *slog.Logger) *CredentialRepository {
	return &CredentialRepository{
		PostgresBase: NewPostgresBase(db, logger),
		txManager:    NewTransactionManager[*domain.Credential](logger),
	}
}

func (r *CredentialRepository) Create(ctx context.Context, c *domain.Credential) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := r.DB.Exec(ctx, credentialInsertQuery,
		c.ID.String(), c.Provider, c.Tier, c.Name, c.Ciphertext, c.KeyPrefix,
		c.Status, c.UsageCount, c.LastUsedAt, c.AddedAt, c.ActivatedAt, c.DeactivatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			if pgErr.ConstraintName == activeCredentialIndex {
				return fmt.Errorf("%w: pool %s/%s already has an active credential",
					app_errors.ErrRotationConflict, c.Provider, c.Tier)
			}
			return fmt.Errorf("credential %s already exists", c.ID)
		}
		return fmt.Errorf("failed to create credential %s: %w", c.ID, err)
	}
	return nil
}

func (r *CredentialRepository) Get(ctx context.Context, id domain.CredentialID) (*domain.Credential, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	c, err := scanCredential(r.DB.QueryRow(ctx, credentialGetQuery, id.String()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, app_errors.ErrCredentialNotFound
		}
		return nil, fmt.Errorf("failed to get credential %s: %w", id, err)
	}
	return c, nil
}

func (r *CredentialRepository) GetActive(ctx context.Context, provider string, tier domain.Tier) (*domain.Credential, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	c, err := scanCredential(r.DB.QueryRow(ctx, credentialGetActiveQuery, provider, tier))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, app_errors.ErrNoActiveCredential
		}
		return nil, fmt.Errorf("failed to get active credential for %s/%s: %w", provider, tier, err)
	}
	return c, nil
}

func (r *CredentialRepository) NextPending(ctx context.Context, provider string, tier domain.Tier) (*domain.Credential, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	c, err := scanCredential(r.DB.QueryRow(ctx, credentialNextPendingQuery, provider, tier))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, app_errors.ErrNoPendingCredential
		}
		return nil, fmt.Errorf("failed to get pending credential for %s/%s: %w", provider, tier, err)
	}
	return c, nil
}

func (r *CredentialRepository) List(ctx context.Context, provider string) ([]*domain.Credential, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := r.DB.Query(ctx, credentialListQuery, provider)
	if err != nil {
		return nil, fmt.Errorf("failed to query credentials for %s: %w", provider, err)
	}
	defer rows.Close()

	var creds []*domain.Credential
	for rows.Next() {
		c, err := scanCredential(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan credential row: %w", err)
		}
		creds = append(creds, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over credentials: %w", err)
	}
	return creds, nil
}

func (r *CredentialRepository) MarkUsed(ctx context.Context, id domain.CredentialID, usedAt time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	result, err := r.DB.Exec(ctx, credentialMarkUsedQuery, id.String(), usedAt)
	if err != nil {
		return fmt.Errorf("failed to mark credential %s used: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return app_errors.ErrCredentialNotFound
	}
	return nil
}

// Revoke is terminal; revoking an already revoked credential reports
// ErrCredentialRevoked and leaves its deactivation time unchanged.
func (r *CredentialRepository) Revoke(ctx context.Context, id domain.CredentialID, revokedAt time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	result, err := r.DB.Exec(ctx, credentialRevokeQuery, id.String(), revokedAt)
	if err != nil {
		return fmt.Errorf("failed to revoke credential %s: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return r.classifyUnchanged(ctx, id, domain.CredentialStatus(""))
	}
	return nil
}

// Reenable returns a rotated-out credential to the pending queue. Its
// original added_at is kept, so a re-enabled credential rejoins the
// round-robin at its old position. Only inactive credentials qualify.
func (r *CredentialRepository) Reenable(ctx context.Context, id domain.CredentialID) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	result, err := r.DB.Exec(ctx, credentialReenableQuery, id.String())
	if err != nil {
		return fmt.Errorf("failed to re-enable credential %s: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return r.classifyUnchanged(ctx, id, domain.CredentialStatusInactive)
	}
	return nil
}

// classifyUnchanged explains a zero-row status update: the credential is
// missing, revoked, or in a state the operation does not accept.
func (r *CredentialRepository) classifyUnchanged(ctx context.Context, id domain.CredentialID, wanted domain.CredentialStatus) error {
	var status domain.CredentialStatus
	err := r.DB.QueryRow(ctx, credentialStatusQuery, id.String()).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return app_errors.ErrCredentialNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read credential %s status: %w", id, err)
	}
	if status == domain.CredentialStatusRevoked {
		return fmt.Errorf("%w: %s", app_errors.ErrCredentialRevoked, id)
	}
	if wanted != "" {
		return fmt.Errorf("%w: cannot re-enable a %s credential", domain.ErrInvalidStatus, status)
	}
	return fmt.Errorf("%w: credential %s status changed concurrently", app_errors.ErrRotationConflict, id)
}

// ApplyRotation performs the activation exchange as one serializable
// transaction under the pool's advisory lock: deactivate the outgoing
// credential, activate the candidate, advance the schedule, and append the
// success log entry. Any failure rolls the whole unit back.
func (r *CredentialRepository) ApplyRotation(ctx context.Context, rot *domain.Rotation) (*domain.Credential, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	return r.txManager.ExecuteInTransaction(ctx, r.DB, func(ctx context.Context, tx pgx.Tx) (*domain.Credential, error) {
		return r.applyRotationInTx(ctx, tx, rot)
	})
}

func (r *CredentialRepository) applyRotationInTx(ctx context.Context, tx pgx.Tx, rot *domain.Rotation) (*domain.Credential, error) {
	locked, err := r.TryAcquireLock(ctx, tx, r.RotationLockID(rot.Provider, rot.Tier))
	if err != nil {
		return nil, err
	}
	if !locked {
		return nil, fmt.Errorf("%w: pool %s/%s", app_errors.ErrRotationLocked, rot.Provider, rot.Tier)
	}

	// Revalidate the active credential the caller based its decision on.
	var current uuid.UUID
	haveActive := true
	err = tx.QueryRow(ctx, credentialActiveIDForUpdateQuery, rot.Provider, rot.Tier).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		haveActive = false
	} else if err != nil {
		return nil, fmt.Errorf("failed to read active credential: %w", err)
	}

	switch {
	case rot.OldID == nil && haveActive:
		return nil, fmt.Errorf("%w: pool %s/%s gained an active credential",
			app_errors.ErrRotationConflict, rot.Provider, rot.Tier)
	case rot.OldID != nil && (!haveActive || current.String() != rot.OldID.String()):
		return nil, fmt.Errorf("%w: active credential changed under rotation",
			app_errors.ErrRotationConflict)
	}

	if rot.OldID != nil {
		result, err := tx.Exec(ctx, credentialDeactivateQuery, rot.OldID.String(), rot.OccurredAt)
		if err != nil {
			return nil, fmt.Errorf("failed to deactivate credential %s: %w", rot.OldID, err)
		}
		if result.RowsAffected() == 0 {
			return nil, fmt.Errorf("%w: active credential changed under rotation",
				app_errors.ErrRotationConflict)
		}
	}

	result, err := tx.Exec(ctx, credentialActivateQuery, rot.NewID.String(), rot.OccurredAt)
	if err != nil {
		return nil, fmt.Errorf("failed to activate credential %s: %w", rot.NewID, err)
	}
	if result.RowsAffected() == 0 {
		return nil, fmt.Errorf("%w: candidate credential is no longer pending",
			app_errors.ErrRotationConflict)
	}

	if rot.Schedule != nil {
		if _, err := tx.Exec(ctx, scheduleUpsertQuery, scheduleUpsertArgs(rot.Schedule)...); err != nil {
			return nil, fmt.Errorf("failed to upsert rotation schedule: %w", err)
		}
	}
	if rot.Entry != nil {
		if _, err := tx.Exec(ctx, rotationLogInsertQuery, rotationLogInsertArgs(rot.Entry)...); err != nil {
			return nil, fmt.Errorf("failed to append rotation log entry: %w", err)
		}
	}

	activated, err := scanCredential(tx.QueryRow(ctx, credentialGetQuery, rot.NewID.String()))
	if err != nil {
		return nil, fmt.Errorf("failed to read activated credential: %w", err)
	}
	return activated, nil
}

func scanCredential(row pgx.Row) (*domain.Credential, error) {
	var c domain.Credential
	var id uuid.UUID

	err := row.Scan(
		&id,
		&c.Provider,
		&c.Tier,
		&c.Name,
		&c.Ciphertext,
		&c.KeyPrefix,
		&c.Status,
		&c.UsageCount,
		&c.LastUsedAt,
		&c.AddedAt,
		&c.ActivatedAt,
		&c.DeactivatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.ID, err = domain.CredentialIDFromString(id.String())
	if err != nil {
		return nil, fmt.Errorf("failed to parse credential id: %w", err)
	}
	return &c, nil
}
