package persistence

import (
	"hash/fnv"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/UCCS-CS4300-5300/Fall-25-CS-5300-sub001/internal/domain"
	"github.com/UCCS-CS4300-5300/Fall-25-CS-5300-sub001/pkg/postgres"
)

// PostgresBase provides the shared plumbing for PostgreSQL-backed
// repositories: the pooled client, the logger, and advisory lock keying.
type PostgresBase struct {
	*postgres.Client
	logger *slog.Logger
}

// NewPostgresBase creates a new PostgresBase.
func NewPostgresBase(db *pgxpool.Pool, logger *slog.Logger) *PostgresBase {
	return &PostgresBase{
		Client: postgres.NewClient(db),
		logger: logger,
	}
}

// RotationLockID derives the advisory lock key for a (provider, tier) pool.
// All writers of the same pool contend on the same int64.
func (c *PostgresBase) RotationLockID(provider string, tier domain.Tier) int64 {
	h := fnv.New64a()
	h.Write([]byte(provider))
	h.Write([]byte{'|'})
	h.Write([]byte(tier))
	return int64(h.Sum64())
}
