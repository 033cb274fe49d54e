package persistence

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/UCCS-CS4300-5300/Fall-25-CS-5300-sub001/internal/infra/config"
)

// NewConnectionPool builds a pgx connection pool from the persistence
// configuration and verifies connectivity with a ping before returning.
func NewConnectionPool(ctx context.Context, cfg config.PostgresConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres config: %w", err)
	}

	poolConfig.MaxConns = cfg.Connection.MaxConns
	poolConfig.MinConns = cfg.Connection.MinConns
	poolConfig.MaxConnLifetime = cfg.Connection.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.Connection.MaxConnIdleTime
	poolConfig.HealthCheckPeriod = cfg.Connection.HealthCheckPeriod

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}
