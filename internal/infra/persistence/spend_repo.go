package persistence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/UCCS-CS4300-5300/Fall-25-CS-5300-sub001/internal/domain"
)

const (
	// NUMERIC values travel as text to avoid float conversion on the way
	// into decimal.Decimal.
	spendCurrentMonthQuery = `
		SELECT total_cost::text
		FROM monthly_spend
		WHERE provider = $1 AND year = $2 AND month = $3`

	spendActiveCapQuery = `
		SELECT amount::text
		FROM spending_caps
		WHERE active
		LIMIT 1`
)

// SpendRepository reads the spend tables owned by the cost accounting
// pipeline. This side never writes them.
type SpendRepository struct {
	*PostgresBase
}

func NewSpendRepository(db *pgxpool.Pool, logger *slog.Logger) *SpendRepository {
	return &SpendRepository{PostgresBase: NewPostgresBase(db, logger)}
}

// CurrentMonthSpend returns the provider's spend total for the calendar
// month containing now (UTC). A month with no row yet reads as zero.
func (r *SpendRepository) CurrentMonthSpend(ctx context.Context, provider string, now time.Time) (decimal.Decimal, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	now = now.UTC()
	var raw string
	err := r.DB.QueryRow(ctx, spendCurrentMonthQuery, provider, now.Year(), int(now.Month())).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to read monthly spend for %s: %w", provider, err)
	}

	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse monthly spend %q: %w", raw, err)
	}
	return amount, nil
}

// ActiveCap returns the active spending cap, or nil when none is active.
func (r *SpendRepository) ActiveCap(ctx context.Context) (*domain.SpendingCap, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var raw string
	err := r.DB.QueryRow(ctx, spendActiveCapQuery).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read spending cap: %w", err)
	}

	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse spending cap %q: %w", raw, err)
	}
	return &domain.SpendingCap{Amount: amount, Active: true}, nil
}
