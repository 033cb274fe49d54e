package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// MonthlySpend is the per-provider spend total for one calendar month.
// It is produced by the cost accounting collaborator; this core only reads
// it.
type MonthlySpend struct {
	Provider  string
	Year      int
	Month     time.Month
	TotalCost decimal.Decimal
}

// SpendingCap is the configured monthly budget ceiling. At most one cap is
// active at a time; consumed read-only by the budget tier selector.
type SpendingCap struct {
	Amount decimal.Decimal
	Active bool
}

// SpendRepository reads spend state owned by the cost accounting
// collaborator.
type SpendRepository interface {
	CurrentMonthSpend(ctx context.Context, provider string, now time.Time) (decimal.Decimal, error)
	ActiveCap(ctx context.Context) (*SpendingCap, error)
}
