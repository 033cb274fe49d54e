// Package budget decides which credential tier should serve outbound calls
// given current-month spend against the configured cap. Pure decision logic;
// it reads no credential state and has no side effects.
package budget

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/UCCS-CS4300-5300/Fall-25-CS-5300-sub001/internal/domain"
)

// Tier boundaries as percentages of the active cap. At standardThreshold
// the decision is standard, at fallbackThreshold it is fallback; both
// boundaries are inclusive of the more conservative tier.
var (
	standardThreshold = decimal.NewFromInt(85)
	fallbackThreshold = decimal.NewFromInt(100)

	hundred = decimal.NewFromInt(100)
)

// Decision is the explained outcome of one tier selection.
type Decision struct {
	Tier    domain.Tier
	Percent decimal.Decimal
	Capped  bool
	Reason  string
}

// SelectTier returns the tier that should serve calls right now. A forced
// tier short-circuits the spend arithmetic entirely.
func SelectTier(spend decimal.Decimal, cap *domain.SpendingCap, force *domain.Tier) domain.Tier {
	if force != nil {
		return *force
	}
	return Explain(spend, cap).Tier
}

// Explain computes the tier decision together with the spend percentage and
// a human-readable reason, for status output and logs.
func Explain(spend decimal.Decimal, cap *domain.SpendingCap) Decision {
	if cap == nil || !cap.Active {
		return Decision{
			Tier:   domain.TierPremium,
			Reason: "no active spending cap, premium tier unconstrained",
		}
	}
	if cap.Amount.Sign() <= 0 {
		return Decision{
			Tier:   domain.TierPremium,
			Reason: "spending cap amount is not positive, treated as uncapped",
		}
	}

	pct := spend.Div(cap.Amount).Mul(hundred)

	switch {
	case pct.GreaterThanOrEqual(fallbackThreshold):
		return Decision{
			Tier:    domain.TierFallback,
			Percent: pct,
			Capped:  true,
			Reason:  fmt.Sprintf("spend at %s%% of cap, budget exhausted, fallback tier", pct.StringFixed(1)),
		}
	case pct.GreaterThanOrEqual(standardThreshold):
		return Decision{
			Tier:    domain.TierStandard,
			Percent: pct,
			Capped:  true,
			Reason:  fmt.Sprintf("spend at %s%% of cap, approaching budget, standard tier", pct.StringFixed(1)),
		}
	default:
		return Decision{
			Tier:    domain.TierPremium,
			Percent: pct,
			Capped:  true,
			Reason:  fmt.Sprintf("spend at %s%% of cap, premium tier", pct.StringFixed(1)),
		}
	}
}
