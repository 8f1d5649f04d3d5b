package credit

import (
	"github.com/creditrail/creditrail/internal/types"
	"github.com/shopspring/decimal"
)

// Result is the outcome of a balance/expiration calculation.
type Result struct {
	// NewBalance is the pool balance after the grant, post-cap.
	NewBalance decimal.Decimal `json:"new_balance"`
	// ExpiredAmount is the prior balance zeroed by an expiring mode. Zero for
	// mode never: credits dropped at the cap are neither granted nor logged
	// as expired.
	ExpiredAmount decimal.Decimal `json:"expired_amount"`
}

// Calculate computes the post-grant balance and expired amount for a cycle
// grant. Pure: no I/O, total over all inputs.
//
// Mode never keeps the prior balance and caps the sum at maxRollover; the
// overflow is dropped. Expiring modes (end_of_cycle, rolling_window) replace
// the entire prior balance with the new grant, still capped.
//
// A negative currentBalance is accepted arithmetically and not floored at
// zero. Downstream accounting depends on the passthrough; see the dedicated
// regression test before changing this.
func Calculate(currentBalance, newCredits decimal.Decimal, mode types.ExpirationMode, maxRollover *decimal.Decimal) Result {
	if mode.Expires() {
		newBalance := newCredits
		if maxRollover != nil {
			newBalance = decimal.Min(newCredits, *maxRollover)
		}
		return Result{
			NewBalance:    newBalance,
			ExpiredAmount: currentBalance,
		}
	}

	newBalance := currentBalance.Add(newCredits)
	if maxRollover != nil {
		newBalance = decimal.Min(newBalance, *maxRollover)
	}
	return Result{
		NewBalance:    newBalance,
		ExpiredAmount: decimal.Zero,
	}
}

// GrantDelta derives the delta actually granted from a calculation: the
// amount the grant transaction carries. When a prior balance expired, even a
// negative one, the baseline is zero; otherwise it is the pre-grant balance.
// May be zero (user already at cap) or less than the plan's credits per cycle
// (partially capped), both valid non-error outcomes.
func GrantDelta(currentBalance decimal.Decimal, r Result) decimal.Decimal {
	baseline := currentBalance
	if r.ExpiredAmount.Sign() != 0 {
		baseline = decimal.Zero
	}
	return r.NewBalance.Sub(baseline)
}

// GrantOutcome classifies a grant for the audit description.
type GrantOutcome string

const (
	GrantOutcomeFull    GrantOutcome = "full"
	GrantOutcomePartial GrantOutcome = "partially_capped"
	GrantOutcomeAtCap   GrantOutcome = "at_cap"
	GrantOutcomeExpired GrantOutcome = "cycle_reset"
)

// ClassifyGrant names which capping case occurred, for support/audit trails.
func ClassifyGrant(delta, creditsPerCycle decimal.Decimal, r Result) GrantOutcome {
	switch {
	case r.ExpiredAmount.Sign() != 0:
		return GrantOutcomeExpired
	case delta.IsZero():
		return GrantOutcomeAtCap
	case delta.LessThan(creditsPerCycle):
		return GrantOutcomePartial
	default:
		return GrantOutcomeFull
	}
}
