// Package franchise evaluates franchise earnings from wallet and lock state.
package franchise

import (
	"math"

	"github.com/okian/ehb/internal/domain/tier"
	"github.com/okian/ehb/internal/domain/types"
)

// Rules are the thresholds of the earnings model.
type Rules struct {
	// MinBalance is the balance needed for full earnings.
	MinBalance float64
	// ReducedRatio applies below MinBalance (the 70/30 rule).
	ReducedRatio float64
	// ValidatorThreshold is the balance needed to run a validator.
	ValidatorThreshold float64
}

// DefaultRules returns the production thresholds.
func DefaultRules() Rules {
	return Rules{
		MinBalance:         1_000,
		ReducedRatio:       0.3,
		ValidatorThreshold: 10_000,
	}
}

// Input is the wallet state evaluated.
type Input struct {
	WalletBalance      float64
	LockedAmount       float64
	LockDurationMonths int
}

// Earnings is the evaluation result.
type Earnings struct {
	EarningRatio        float64 `json:"earning_ratio"`
	ValidatorEligible   bool    `json:"validator_eligible"`
	LoyaltyBonusPercent float64 `json:"loyalty_bonus_percent"`
}

// Evaluator applies Rules. It is immutable and safe for concurrent use.
type Evaluator struct {
	rules Rules
}

// NewEvaluator creates an Evaluator for rules.
func NewEvaluator(rules Rules) *Evaluator {
	return &Evaluator{rules: rules}
}

// Rules returns the thresholds in use.
func (e *Evaluator) Rules() Rules { return e.rules }

// Evaluate computes the earnings of a wallet.
func (e *Evaluator) Evaluate(in Input) (Earnings, error) {
	if err := validate(in); err != nil {
		return Earnings{}, err
	}
	out := Earnings{
		EarningRatio:        1.0,
		ValidatorEligible:   in.WalletBalance >= e.rules.ValidatorThreshold,
		LoyaltyBonusPercent: tier.LoyaltyBonus(in.LockedAmount, in.LockDurationMonths),
	}
	if in.WalletBalance < e.rules.MinBalance {
		out.EarningRatio = e.rules.ReducedRatio
	}
	return out, nil
}

func validate(in Input) error {
	switch {
	case !finite(in.WalletBalance):
		return types.InvalidField("wallet_balance", "must be a finite number")
	case in.WalletBalance < 0:
		return types.InvalidField("wallet_balance", "must not be negative")
	case !finite(in.LockedAmount):
		return types.InvalidField("locked_amount", "must be a finite number")
	case in.LockedAmount < 0:
		return types.InvalidField("locked_amount", "must not be negative")
	case in.LockDurationMonths < 0:
		return types.InvalidField("lock_duration", "must not be negative")
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
