// Package reward computes validator rewards from a stake and the caller's
// tiers.
package reward

import (
	"fmt"
	"math"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/okian/ehb/internal/domain/tier"
	"github.com/okian/ehb/internal/domain/types"
)

// DefaultBaseRate is the share of the stake paid before tier factors.
const DefaultBaseRate = 0.05

// Input is a reward computation request.
type Input struct {
	ValidatorAddress string
	SQLLevel         string
	FranchiseRole    string
	LoyaltyYears     int
	// StakedAmount is a pointer so that an absent stake can be told apart
	// from a zero stake.
	StakedAmount *float64
}

// Result is the breakdown of a computed reward.
type Result struct {
	ValidatorAddress  string
	BaseReward        float64
	SQLWeight         float64
	FranchiseModifier float64
	LoyaltyMultiplier float64
	FinalReward       float64
	// FinalRewardWei is FinalReward as a fixed-point integer string with
	// Decimals digits of precision.
	FinalRewardWei string
	Decimals       int
}

// Calculator computes rewards. It holds only immutable configuration and is
// safe for concurrent use.
type Calculator struct {
	baseRate float64
	decimals int
}

// NewCalculator creates a Calculator with the given options.
func NewCalculator(opts ...Option) *Calculator {
	c := &Calculator{
		baseRate: DefaultBaseRate,
		decimals: TokenDecimals,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Calculate validates in and computes the reward:
//
//	final = stake * baseRate * weight(level) * (1 + modifier(role)) * (1 + loyalty(years))
//
// Unknown levels and roles resolve to their neutral table values.
func (c *Calculator) Calculate(in Input) (Result, error) {
	in.ValidatorAddress = strings.TrimSpace(in.ValidatorAddress)
	if err := validate(in); err != nil {
		return Result{}, err
	}

	level := tier.LookupLevel(in.SQLLevel)
	role := tier.LookupRole(in.FranchiseRole)

	res := Result{
		ValidatorAddress:  common.HexToAddress(in.ValidatorAddress).Hex(),
		BaseReward:        *in.StakedAmount * c.baseRate,
		SQLWeight:         level.Weight(),
		FranchiseModifier: role.Modifier(),
		LoyaltyMultiplier: tier.LoyaltyMultiplier(in.LoyaltyYears),
		Decimals:          c.decimals,
	}
	res.FinalReward = res.BaseReward * res.SQLWeight * (1 + res.FranchiseModifier) * (1 + res.LoyaltyMultiplier)

	wei, err := ToFixedPoint(res.FinalReward, c.decimals)
	if err != nil {
		return Result{}, fmt.Errorf("reward: %w", types.InvalidField("staked_amount", "reward not representable: "+err.Error()))
	}
	res.FinalRewardWei = wei.String()
	return res, nil
}

func validate(in Input) error {
	addr := in.ValidatorAddress
	switch {
	case addr == "":
		return types.InvalidField("validator_address", "is required")
	case !common.IsHexAddress(addr):
		return types.InvalidField("validator_address", "must be a 20-byte hex address")
	case strings.TrimSpace(in.SQLLevel) == "":
		return types.InvalidField("sql_level", "is required")
	case strings.TrimSpace(in.FranchiseRole) == "":
		return types.InvalidField("franchise_role", "is required")
	case in.StakedAmount == nil:
		return types.InvalidField("staked_amount", "is required")
	case math.IsNaN(*in.StakedAmount) || math.IsInf(*in.StakedAmount, 0):
		return types.InvalidField("staked_amount", "must be a finite number")
	case *in.StakedAmount < 0:
		return types.InvalidField("staked_amount", "must not be negative")
	case in.LoyaltyYears < 0:
		return types.InvalidField("loyalty_years", "must not be negative")
	}
	return nil
}
