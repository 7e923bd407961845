package api

import (
	"net/http"

	"github.com/okian/ehb/internal/domain/reward"
)

type rewardRequest struct {
	ValidatorAddress string   `json:"validator_address"`
	SQLLevel         string   `json:"sql_level"`
	FranchiseRole    string   `json:"franchise_role"`
	LoyaltyYears     int      `json:"loyalty_years"`
	StakedAmount     *float64 `json:"staked_amount"`
}

type rewardResponse struct {
	Success            bool    `json:"success"`
	ValidatorAddress   string  `json:"validator_address"`
	BaseReward         float64 `json:"base_reward"`
	SQLWeight          float64 `json:"sql_weight"`
	FranchiseModifier  float64 `json:"franchise_modifier"`
	LoyaltyMultiplier  float64 `json:"loyalty_multiplier"`
	FinalReward        string  `json:"final_reward"`
	FinalRewardDecimal float64 `json:"final_reward_decimal"`
	Decimals           int     `json:"decimals"`
}

func (s *Server) handleCalculateReward(w http.ResponseWriter, r *http.Request) {
	var req rewardRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	res, err := s.deps.CalculateReward(r.Context(), reward.Input{
		ValidatorAddress: req.ValidatorAddress,
		SQLLevel:         req.SQLLevel,
		FranchiseRole:    req.FranchiseRole,
		LoyaltyYears:     req.LoyaltyYears,
		StakedAmount:     req.StakedAmount,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, rewardResponse{
		Success:            true,
		ValidatorAddress:   res.ValidatorAddress,
		BaseReward:         res.BaseReward,
		SQLWeight:          res.SQLWeight,
		FranchiseModifier:  res.FranchiseModifier,
		LoyaltyMultiplier:  res.LoyaltyMultiplier,
		FinalReward:        res.FinalRewardWei,
		FinalRewardDecimal: res.FinalReward,
		Decimals:           res.Decimals,
	})
}
