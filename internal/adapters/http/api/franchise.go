package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/okian/ehb/internal/domain/franchise"
	"github.com/okian/ehb/internal/domain/model"
)

type earningsRequest struct {
	WalletBalance float64 `json:"wallet_balance"`
	LockedAmount  float64 `json:"locked_amount"`
	LockDuration  int     `json:"lock_duration"`
}

func (s *Server) handleEarnings(w http.ResponseWriter, r *http.Request) {
	var req earningsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	out, err := s.deps.EvaluateEarnings(r.Context(), franchise.Input{
		WalletBalance:      req.WalletBalance,
		LockedAmount:       req.LockedAmount,
		LockDurationMonths: req.LockDuration,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type walletEarningsResponse struct {
	Wallet   model.Wallet       `json:"wallet"`
	Earnings franchise.Earnings `json:"earnings"`
}

func (s *Server) handleWalletEarnings(w http.ResponseWriter, r *http.Request) {
	wallet, out, err := s.deps.WalletEarnings(r.Context(), chi.URLParam(r, "address"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, walletEarningsResponse{Wallet: wallet, Earnings: out})
}
