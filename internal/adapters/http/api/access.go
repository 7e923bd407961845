package api

import (
	"math"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/okian/ehb/internal/domain/tier"
	"github.com/okian/ehb/internal/domain/types"
)

type accessCheckRequest struct {
	UserLevel     string `json:"user_level"`
	RequiredLevel string `json:"required_level"`
}

type accessCheckResponse struct {
	Allowed       bool        `json:"allowed"`
	UserLevel     string      `json:"user_level"`
	RequiredLevel string      `json:"required_level"`
	NextLevel     *tier.Level `json:"next_level,omitempty"`
}

func (s *Server) handleCheckAccess(w http.ResponseWriter, r *http.Request) {
	var req accessCheckRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	allowed, err := s.deps.CheckAccess(r.Context(), req.UserLevel, req.RequiredLevel)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	user := tier.LookupLevel(req.UserLevel)
	resp := accessCheckResponse{
		Allowed:       allowed,
		UserLevel:     user.String(),
		RequiredLevel: tier.LookupLevel(req.RequiredLevel).String(),
	}
	if next, ok := tier.NextLevel(user); ok {
		resp.NextLevel = &next
	}
	writeJSON(w, http.StatusOK, resp)
}

type levelResponse struct {
	Level       tier.Level       `json:"level"`
	Rank        int              `json:"rank"`
	Weight      float64          `json:"weight"`
	Requirement tier.Requirement `json:"requirement"`
	Benefit     tier.Benefit     `json:"benefit"`
	NextLevel   *tier.Level      `json:"next_level,omitempty"`
}

func (s *Server) handleGetLevel(w http.ResponseWriter, r *http.Request) {
	level, err := tier.ParseLevel(chi.URLParam(r, "level"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	resp := levelResponse{
		Level:       level,
		Rank:        level.Rank(),
		Weight:      level.Weight(),
		Requirement: tier.RequirementFor(level.Rank()),
		Benefit:     tier.BenefitFor(level.Rank()),
	}
	if next, ok := tier.NextLevel(level); ok {
		resp.NextLevel = &next
	}
	writeJSON(w, http.StatusOK, resp)
}

type eligibilityResponse struct {
	Level          tier.Level     `json:"level"`
	CommissionRate float64        `json:"commission_rate"`
	Features       []tier.Feature `json:"features"`
	NextLevel      *tier.Level    `json:"next_level,omitempty"`
	// NextRequirement is what the following level asks for.
	NextRequirement *tier.Requirement `json:"next_requirement,omitempty"`
}

func (s *Server) handleEligibility(w http.ResponseWriter, r *http.Request) {
	var stats tier.Stats
	if err := decodeJSON(w, r, &stats); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	switch {
	case stats.Orders < 0:
		s.writeDomainError(w, r, types.InvalidField("orders", "must not be negative"))
		return
	case stats.Volume < 0 || math.IsNaN(stats.Volume) || math.IsInf(stats.Volume, 0):
		s.writeDomainError(w, r, types.InvalidField("volume", "must be a non-negative number"))
		return
	case stats.ComplaintRate < 0 || stats.ComplaintRate > 1:
		s.writeDomainError(w, r, types.InvalidField("complaint_rate", "must be between 0 and 1"))
		return
	}

	level := tier.EligibleLevel(stats)
	benefit := tier.BenefitFor(level.Rank())
	resp := eligibilityResponse{
		Level:          level,
		CommissionRate: benefit.CommissionRate,
		Features:       benefit.Features,
	}
	if next, ok := tier.NextLevel(level); ok {
		req := tier.RequirementFor(next.Rank())
		resp.NextLevel = &next
		resp.NextRequirement = &req
	}
	writeJSON(w, http.StatusOK, resp)
}

type myAccessResponse struct {
	Subject       string         `json:"subject"`
	SQLLevel      string         `json:"sql_level"`
	FranchiseRole string         `json:"franchise_role"`
	Features      []tier.Feature `json:"features"`
	Feature       string         `json:"feature,omitempty"`
	Allowed       *bool          `json:"allowed,omitempty"`
}

// handleMyAccess reports the caller's features, or whether the caller may
// use the feature named by ?feature=.
func (s *Server) handleMyAccess(w http.ResponseWriter, r *http.Request) {
	sess, ok := SessionFromContext(r.Context())
	if !ok {
		s.writeDomainError(w, r, types.ErrUnauthorized)
		return
	}

	resp := myAccessResponse{
		Subject:       sess.Subject,
		SQLLevel:      sess.Level.String(),
		FranchiseRole: sess.Role.String(),
		Features:      tier.FeaturesFor(sess.Level),
	}
	if name := r.URL.Query().Get("feature"); name != "" {
		f, err := tier.ParseFeature(name)
		if err != nil {
			s.writeDomainError(w, r, err)
			return
		}
		allowed := tier.CanUseFeature(sess.Level, f)
		resp.Feature = string(f)
		resp.Allowed = &allowed
	}
	writeJSON(w, http.StatusOK, resp)
}
