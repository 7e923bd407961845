// Package api exposes the tier, reward, franchise and moderation operations
// over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/okian/ehb/internal/adapters/http/swagger"
	"github.com/okian/ehb/internal/domain/franchise"
	"github.com/okian/ehb/internal/domain/model"
	"github.com/okian/ehb/internal/domain/moderation"
	"github.com/okian/ehb/internal/domain/ratelimit"
	"github.com/okian/ehb/internal/domain/reward"
	"github.com/okian/ehb/internal/domain/types"
	"github.com/okian/ehb/pkg/logger"
)

const maxBodyBytes = 1 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	CalculateReward(ctx context.Context, in reward.Input) (reward.Result, error)
	CheckAccess(ctx context.Context, userLevel, requiredLevel string) (bool, error)
	EvaluateEarnings(ctx context.Context, in franchise.Input) (franchise.Earnings, error)
	// WalletEarnings loads a stored wallet and evaluates it.
	WalletEarnings(ctx context.Context, address string) (model.Wallet, franchise.Earnings, error)
	SubmitReport(ctx context.Context, r moderation.Report) (moderation.Outcome, error)
	Allow(ctx context.Context, clientKey, profile string) (ratelimit.Decision, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	deps  Dependencies
	stats StatsProvider
	auth  *Authenticator
	log   logger.Logger
}

// NewServer creates a new API server.
func NewServer(deps Dependencies, stats StatsProvider, opts ...Option) *Server {
	s := &Server{
		deps:  deps,
		stats: stats,
		auth:  NewAuthenticator(nil, ""),
		log:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Routes builds the chi router with every route attached.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(chimw.Recoverer)
	r.Use(MetricsMiddleware)

	r.Get("/healthz", HandleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", HandleMetrics)
	r.Get("/stats", s.handleStats)
	r.Get("/openapi.yaml", swagger.HandleSpec)
	r.Get("/api-docs", swagger.HandleDocs)

	r.Route("/v1", func(r chi.Router) {
		r.With(s.limit(ratelimit.ProfileAPI)).Post("/rewards/calculate", s.handleCalculateReward)

		r.Group(func(r chi.Router) {
			r.Use(s.limit(ratelimit.ProfileLenient))
			r.Post("/access/check", s.handleCheckAccess)
			r.Get("/levels/{level}", s.handleGetLevel)
			r.Post("/levels/eligibility", s.handleEligibility)
		})

		r.With(s.limit(ratelimit.ProfileModerate)).Post("/franchise/earnings", s.handleEarnings)
		r.Post("/ratelimit/check", s.handleRateLimitCheck)

		r.Group(func(r chi.Router) {
			r.Use(s.auth.Middleware)
			r.With(s.limit(ratelimit.ProfileLenient)).Get("/me/access", s.handleMyAccess)
			r.With(s.limit(ratelimit.ProfileModerate)).Get("/franchise/wallets/{address}/earnings", s.handleWalletEarnings)
			r.With(s.limit(ratelimit.ProfileStrict)).Post("/reports", s.handleSubmitReport)
		})
	})

	return r
}

// Handler returns the router wrapped with OpenTelemetry instrumentation.
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(s.Routes(), "ehb-http")
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// decodeJSON reads one JSON object from the body into v. Unknown fields,
// trailing data and bodies over 1 MiB are rejected as invalid input.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return types.InvalidField("body", "exceeds 1 MiB")
		case errors.Is(err, io.EOF):
			return types.InvalidField("body", "is empty")
		default:
			return fmt.Errorf("malformed JSON body: %v: %w", err, types.ErrInvalidInput)
		}
	}
	if dec.More() {
		return types.InvalidField("body", "must contain a single JSON object")
	}
	return nil
}
