package api

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/okian/ehb/internal/domain/types"
)

// limit enforces profile on the wrapped routes. Authenticated callers are
// keyed by subject, anonymous ones by client address.
func (s *Server) limit(profile string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d, err := s.deps.Allow(r.Context(), clientKey(r), profile)
			if err != nil {
				s.writeDomainError(w, r, err)
				return
			}
			for k, v := range d.Headers() {
				w.Header().Set(k, v)
			}
			if !d.Allowed {
				writeError(w, http.StatusTooManyRequests, "rate_limited", d.Profile.Message)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientKey(r *http.Request) string {
	if sess, ok := SessionFromContext(r.Context()); ok {
		return "user:" + sess.Subject
	}
	return "ip:" + clientIP(r)
}

// clientIP prefers proxy headers, then the socket peer.
func clientIP(r *http.Request) string {
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if first = strings.TrimSpace(first); first != "" {
			if parsed := net.ParseIP(first); parsed != nil {
				return parsed.String()
			}
			return first
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type rateLimitCheckRequest struct {
	ClientKey string `json:"client_key"`
	Profile   string `json:"profile"`
}

type rateLimitCheckResponse struct {
	Allowed           bool      `json:"allowed"`
	Profile           string    `json:"profile"`
	Limit             int64     `json:"limit"`
	Remaining         int64     `json:"remaining"`
	ResetAt           time.Time `json:"reset_at"`
	RetryAfterSeconds int64     `json:"retry_after_seconds,omitempty"`
	FailedOpen        bool      `json:"failed_open,omitempty"`
}

// handleRateLimitCheck counts one request for an arbitrary client key so
// other services can share the limiter.
func (s *Server) handleRateLimitCheck(w http.ResponseWriter, r *http.Request) {
	var req rateLimitCheckRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Profile) == "" {
		s.writeDomainError(w, r, types.InvalidField("profile", "is required"))
		return
	}

	d, err := s.deps.Allow(r.Context(), req.ClientKey, req.Profile)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	resp := rateLimitCheckResponse{
		Allowed:    d.Allowed,
		Profile:    d.Profile.Name,
		Limit:      d.Limit,
		Remaining:  d.Remaining,
		ResetAt:    d.ResetAt.UTC(),
		FailedOpen: d.FailedOpen,
	}
	if !d.Allowed {
		resp.RetryAfterSeconds = d.RetryAfterSeconds()
	}
	writeJSON(w, http.StatusOK, resp)
}

