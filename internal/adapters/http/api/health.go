package api

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/ehb/pkg/logger"
	"github.com/okian/ehb/pkg/metrics"
)

// HandleHealth handles GET /healthz.
func HandleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleMetrics serves the custom Prometheus registry.
func HandleMetrics(w http.ResponseWriter, r *http.Request) {
	promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}).ServeHTTP(w, r)
}

// Readiness is implemented by dependencies that can report whether their
// backing stores answer.
type Readiness interface {
	Ready(ctx context.Context) error
}

// handleReady handles GET /readyz. Dependencies without a readiness probe
// are always ready.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	rd, ok := s.deps.(Readiness)
	if !ok {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
		return
	}
	if err := rd.Ready(r.Context()); err != nil {
		s.log.Warn(r.Context(), "readiness check failed", logger.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
