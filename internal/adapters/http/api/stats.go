package api

import (
	"net/http"
	"time"
)

// StatsProvider reports service statistics for GET /stats.
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// handleStats serves the provider's snapshot stamped with the server time.
// A nil provider yields only the timestamp.
func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	out := map[string]interface{}{}
	if s.stats != nil {
		for k, v := range s.stats.GetStats() {
			out[k] = v
		}
	}
	out["generated_at"] = time.Now().UTC().Format(time.RFC3339)
	writeJSON(w, http.StatusOK, out)
}
