package api

import (
	"net/http"

	"github.com/okian/ehb/internal/domain/moderation"
	"github.com/okian/ehb/internal/domain/types"
)

type reportRequest struct {
	Kind     string `json:"kind"`
	TargetID string `json:"target_id"`
	Reason   string `json:"reason"`
}

// handleSubmitReport files a report as the authenticated caller. A new
// report answers 201, a repeat by the same caller 200.
func (s *Server) handleSubmitReport(w http.ResponseWriter, r *http.Request) {
	sess, ok := SessionFromContext(r.Context())
	if !ok {
		s.writeDomainError(w, r, types.ErrUnauthorized)
		return
	}

	var req reportRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	out, err := s.deps.SubmitReport(r.Context(), moderation.Report{
		Kind:       req.Kind,
		TargetID:   req.TargetID,
		ReporterID: sess.Subject,
		Reason:     req.Reason,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	status := http.StatusCreated
	if out.Duplicate {
		status = http.StatusOK
	}
	writeJSON(w, status, out)
}
