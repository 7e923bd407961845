package api

import (
	"errors"
	"net/http"

	"github.com/okian/ehb/internal/domain/types"
	"github.com/okian/ehb/pkg/logger"
)

// Sentinel kinds for API errors.
var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid bearer token")
)

// writeDomainError maps err onto the error taxonomy. Only invalid input
// echoes its message; dependency and internal failures get a generic one
// and are logged with the request id.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch kind := types.Kind(err); kind {
	case types.KindInvalidInput:
		writeError(w, http.StatusBadRequest, kind, err.Error())
	case types.KindNotFound:
		writeError(w, http.StatusNotFound, kind, "resource not found")
	case types.KindUnauthorized:
		writeError(w, http.StatusUnauthorized, kind, "authentication required")
	case types.KindDependencyUnavailable:
		s.log.Warn(r.Context(), "dependency unavailable",
			logger.String("path", r.URL.Path), logger.Error(err))
		writeError(w, http.StatusServiceUnavailable, kind, "service temporarily unavailable")
	default:
		s.log.Error(r.Context(), "unhandled error",
			logger.String("path", r.URL.Path), logger.Error(err))
		writeError(w, http.StatusInternalServerError, kind, "internal server error")
	}
}
