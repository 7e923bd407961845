// Package types contains common types used across the application
package types

import "errors"

// Error kinds shared by every layer. Boundary handlers map them to transport
// status codes; everything else wraps them with context.
var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrNotFound              = errors.New("not found")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
	ErrUnknown               = errors.New("unknown error")
)

// Kind names used in error responses and metrics.
const (
	KindInvalidInput          = "invalid_input"
	KindNotFound              = "not_found"
	KindUnauthorized          = "unauthorized"
	KindDependencyUnavailable = "dependency_unavailable"
	KindUnknown               = "internal_error"
)

// FieldError reports a missing or malformed request field.
type FieldError struct {
	Field  string
	Reason string
}

// InvalidField builds a FieldError for field.
func InvalidField(field, reason string) *FieldError {
	return &FieldError{Field: field, Reason: reason}
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Reason
}

// Unwrap makes errors.Is(err, ErrInvalidInput) hold for every FieldError.
func (e *FieldError) Unwrap() error { return ErrInvalidInput }

// Kind classifies err into one of the taxonomy kinds. Unclassified errors are
// reported as KindUnknown.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrUnauthorized):
		return KindUnauthorized
	case errors.Is(err, ErrDependencyUnavailable):
		return KindDependencyUnavailable
	default:
		return KindUnknown
	}
}
