package ratelimit

import (
	"fmt"

	"github.com/okian/ehb/internal/domain/types"
)

// Sentinel errors for the rate limiter.
var (
	ErrUnknownProfile = fmt.Errorf("unknown rate limit profile: %w", types.ErrInvalidInput)
	ErrInvalidProfile = fmt.Errorf("invalid rate limit profile: %w", types.ErrInvalidInput)
)
