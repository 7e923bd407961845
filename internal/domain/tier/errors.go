package tier

import (
	"fmt"

	"github.com/okian/ehb/internal/domain/types"
)

// Sentinel kinds for tier lookups. All of them are invalid input.
var (
	ErrUnknownLevel   = fmt.Errorf("unknown sql level: %w", types.ErrInvalidInput)
	ErrUnknownRole    = fmt.Errorf("unknown franchise role: %w", types.ErrInvalidInput)
	ErrUnknownFeature = fmt.Errorf("unknown feature: %w", types.ErrInvalidInput)
)
