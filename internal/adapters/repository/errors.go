package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/okian/ehb/internal/domain/types"
)

// ErrUnsupportedDriver is returned by Open for an unknown driver name.
var ErrUnsupportedDriver = errors.New("unsupported database driver")

// wrap classifies a gorm error into the domain taxonomy.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", op, types.ErrNotFound)
	}
	return fmt.Errorf("%s: %w: %w", op, types.ErrDependencyUnavailable, err)
}
