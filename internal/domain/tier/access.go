package tier

import "fmt"

// CanAccess reports whether user's tier reaches required's tier.
func CanAccess(user, required Level) bool {
	return user.Rank() >= required.Rank()
}

// NextLevel returns the tier above l. The boolean is false at the top tier
// and for LevelUnknown.
func NextLevel(l Level) (Level, bool) {
	if !l.Valid() || l == LevelVIP {
		return LevelUnknown, false
	}
	return l + 1, true
}

// Evaluator answers access questions on raw tier names. It has no state;
// the zero value is ready to use.
type Evaluator struct{}

// NewEvaluator returns an Evaluator.
func NewEvaluator() Evaluator { return Evaluator{} }

// Check parses both levels and compares them. Unknown level names are
// rejected before any comparison.
func (Evaluator) Check(user, required string) (bool, error) {
	u, err := ParseLevel(user)
	if err != nil {
		return false, fmt.Errorf("user_level: %w", err)
	}
	r, err := ParseLevel(required)
	if err != nil {
		return false, fmt.Errorf("required_level: %w", err)
	}
	return CanAccess(u, r), nil
}
