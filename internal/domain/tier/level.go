// Package tier holds the static tier tables (SQL levels, franchise roles,
// loyalty bands, level requirements and benefits) and the access evaluator
// built on top of them.
//
// Every table is a closed enumeration resolved by an exhaustive switch. The
// Unknown member of each enumeration carries the neutral value on purpose.
package tier

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Level is the platform's SQL level: a user's trust tier.
type Level int

// Levels in ascending order. LevelUnknown ranks below every real tier.
const (
	LevelUnknown Level = iota
	LevelFree
	LevelBasic
	LevelNormal
	LevelHigh
	LevelVIP
)

// Levels lists the real tiers in ascending order.
var Levels = []Level{LevelFree, LevelBasic, LevelNormal, LevelHigh, LevelVIP}

// ParseLevel resolves a level by name ("vip", "VIP", " Basic ") or by its
// integer form ("1".."5").
func ParseLevel(s string) (Level, error) {
	l := LookupLevel(s)
	if l == LevelUnknown {
		return LevelUnknown, fmt.Errorf("%q: %w", s, ErrUnknownLevel)
	}
	return l, nil
}

// LookupLevel is ParseLevel without the error: unrecognised input yields
// LevelUnknown.
func LookupLevel(s string) Level {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "free":
		return LevelFree
	case "basic":
		return LevelBasic
	case "normal":
		return LevelNormal
	case "high":
		return LevelHigh
	case "vip":
		return LevelVIP
	}
	if n, err := strconv.Atoi(s); err == nil {
		return LevelFromInt(n)
	}
	return LevelUnknown
}

// LevelFromInt maps 1..5 to a tier; anything else is LevelUnknown.
func LevelFromInt(n int) Level {
	l := Level(n)
	if !l.Valid() {
		return LevelUnknown
	}
	return l
}

// Valid reports whether l is one of the five real tiers.
func (l Level) Valid() bool {
	return l >= LevelFree && l <= LevelVIP
}

// Rank is the ordinal used for comparisons.
func (l Level) Rank() int {
	if !l.Valid() {
		return 0
	}
	return int(l)
}

// Weight is the reward weight of the tier.
func (l Level) Weight() float64 {
	switch l {
	case LevelFree:
		return 0.2
	case LevelBasic:
		return 0.4
	case LevelNormal:
		return 0.6
	case LevelHigh:
		return 0.8
	case LevelVIP:
		return 1.0
	case LevelUnknown:
		return 0
	default:
		return 0
	}
}

func (l Level) String() string {
	switch l {
	case LevelFree:
		return "free"
	case LevelBasic:
		return "basic"
	case LevelNormal:
		return "normal"
	case LevelHigh:
		return "high"
	case LevelVIP:
		return "vip"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the level by name.
func (l Level) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

// UnmarshalJSON accepts a level name or its integer form.
func (l *Level) UnmarshalJSON(b []byte) error {
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("decode level: %w", err)
	}
	var s string
	switch v := raw.(type) {
	case string:
		s = v
	case float64:
		s = strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Errorf("%s: %w", string(b), ErrUnknownLevel)
	}
	parsed, err := ParseLevel(s)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}
