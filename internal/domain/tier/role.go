package tier

import (
	"fmt"
	"strings"
)

// Role is a franchise operator's organisational tier.
type Role int

// Franchise roles. RoleUnknown carries a zero modifier.
const (
	RoleUnknown Role = iota
	RoleSub
	RoleMaster
	RoleCorporate
)

// ParseRole resolves a role by name, case-insensitively.
func ParseRole(s string) (Role, error) {
	r := LookupRole(s)
	if r == RoleUnknown {
		return RoleUnknown, fmt.Errorf("%q: %w", s, ErrUnknownRole)
	}
	return r, nil
}

// LookupRole is ParseRole without the error.
func LookupRole(s string) Role {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sub":
		return RoleSub
	case "master":
		return RoleMaster
	case "corporate":
		return RoleCorporate
	default:
		return RoleUnknown
	}
}

// Modifier is the additive reward modifier of the role.
func (r Role) Modifier() float64 {
	switch r {
	case RoleSub:
		return 0.02
	case RoleMaster:
		return 0.03
	case RoleCorporate:
		return 0.05
	case RoleUnknown:
		return 0
	default:
		return 0
	}
}

func (r Role) String() string {
	switch r {
	case RoleSub:
		return "sub"
	case RoleMaster:
		return "master"
	case RoleCorporate:
		return "corporate"
	default:
		return "unknown"
	}
}
