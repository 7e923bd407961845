// Package ratelimit implements fixed-window request limiting by named profile.
package ratelimit

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Built-in profile names.
const (
	ProfileStrict   = "strict"
	ProfileModerate = "moderate"
	ProfileLenient  = "lenient"
	ProfileAPI      = "api"
)

// Profile is a named limit: at most Max requests per Window for one client.
type Profile struct {
	Name      string
	Window    time.Duration
	Max       int64
	KeyPrefix string
	Message   string
}

// Validate reports whether p can be enforced.
func (p Profile) Validate() error {
	switch {
	case strings.TrimSpace(p.Name) == "":
		return fmt.Errorf("%w: name is required", ErrInvalidProfile)
	case p.Window <= 0:
		return fmt.Errorf("%w: %s: window must be positive", ErrInvalidProfile, p.Name)
	case p.Max <= 0:
		return fmt.Errorf("%w: %s: max must be positive", ErrInvalidProfile, p.Name)
	}
	return nil
}

// DefaultProfiles returns the built-in profile definitions.
func DefaultProfiles() []Profile {
	return []Profile{
		{
			Name:      ProfileStrict,
			Window:    time.Minute,
			Max:       30,
			KeyPrefix: "rl:strict:",
			Message:   "Too many requests, please try again in a minute.",
		},
		{
			Name:      ProfileModerate,
			Window:    15 * time.Minute,
			Max:       100,
			KeyPrefix: "rl:moderate:",
			Message:   "Too many requests, please try again later.",
		},
		{
			Name:      ProfileLenient,
			Window:    time.Hour,
			Max:       1000,
			KeyPrefix: "rl:lenient:",
			Message:   "Hourly request limit reached.",
		},
		{
			Name:      ProfileAPI,
			Window:    time.Minute,
			Max:       60,
			KeyPrefix: "rl:api:",
			Message:   "API rate limit exceeded.",
		},
	}
}

// Profiles is an immutable set of profiles keyed by name.
type Profiles struct {
	byName map[string]Profile
}

// NewProfiles builds the built-in profiles and applies overrides on top.
// An override replaces the built-in profile of the same name; zero fields
// in an override inherit the built-in value. A missing key prefix defaults
// to "rl:<name>:".
func NewProfiles(overrides ...Profile) (Profiles, error) {
	byName := make(map[string]Profile, len(overrides)+4)
	for _, p := range DefaultProfiles() {
		byName[p.Name] = p
	}

	for _, o := range overrides {
		name := strings.ToLower(strings.TrimSpace(o.Name))
		p := byName[name]
		p.Name = name
		if o.Window > 0 {
			p.Window = o.Window
		}
		if o.Max > 0 {
			p.Max = o.Max
		}
		if o.KeyPrefix != "" {
			p.KeyPrefix = o.KeyPrefix
		}
		if o.Message != "" {
			p.Message = o.Message
		}
		if p.KeyPrefix == "" {
			p.KeyPrefix = "rl:" + name + ":"
		}
		if p.Message == "" {
			p.Message = "Too many requests."
		}
		if err := p.Validate(); err != nil {
			return Profiles{}, err
		}
		byName[name] = p
	}

	return Profiles{byName: byName}, nil
}

// Lookup returns the profile registered under name.
func (ps Profiles) Lookup(name string) (Profile, bool) {
	p, ok := ps.byName[strings.ToLower(strings.TrimSpace(name))]
	return p, ok
}

// Names returns the registered profile names in sorted order.
func (ps Profiles) Names() []string {
	names := make([]string, 0, len(ps.byName))
	for n := range ps.byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
