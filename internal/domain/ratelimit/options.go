package ratelimit

import (
	"time"

	"github.com/okian/ehb/pkg/logger"
)

// Option configures a Limiter.
type Option func(*Limiter)

// WithProfiles replaces the built-in profile set.
func WithProfiles(p Profiles) Option {
	return func(l *Limiter) {
		if p.byName != nil {
			l.profiles = p
		}
	}
}

// WithLogger sets the logger used for fail-open warnings.
func WithLogger(log logger.Logger) Option {
	return func(l *Limiter) {
		if log != nil {
			l.log = log
		}
	}
}

// WithClock injects the clock used to compute reset times.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		if now != nil {
			l.now = now
		}
	}
}
