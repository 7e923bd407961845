package ratelimit

import (
	"context"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/okian/ehb/internal/domain/types"
	"github.com/okian/ehb/pkg/logger"
	"github.com/okian/ehb/pkg/metrics"
)

// Response header names.
const (
	HeaderLimit      = "X-RateLimit-Limit"
	HeaderRemaining  = "X-RateLimit-Remaining"
	HeaderReset      = "X-RateLimit-Reset"
	HeaderRetryAfter = "Retry-After"
)

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed    bool
	Profile    Profile
	Limit      int64
	Remaining  int64
	ResetAt    time.Time
	RetryAfter time.Duration
	// FailedOpen is set when the counter store failed and the request was
	// let through without being counted.
	FailedOpen bool
}

// Headers returns the rate limit response headers for d. Retry-After is
// present only on rejections.
func (d Decision) Headers() map[string]string {
	h := map[string]string{
		HeaderLimit:     strconv.FormatInt(d.Limit, 10),
		HeaderRemaining: strconv.FormatInt(d.Remaining, 10),
		HeaderReset:     strconv.FormatInt(d.ResetAt.Unix(), 10),
	}
	if !d.Allowed {
		h[HeaderRetryAfter] = strconv.FormatInt(d.RetryAfterSeconds(), 10)
	}
	return h
}

// RetryAfterSeconds is RetryAfter rounded up to whole seconds, at least one.
func (d Decision) RetryAfterSeconds() int64 {
	secs := int64(math.Ceil(d.RetryAfter.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return secs
}

// Limiter enforces profiles against a shared Counter.
type Limiter struct {
	counter  Counter
	profiles Profiles
	log      logger.Logger
	now      func() time.Time
}

// NewLimiter creates a limiter over counter with the built-in profiles.
func NewLimiter(counter Counter, opts ...Option) *Limiter {
	defaults, _ := NewProfiles()
	l := &Limiter{
		counter:  counter,
		profiles: defaults,
		log:      logger.Nop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Profiles returns the profile set enforced by l.
func (l *Limiter) Profiles() Profiles {
	return l.profiles
}

// Allow counts one request for clientKey under the named profile. Counter
// failures never surface: the request is allowed and the decision is marked
// FailedOpen.
func (l *Limiter) Allow(ctx context.Context, clientKey, profileName string) (Decision, error) {
	if strings.TrimSpace(clientKey) == "" {
		return Decision{}, types.InvalidField("client_key", "is required")
	}
	p, ok := l.profiles.Lookup(profileName)
	if !ok {
		return Decision{}, ErrUnknownProfile
	}

	start := l.now()
	count, ttl, err := l.counter.Increment(ctx, p.KeyPrefix+clientKey, p.Window)
	metrics.RecordRateLimitLatency(float64(l.now().Sub(start).Microseconds()) / 1000)

	if err != nil {
		l.log.Warn(ctx, "rate limit store unavailable, allowing request",
			logger.String("profile", p.Name),
			logger.String("client_key", clientKey),
			logger.Error(err))
		metrics.RecordRateLimitStoreError()
		metrics.RecordRateLimitDecision(p.Name, metrics.OutcomeFailOpen)
		return Decision{
			Allowed:    true,
			Profile:    p,
			Limit:      p.Max,
			Remaining:  p.Max,
			ResetAt:    start.Add(p.Window),
			FailedOpen: true,
		}, nil
	}

	if ttl <= 0 {
		ttl = p.Window
	}
	d := Decision{
		Allowed:   count <= p.Max,
		Profile:   p,
		Limit:     p.Max,
		Remaining: max(p.Max-count, 0),
		ResetAt:   start.Add(ttl),
	}
	if !d.Allowed {
		d.RetryAfter = ttl
		metrics.RecordRateLimitDecision(p.Name, metrics.OutcomeRejected)
	} else {
		metrics.RecordRateLimitDecision(p.Name, metrics.OutcomeAllowed)
	}
	return d, nil
}
