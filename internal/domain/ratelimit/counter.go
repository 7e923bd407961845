package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Counter is the shared store behind the limiter. Increment atomically adds
// one to key and returns the new count with the key's remaining lifetime.
// The expiry is set only when the key is created, which makes each key a
// fixed window. A zero or negative ttl means the store reported none.
type Counter interface {
	Increment(ctx context.Context, key string, window time.Duration) (count int64, ttl time.Duration, err error)
}

type memoryEntry struct {
	count     int64
	expiresAt time.Time
}

// MemoryCounter is a process-local Counter. It is exact for a single
// instance and is used by tests and the "memory" backend.
type MemoryCounter struct {
	mu        sync.Mutex
	entries   map[string]*memoryEntry
	now       func() time.Time
	sweepEach time.Duration
	nextSweep time.Time
}

// MemoryOption configures a MemoryCounter.
type MemoryOption func(*MemoryCounter)

// WithMemoryClock injects the clock used for expiry.
func WithMemoryClock(now func() time.Time) MemoryOption {
	return func(c *MemoryCounter) {
		if now != nil {
			c.now = now
		}
	}
}

// WithSweepInterval sets how often expired entries are purged.
func WithSweepInterval(d time.Duration) MemoryOption {
	return func(c *MemoryCounter) {
		if d > 0 {
			c.sweepEach = d
		}
	}
}

// NewMemoryCounter creates an empty in-memory counter.
func NewMemoryCounter(opts ...MemoryOption) *MemoryCounter {
	c := &MemoryCounter{
		entries:   make(map[string]*memoryEntry),
		now:       time.Now,
		sweepEach: time.Minute,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.nextSweep = c.now().Add(c.sweepEach)
	return c
}

// Increment implements Counter.
func (c *MemoryCounter) Increment(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if !now.Before(c.nextSweep) {
		c.sweepLocked(now)
		c.nextSweep = now.Add(c.sweepEach)
	}

	e, ok := c.entries[key]
	if !ok || !now.Before(e.expiresAt) {
		e = &memoryEntry{expiresAt: now.Add(window)}
		c.entries[key] = e
	}
	e.count++

	return e.count, e.expiresAt.Sub(now), nil
}

// Len returns the number of tracked keys, expired or not.
func (c *MemoryCounter) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// sweepLocked drops expired entries. Caller holds c.mu.
func (c *MemoryCounter) sweepLocked(now time.Time) {
	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
		}
	}
}
