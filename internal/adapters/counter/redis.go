// Package counter provides shared Counter stores for the rate limiter.
package counter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okian/ehb/internal/domain/ratelimit"
	"github.com/okian/ehb/internal/domain/types"
)

// incrScript increments the key and arms its expiry on creation. A key left
// without a TTL (for example by a crash between INCR and PEXPIRE in an older
// deployment) is re-armed so it cannot pin a client forever.
var incrScript = redis.NewScript(`
local c = redis.call('INCR', KEYS[1])
if c == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
  ttl = tonumber(ARGV[1])
end
return {c, ttl}
`)

var _ ratelimit.Counter = (*RedisCounter)(nil)

// RedisCounter is a ratelimit.Counter shared by every service instance.
type RedisCounter struct {
	client  redis.UniversalClient
	timeout time.Duration
}

// Option configures a RedisCounter.
type Option func(*RedisCounter)

// WithTimeout bounds each round trip to Redis.
func WithTimeout(d time.Duration) Option {
	return func(c *RedisCounter) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// NewRedisCounter wraps an existing client.
func NewRedisCounter(client redis.UniversalClient, opts ...Option) *RedisCounter {
	c := &RedisCounter{client: client, timeout: 250 * time.Millisecond}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Dial connects to a single Redis node.
func Dial(addr, password string, db int, opts ...Option) *RedisCounter {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return NewRedisCounter(client, opts...)
}

// Increment implements ratelimit.Counter.
func (c *RedisCounter) Increment(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	res, err := incrScript.Run(ctx, c.client, []string{key}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return 0, 0, fmt.Errorf("redis increment %q: %w: %w", key, types.ErrDependencyUnavailable, err)
	}
	if len(res) != 2 {
		return 0, 0, fmt.Errorf("redis increment %q: unexpected reply length %d: %w", key, len(res), types.ErrDependencyUnavailable)
	}
	return res[0], time.Duration(res[1]) * time.Millisecond, nil
}

// Ping checks connectivity.
func (c *RedisCounter) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w: %w", types.ErrDependencyUnavailable, err)
	}
	return nil
}

// Close releases the underlying connections.
func (c *RedisCounter) Close() error {
	if err := c.client.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
		return err
	}
	return nil
}
