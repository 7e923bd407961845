package counter

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/okian/ehb/internal/domain/ratelimit"
	"github.com/okian/ehb/internal/domain/types"
)

func newCounter(t *testing.T) (*RedisCounter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := Dial(mr.Addr(), "", 0, WithTimeout(time.Second))
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestRedisCounterIncrement(t *testing.T) {
	c, mr := newCounter(t)
	ctx := context.Background()

	n, ttl, err := c.Increment(ctx, "rl:strict:ip:1", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
	require.Equal(t, time.Minute, ttl)

	n, ttl, err = c.Increment(ctx, "rl:strict:ip:1", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 2, n)
	require.LessOrEqual(t, ttl, time.Minute)
	require.Greater(t, ttl, time.Duration(0))

	require.Equal(t, time.Minute, mr.TTL("rl:strict:ip:1"))
}

func TestRedisCounterWindowExpires(t *testing.T) {
	c, mr := newCounter(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _, err := c.Increment(ctx, "k", time.Minute)
		require.NoError(t, err)
	}
	mr.FastForward(time.Minute)

	n, _, err := c.Increment(ctx, "k", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
}

func TestRedisCounterRearmsMissingTTL(t *testing.T) {
	c, mr := newCounter(t)
	require.NoError(t, mr.Set("k", "7"))

	n, ttl, err := c.Increment(context.Background(), "k", 30*time.Second)
	require.NoError(t, err)
	require.EqualValues(t, 8, n)
	require.Equal(t, 30*time.Second, ttl)
	require.Equal(t, 30*time.Second, mr.TTL("k"))
}

func TestRedisCounterConcurrent(t *testing.T) {
	c, _ := newCounter(t)
	ctx := context.Background()

	const n = 50
	var wg sync.WaitGroup
	seen := make(chan int64, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, _, err := c.Increment(ctx, "shared", time.Minute)
			if err == nil {
				seen <- v
			}
		}()
	}
	wg.Wait()
	close(seen)

	got := make(map[int64]bool, n)
	for v := range seen {
		require.False(t, got[v], "count %d returned twice", v)
		got[v] = true
	}
	require.Len(t, got, n)
}

func TestRedisCounterUnavailable(t *testing.T) {
	c, mr := newCounter(t)
	require.NoError(t, c.Ping(context.Background()))
	mr.Close()

	_, _, err := c.Increment(context.Background(), "k", time.Minute)
	require.Error(t, err)
	require.True(t, errors.Is(err, types.ErrDependencyUnavailable))
	require.True(t, errors.Is(c.Ping(context.Background()), types.ErrDependencyUnavailable))
}

func TestLimiterOverRedisFailsOpen(t *testing.T) {
	c, mr := newCounter(t)
	l := ratelimit.NewLimiter(c)
	ctx := context.Background()

	d, err := l.Allow(ctx, "ip:1", ratelimit.ProfileStrict)
	require.NoError(t, err)
	require.True(t, d.Allowed)
	require.EqualValues(t, 29, d.Remaining)

	mr.Close()
	d, err = l.Allow(ctx, "ip:1", ratelimit.ProfileStrict)
	require.NoError(t, err)
	require.True(t, d.Allowed)
	require.True(t, d.FailedOpen)
}
