package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trestleapp/trestle/pkg/ratelimit"
)

func TestNewFixedWindow(t *testing.T) {
	t.Parallel()

	store := ratelimit.NewMemoryStore()

	_, err := ratelimit.NewFixedWindow(store, "login", 0, time.Minute)
	require.ErrorIs(t, err, ratelimit.ErrInvalidLimit)

	_, err = ratelimit.NewFixedWindow(store, "login", 5, 0)
	require.ErrorIs(t, err, ratelimit.ErrInvalidWindow)
}

func TestFixedWindow_MemoryStore(t *testing.T) {
	t.Parallel()

	t.Run("allows up to the limit then blocks", func(t *testing.T) {
		t.Parallel()

		limiter, err := ratelimit.NewFixedWindow(ratelimit.NewMemoryStore(), "login", 3, time.Minute)
		require.NoError(t, err)

		ctx := context.Background()
		for i := range 3 {
			res, err := limiter.Allow(ctx, "203.0.113.7")
			require.NoError(t, err)
			assert.True(t, res.Allowed, "attempt %d should be allowed", i+1)
			assert.Equal(t, 3-(i+1), res.Remaining)
		}

		res, err := limiter.Allow(ctx, "203.0.113.7")
		require.NoError(t, err)
		assert.False(t, res.Allowed)
		assert.Zero(t, res.Remaining)
		assert.Positive(t, res.RetryAfter())
	})

	t.Run("keys are independent", func(t *testing.T) {
		t.Parallel()

		limiter, err := ratelimit.NewFixedWindow(ratelimit.NewMemoryStore(), "login", 1, time.Minute)
		require.NoError(t, err)

		ctx := context.Background()
		res, err := limiter.Allow(ctx, "a")
		require.NoError(t, err)
		require.True(t, res.Allowed)

		res, err = limiter.Allow(ctx, "b")
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	})

	t.Run("window rollover clears the counter", func(t *testing.T) {
		t.Parallel()

		now := time.Now()
		store := ratelimit.NewMemoryStore().WithClock(func() time.Time { return now })
		limiter, err := ratelimit.NewFixedWindow(store, "login", 1, time.Minute)
		require.NoError(t, err)

		ctx := context.Background()
		res, err := limiter.Allow(ctx, "k")
		require.NoError(t, err)
		require.True(t, res.Allowed)

		res, err = limiter.Allow(ctx, "k")
		require.NoError(t, err)
		require.False(t, res.Allowed)

		now = now.Add(61 * time.Second)
		res, err = limiter.Allow(ctx, "k")
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	})

	t.Run("reset clears the counter", func(t *testing.T) {
		t.Parallel()

		limiter, err := ratelimit.NewFixedWindow(ratelimit.NewMemoryStore(), "login", 1, time.Minute)
		require.NoError(t, err)

		ctx := context.Background()
		_, err = limiter.Allow(ctx, "k")
		require.NoError(t, err)

		require.NoError(t, limiter.Reset(ctx, "k"))

		res, err := limiter.Allow(ctx, "k")
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	})
}

func TestFixedWindow_RedisStore(t *testing.T) {
	t.Parallel()

	newLimiter := func(t *testing.T, mr *miniredis.Miniredis, limit int) *ratelimit.FixedWindow {
		t.Helper()
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = client.Close() })

		limiter, err := ratelimit.NewFixedWindow(ratelimit.NewRedisStore(client), "login", limit, time.Minute)
		require.NoError(t, err)
		return limiter
	}

	t.Run("allows up to the limit then blocks", func(t *testing.T) {
		t.Parallel()

		mr := miniredis.RunT(t)
		limiter := newLimiter(t, mr, 2)

		ctx := context.Background()
		for range 2 {
			res, err := limiter.Allow(ctx, "203.0.113.7")
			require.NoError(t, err)
			require.True(t, res.Allowed)
		}

		res, err := limiter.Allow(ctx, "203.0.113.7")
		require.NoError(t, err)
		assert.False(t, res.Allowed)
	})

	t.Run("window rollover clears the counter", func(t *testing.T) {
		t.Parallel()

		mr := miniredis.RunT(t)
		limiter := newLimiter(t, mr, 1)

		ctx := context.Background()
		res, err := limiter.Allow(ctx, "k")
		require.NoError(t, err)
		require.True(t, res.Allowed)

		res, err = limiter.Allow(ctx, "k")
		require.NoError(t, err)
		require.False(t, res.Allowed)

		mr.FastForward(61 * time.Second)

		res, err = limiter.Allow(ctx, "k")
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	})

	t.Run("reset clears the counter", func(t *testing.T) {
		t.Parallel()

		mr := miniredis.RunT(t)
		limiter := newLimiter(t, mr, 1)

		ctx := context.Background()
		_, err := limiter.Allow(ctx, "k")
		require.NoError(t, err)
		require.NoError(t, limiter.Reset(ctx, "k"))

		res, err := limiter.Allow(ctx, "k")
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	})

	t.Run("store failure surfaces", func(t *testing.T) {
		t.Parallel()

		mr := miniredis.RunT(t)
		limiter := newLimiter(t, mr, 1)
		mr.Close()

		_, err := limiter.Allow(context.Background(), "k")
		require.ErrorIs(t, err, ratelimit.ErrStoreFailure)
	})
}
