package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/trestleapp/trestle/pkg/redis"
)

func TestConnect(t *testing.T) {
	t.Parallel()

	t.Run("connects to a live server", func(t *testing.T) {
		t.Parallel()

		mr := miniredis.RunT(t)
		client, err := redis.Connect(context.Background(), redis.Config{
			ConnectionURL:  "redis://" + mr.Addr(),
			RetryAttempts:  1,
			RetryInterval:  10 * time.Millisecond,
			ConnectTimeout: time.Second,
		})
		require.NoError(t, err)
		defer client.Close()

		require.NoError(t, redis.Healthcheck(client)(context.Background()))
	})

	t.Run("bad url", func(t *testing.T) {
		t.Parallel()

		_, err := redis.Connect(context.Background(), redis.Config{
			ConnectionURL:  "not a url",
			RetryAttempts:  1,
			RetryInterval:  10 * time.Millisecond,
			ConnectTimeout: time.Second,
		})
		require.ErrorIs(t, err, redis.ErrFailedToParseConnString)
	})

	t.Run("unreachable server", func(t *testing.T) {
		t.Parallel()

		_, err := redis.Connect(context.Background(), redis.Config{
			ConnectionURL:  "redis://127.0.0.1:1",
			RetryAttempts:  2,
			RetryInterval:  10 * time.Millisecond,
			ConnectTimeout: time.Second,
		})
		require.ErrorIs(t, err, redis.ErrNotReady)
	})

	t.Run("healthcheck fails after server stops", func(t *testing.T) {
		t.Parallel()

		mr := miniredis.RunT(t)
		client, err := redis.Connect(context.Background(), redis.Config{
			ConnectionURL:  "redis://" + mr.Addr(),
			RetryAttempts:  1,
			RetryInterval:  10 * time.Millisecond,
			ConnectTimeout: time.Second,
		})
		require.NoError(t, err)
		defer client.Close()

		mr.Close()
		require.ErrorIs(t, redis.Healthcheck(client)(context.Background()), redis.ErrHealthcheckFailed)
	})
}
