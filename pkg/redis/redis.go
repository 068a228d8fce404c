// Package redis connects the application to Redis with startup retry
// and exposes a health check for the readiness probe. The client backs
// the login and password-reset rate limiters.
package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrFailedToParseConnString = errors.New("redis.errors.failed_to_parse_conn_string")
	ErrNotReady                = errors.New("redis.errors.not_ready")
	ErrHealthcheckFailed       = errors.New("redis.errors.healthcheck_failed")
)

// Config describes the Redis connection.
type Config struct {
	ConnectionURL  string        `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	RetryAttempts  int           `env:"REDIS_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval  time.Duration `env:"REDIS_RETRY_INTERVAL" envDefault:"5s"`
	ConnectTimeout time.Duration `env:"REDIS_CONNECT_TIMEOUT" envDefault:"30s"`
}

// Connect dials Redis, retrying until the server answers a ping or the
// attempts run out.
func Connect(ctx context.Context, cfg Config) (*redis.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	opt, err := redis.ParseURL(cfg.ConnectionURL)
	if err != nil {
		return nil, errors.Join(ErrFailedToParseConnString, err)
	}

	for range cfg.RetryAttempts {
		client := redis.NewClient(opt)
		if err := client.Ping(ctx).Err(); err == nil {
			return client, nil
		}
		_ = client.Close()

		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrNotReady, ctx.Err())
		case <-time.After(cfg.RetryInterval):
		}
	}

	return nil, ErrNotReady
}

// Healthcheck adapts the client to the func(ctx) error shape the
// readiness endpoint expects.
func Healthcheck(client *redis.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		if err := client.Ping(ctx).Err(); err != nil {
			return errors.Join(ErrHealthcheckFailed, err)
		}
		return nil
	}
}
