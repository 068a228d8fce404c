package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// incrScript bumps the counter and starts the window TTL atomically, so
// two racing requests cannot leave a counter without an expiry.
var incrScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
return {count, ttl}
`)

// RedisStore keeps counters in Redis so every app instance sees the
// same attempt counts.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) IncrementAndGet(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	res, err := incrScript.Run(ctx, s.client, []string{key}, window.Milliseconds()).Slice()
	if err != nil {
		return 0, 0, err
	}
	if len(res) != 2 {
		return 0, 0, fmt.Errorf("unexpected script result length %d", len(res))
	}

	count, ok := res[0].(int64)
	if !ok {
		return 0, 0, fmt.Errorf("unexpected count type %T", res[0])
	}
	ttlMs, ok := res[1].(int64)
	if !ok {
		return 0, 0, fmt.Errorf("unexpected ttl type %T", res[1])
	}

	return count, time.Duration(ttlMs) * time.Millisecond, nil
}

func (s *RedisStore) Reset(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}
