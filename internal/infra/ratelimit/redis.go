package ratelimit

import (
	"context"
	"errors"
	"time"

	"echodeed/internal/domain"

	"github.com/redis/go-redis/v9"
)

type redisStore struct {
	client *redis.Client
	now    func() time.Time
}

// takeScript increments the per-key counter and stamps the window TTL on
// first use so the fixed window expires on its own.
var takeScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
return {count, ttl}
`)

func NewRedisStore(addr, password string, db int, now func() time.Time) (domain.RateLimitStore, error) {
	if addr == "" {
		return nil, errors.New("redis addr is required")
	}
	if now == nil {
		now = time.Now
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &redisStore{client: client, now: now}, nil
}

func (r *redisStore) Take(ctx context.Context, key string, window time.Duration) (domain.RateLimitRecord, error) {
	windowMillis := window.Milliseconds()
	if windowMillis <= 0 {
		windowMillis = 1000
	}
	result, err := takeScript.Run(ctx, r.client, []string{"ratelimit:" + key}, windowMillis).Result()
	if err != nil {
		return domain.RateLimitRecord{}, err
	}
	values, ok := result.([]any)
	if !ok || len(values) < 2 {
		return domain.RateLimitRecord{}, errors.New("unexpected redis rate limit response")
	}
	count, ok := values[0].(int64)
	if !ok {
		return domain.RateLimitRecord{}, errors.New("invalid redis counter response")
	}
	ttlMillis, _ := values[1].(int64)

	now := r.now()
	windowStart := now
	if ttlMillis > 0 {
		windowStart = now.Add(time.Duration(ttlMillis) * time.Millisecond).Add(-window)
	}
	return domain.RateLimitRecord{
		Count:       int(count),
		WindowStart: windowStart,
		LastRequest: now,
	}, nil
}

// Sweep is a no-op: every key carries the window TTL, so idle records
// expire server-side well inside the staleness horizon.
func (r *redisStore) Sweep(context.Context, time.Time) (int, error) {
	return 0, nil
}
