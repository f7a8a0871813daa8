package retryq

import (
	"context"
	"errors"
	"strconv"
	"time"

	"echodeed/internal/domain"

	"github.com/redis/go-redis/v9"
)

const (
	scheduleKey = "fulfillment:retry:schedule"
	attemptsKey = "fulfillment:retry:attempts"
)

type redisQueue struct {
	client *redis.Client
}

// scheduleScript upserts the retry entry: ZADD overwrites retryAt,
// HINCRBY advances the attempt count. One round trip, atomic.
var scheduleScript = redis.NewScript(`
redis.call("ZADD", KEYS[1], ARGV[2], ARGV[1])
local attempts = redis.call("HINCRBY", KEYS[2], ARGV[1], 1)
return attempts
`)

func NewRedisQueue(addr, password string, db int) (domain.RetryQueue, error) {
	if addr == "" {
		return nil, errors.New("redis addr is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &redisQueue{client: client}, nil
}

func (q *redisQueue) Schedule(ctx context.Context, redemptionID string, retryAt time.Time) (domain.RetryQueueEntry, error) {
	score := strconv.FormatInt(retryAt.UnixMilli(), 10)
	attempts, err := scheduleScript.Run(ctx, q.client, []string{scheduleKey, attemptsKey}, redemptionID, score).Int()
	if err != nil {
		return domain.RetryQueueEntry{}, err
	}
	return domain.RetryQueueEntry{
		RedemptionID: redemptionID,
		RetryAt:      retryAt,
		Attempts:     attempts,
	}, nil
}

func (q *redisQueue) Due(ctx context.Context, now time.Time, maxAttempts int) ([]domain.RetryQueueEntry, error) {
	elapsed, err := q.elapsed(ctx, now)
	if err != nil {
		return nil, err
	}
	var due []domain.RetryQueueEntry
	for _, entry := range elapsed {
		if entry.Attempts < maxAttempts {
			due = append(due, entry)
		}
	}
	return due, nil
}

func (q *redisQueue) Prune(ctx context.Context, now time.Time, maxAttempts int) (int, error) {
	elapsed, err := q.elapsed(ctx, now)
	if err != nil {
		return 0, err
	}
	pruned := 0
	for _, entry := range elapsed {
		if entry.Attempts < maxAttempts {
			continue
		}
		if err := q.Remove(ctx, entry.RedemptionID); err != nil {
			return pruned, err
		}
		pruned++
	}
	return pruned, nil
}

func (q *redisQueue) Remove(ctx context.Context, redemptionID string) error {
	pipe := q.client.TxPipeline()
	pipe.ZRem(ctx, scheduleKey, redemptionID)
	pipe.HDel(ctx, attemptsKey, redemptionID)
	_, err := pipe.Exec(ctx)
	return err
}

func (q *redisQueue) elapsed(ctx context.Context, now time.Time) ([]domain.RetryQueueEntry, error) {
	members, err := q.client.ZRangeByScoreWithScores(ctx, scheduleKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return nil, err
	}
	entries := make([]domain.RetryQueueEntry, 0, len(members))
	for _, member := range members {
		id, ok := member.Member.(string)
		if !ok {
			continue
		}
		attempts, err := q.client.HGet(ctx, attemptsKey, id).Int()
		if err != nil && !errors.Is(err, redis.Nil) {
			return nil, err
		}
		entries = append(entries, domain.RetryQueueEntry{
			RedemptionID: id,
			RetryAt:      time.UnixMilli(int64(member.Score)),
			Attempts:     attempts,
		})
	}
	return entries, nil
}
