package trust

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RateLimiter tracks per-user hourly request budgets.
type RateLimiter interface {
	// Take consumes one request and returns how many remain this hour and,
	// when the budget is exhausted, how long until it refills.
	Take(ctx context.Context, userID uuid.UUID) (remaining int, cooldown time.Duration, err error)
	// Remaining peeks without consuming.
	Remaining(ctx context.Context, userID uuid.UUID) (remaining int, cooldown time.Duration, err error)
}

const rateKeyPrefix = "trust:hourly:"

// RedisRateLimiter implements RateLimiter with an INCR+EXPIRE counter keyed
// per user. Counters are shared by all server instances.
type RedisRateLimiter struct {
	redis *redis.Client
	limit atomic.Int64
}

// NewRedisRateLimiter creates a limiter with the given hourly budget.
func NewRedisRateLimiter(redisClient *redis.Client, limit int) *RedisRateLimiter {
	l := &RedisRateLimiter{redis: redisClient}
	l.limit.Store(int64(limit))
	return l
}

// SetLimit swaps the hourly budget at runtime (admin settings change).
// Counters already running this hour keep their counts; only the threshold
// moves.
func (l *RedisRateLimiter) SetLimit(limit int) {
	l.limit.Store(int64(limit))
}

func (l *RedisRateLimiter) Take(ctx context.Context, userID uuid.UUID) (int, time.Duration, error) {
	key := rateKeyPrefix + userID.String()

	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, 0, err
	}
	if count == 1 {
		// First request this window starts the clock
		l.redis.Expire(ctx, key, time.Hour)
	}

	limit := int(l.limit.Load())
	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	if int(count) > limit {
		ttl, err := l.redis.TTL(ctx, key).Result()
		if err != nil || ttl < 0 {
			ttl = time.Hour
		}
		return 0, ttl, nil
	}
	return remaining, 0, nil
}

func (l *RedisRateLimiter) Remaining(ctx context.Context, userID uuid.UUID) (int, time.Duration, error) {
	key := rateKeyPrefix + userID.String()

	limit := int(l.limit.Load())
	count, err := l.redis.Get(ctx, key).Int64()
	if err == redis.Nil {
		return limit, 0, nil
	}
	if err != nil {
		return 0, 0, err
	}

	remaining := limit - int(count)
	if remaining > 0 {
		return remaining, 0, nil
	}

	ttl, err := l.redis.TTL(ctx, key).Result()
	if err != nil || ttl < 0 {
		ttl = time.Hour
	}
	return 0, ttl, nil
}
