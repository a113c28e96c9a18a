package claim

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// CapGuard enforces the per-age-group and global daily payout caps. These are
// soft caps: the read-compare-increment sequence tolerates rare small
// overshoot under true concurrency rather than serializing every claim
// through a lock.
type CapGuard interface {
	Reserve(ctx context.Context, userID uuid.UUID, ageGroup string, amount int64) error
	Release(ctx context.Context, userID uuid.UUID, amount int64)
}

const (
	userCapKeyPrefix   = "claim:cap:user:"
	globalCapKeyPrefix = "claim:cap:global:"
)

// RedisCapGuard keeps daily counters in Redis, keyed by UTC date so they
// roll over naturally at midnight.
type RedisCapGuard struct {
	redis *redis.Client

	mu         sync.RWMutex
	ageCaps    map[string]int64
	defaultCap int64
	globalCap  int64
}

// NewRedisCapGuard creates the guard. ageCaps maps age groups to their daily
// per-user limit; users without a known group fall back to defaultCap.
func NewRedisCapGuard(redisClient *redis.Client, ageCaps map[string]int64, defaultCap, globalCap int64) *RedisCapGuard {
	return &RedisCapGuard{redis: redisClient, ageCaps: ageCaps, defaultCap: defaultCap, globalCap: globalCap}
}

// SetCaps swaps the limits at runtime (admin settings change). Counters in
// Redis are untouched; only the thresholds move.
func (g *RedisCapGuard) SetCaps(ageCaps map[string]int64, defaultCap, globalCap int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.ageCaps = ageCaps
	g.defaultCap = defaultCap
	g.globalCap = globalCap
}

func (g *RedisCapGuard) capFor(ageGroup string) int64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if cap, ok := g.ageCaps[ageGroup]; ok {
		return cap
	}
	return g.defaultCap
}

func (g *RedisCapGuard) globalLimit() int64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.globalCap
}

func dayKey(prefix, suffix string) string {
	return fmt.Sprintf("%s%s:%s", prefix, time.Now().UTC().Format("2006-01-02"), suffix)
}

// Reserve checks both counters then increments them. The check and increment
// are not atomic together; see the soft-cap note on CapGuard.
func (g *RedisCapGuard) Reserve(ctx context.Context, userID uuid.UUID, ageGroup string, amount int64) error {
	userKey := dayKey(userCapKeyPrefix, userID.String())
	globalKey := dayKey(globalCapKeyPrefix, "all")

	userUsed, err := g.redis.Get(ctx, userKey).Int64()
	if err != nil && err != redis.Nil {
		return err
	}
	if userUsed+amount > g.capFor(ageGroup) {
		return ErrDailyCapExceeded
	}

	globalUsed, err := g.redis.Get(ctx, globalKey).Int64()
	if err != nil && err != redis.Nil {
		return err
	}
	if limit := g.globalLimit(); limit > 0 && globalUsed+amount > limit {
		log.Warn().Int64("global_used", globalUsed).Int64("amount", amount).Msg("global daily distribution cap reached")
		return ErrDailyCapExceeded
	}

	pipe := g.redis.TxPipeline()
	pipe.IncrBy(ctx, userKey, amount)
	pipe.Expire(ctx, userKey, 48*time.Hour)
	pipe.IncrBy(ctx, globalKey, amount)
	pipe.Expire(ctx, globalKey, 48*time.Hour)
	_, err = pipe.Exec(ctx)
	return err
}

// Release returns reserved budget after a rollback. Best effort: a failed
// decrement only makes the soft cap slightly more conservative for the day.
func (g *RedisCapGuard) Release(ctx context.Context, userID uuid.UUID, amount int64) {
	pipe := g.redis.TxPipeline()
	pipe.DecrBy(ctx, dayKey(userCapKeyPrefix, userID.String()), amount)
	pipe.DecrBy(ctx, dayKey(globalCapKeyPrefix, "all"), amount)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Warn().Err(err).Str("user_id", userID.String()).Msg("failed to release daily cap reservation")
	}
}
