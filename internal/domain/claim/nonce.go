package claim

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/funplanet/claim-api/internal/domain/challenge"
)

// NonceStore enforces single-use of issued challenges. The challenge package
// itself stays pure; expiry and one-time consumption live here.
type NonceStore interface {
	Issue(ctx context.Context, ch *challenge.Challenge) error
	// Consume atomically retrieves and deletes the challenge for a nonce and
	// checks the submitted message is byte-identical to the issued one.
	Consume(ctx context.Context, nonce, message string) error
}

const nonceKeyPrefix = "claim:challenge:"

// RedisNonceStore keeps issued challenges in Redis with a TTL. GETDEL makes
// consumption atomic across server instances.
type RedisNonceStore struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewRedisNonceStore(redisClient *redis.Client, ttl time.Duration) *RedisNonceStore {
	return &RedisNonceStore{redis: redisClient, ttl: ttl}
}

func (s *RedisNonceStore) Issue(ctx context.Context, ch *challenge.Challenge) error {
	return s.redis.Set(ctx, nonceKeyPrefix+ch.Nonce, ch.Message, s.ttl).Err()
}

func (s *RedisNonceStore) Consume(ctx context.Context, nonce, message string) error {
	stored, err := s.redis.GetDel(ctx, nonceKeyPrefix+nonce).Result()
	if err == redis.Nil {
		return ErrChallengeExpired
	}
	if err != nil {
		return err
	}
	if stored != message {
		return ErrChallengeMismatch
	}
	return nil
}
