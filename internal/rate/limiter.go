package rate

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds request limiter tuning parameters.
type Config struct {
	MaxRequests int
	Window      time.Duration
}

// Limiter enforces a per-IP fixed-window budget on the token-request
// endpoints using Redis counters. It supplements, and never replaces, the
// per-user re-issuance cooldown stored on the user record.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a request [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	return &Limiter{
		redis:  redisClient,
		config: cfg,
	}
}

// Check records one request for the scope+IP pair and reports whether the
// window budget is exhausted. An empty IP is not throttled.
func (l *Limiter) Check(ctx context.Context, scope, ip string) error {
	if l == nil || ip == "" {
		return nil
	}

	count, err := l.incrementWithTTL(ctx, requestKey(scope, ip), l.config.Window)
	if err != nil {
		return err
	}
	if count > int64(l.config.MaxRequests) {
		return ErrRateLimited
	}

	return nil
}

// Reset clears the counter for the scope+IP pair.
func (l *Limiter) Reset(ctx context.Context, scope, ip string) error {
	if l == nil || ip == "" {
		return nil
	}

	if err := l.redis.Del(ctx, requestKey(scope, ip)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}

func (l *Limiter) incrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed-window semantics: set TTL only for the first hit in the window.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return count, nil
}

func requestKey(scope, ip string) string {
	return "agr:" + scope + ":" + ip
}
