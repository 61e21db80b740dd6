// ratelimit_redis.go provides a Redis-backed Limiter so rate limits hold
// across multiple server instances. Used instead of the in-memory limiter
// when KF_REDIS_ADDR is configured; the limiter fails open when Redis is
// unreachable so an outage degrades to unlimited rather than denying logins.
package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
)

// RedisRateLimiter enforces a shared requests-per-minute limit via the
// GCRA-based redis_rate limiter.
type RedisRateLimiter struct {
	limiter *redis_rate.Limiter
	limit   redis_rate.Limit
	rpm     int
	timeout time.Duration
}

// NewRedisRateLimiter creates a limiter over an existing Redis client.
func NewRedisRateLimiter(client *redis.Client, cfg RateLimitConfig) *RedisRateLimiter {
	return &RedisRateLimiter{
		limiter: redis_rate.NewLimiter(client),
		limit: redis_rate.Limit{
			Rate:   cfg.RequestsPerMinute,
			Burst:  cfg.BurstSize,
			Period: time.Minute,
		},
		rpm:     cfg.RequestsPerMinute,
		timeout: 250 * time.Millisecond,
	}
}

// Allow implements Limiter.
func (rl *RedisRateLimiter) Allow(key string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), rl.timeout)
	defer cancel()

	res, err := rl.limiter.Allow(ctx, "ratelimit:"+key, rl.limit)
	if err != nil {
		slog.Warn("redis rate limiter unavailable, failing open", "error", err)
		return true
	}
	return res.Allowed > 0
}

// RemainingTokens implements Limiter.
func (rl *RedisRateLimiter) RemainingTokens(key string) int {
	ctx, cancel := context.WithTimeout(context.Background(), rl.timeout)
	defer cancel()

	// AllowN with n=0 peeks at the bucket without consuming.
	res, err := rl.limiter.AllowN(ctx, "ratelimit:"+key, rl.limit, 0)
	if err != nil {
		return rl.limit.Burst
	}
	return res.Remaining
}

// Limit implements Limiter.
func (rl *RedisRateLimiter) Limit() int {
	return rl.rpm
}
