package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "ratelimit:"

// RedisLimiter shares fixed windows between instances through Redis.
type RedisLimiter struct {
	client redis.Cmdable
	limit  int
	period time.Duration
}

var _ Limiter = (*RedisLimiter)(nil)

// NewRedisLimiter allows limit requests per key in each period.
func NewRedisLimiter(client redis.Cmdable, limit int, period time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, limit: limit, period: period}
}

// Allow increments key's counter, starting the window on the first hit.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	k := keyPrefix + key

	count, err := l.client.Incr(ctx, k).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("redis incr: %w", err)
	}
	if count == 1 {
		if err := l.client.PExpire(ctx, k, l.period).Err(); err != nil {
			return Decision{}, fmt.Errorf("redis expire: %w", err)
		}
	}

	ttl, err := l.client.PTTL(ctx, k).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("redis pttl: %w", err)
	}
	if ttl < 0 {
		// Counter lost its expiry; restart the window.
		if err := l.client.PExpire(ctx, k, l.period).Err(); err != nil {
			return Decision{}, fmt.Errorf("redis expire: %w", err)
		}
		ttl = l.period
	}

	return decide(count, l.limit, ttl), nil
}
