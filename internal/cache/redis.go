package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache is a BalanceCache backed by Redis with JSON values.
type RedisCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

var _ BalanceCache = (*RedisCache)(nil)

// NewRedisCache wraps an existing client. Entries expire after ttl.
func NewRedisCache(client redis.Cmdable, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

// Get retrieves and decodes a cached entry.
func (c *RedisCache) Get(ctx context.Context, groupID string) (*Entry, bool, error) {
	val, err := c.client.Get(ctx, BalanceKey(groupID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(val, &entry); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached balances: %w", err)
	}
	if entry.Summary == nil {
		return nil, false, errors.New("cached balances have no summary")
	}
	return &entry, true, nil
}

// Set stores an entry with the cache TTL.
func (c *RedisCache) Set(ctx context.Context, groupID string, entry *Entry) error {
	b, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode balances: %w", err)
	}
	if err := c.client.Set(ctx, BalanceKey(groupID), b, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Invalidate deletes a group's entry. Missing keys are not an error.
func (c *RedisCache) Invalidate(ctx context.Context, groupID string) error {
	if err := c.client.Del(ctx, BalanceKey(groupID)).Err(); err != nil {
		return fmt.Errorf("redis delete: %w", err)
	}
	return nil
}
