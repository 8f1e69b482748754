// Package cache provides a small cache-aside helper over Redis for read-heavy
// catalog representations. A nil Redis client disables caching entirely, so
// the service runs fine without Redis.
package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTTL bounds how stale a cached representation may get.
const DefaultTTL = 15 * time.Minute

type Cache struct {
	rdb    *redis.Client
	logger *slog.Logger
}

// New creates a Cache. rdb may be nil, in which case every operation is a no-op.
func New(rdb *redis.Client, logger *slog.Logger) *Cache {
	return &Cache{rdb: rdb, logger: logger}
}

// Get unmarshals the cached value for key into dest. It returns false on a
// miss, on a decode failure, or when caching is disabled.
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) bool {
	if c == nil || c.rdb == nil {
		return false
	}
	cached, err := c.rdb.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	if err := json.Unmarshal([]byte(cached), dest); err != nil {
		c.logger.WarnContext(ctx, "Failed to decode cached value, dropping it",
			slog.String("key", key), slog.String("error", err.Error()))
		c.rdb.Del(ctx, key)
		return false
	}
	c.logger.DebugContext(ctx, "Cache hit", slog.String("key", key))
	return true
}

// Set stores the JSON encoding of value under key with the default TTL.
// Failures are logged and swallowed; the cache is best-effort.
func (c *Cache) Set(ctx context.Context, key string, value interface{}) {
	if c == nil || c.rdb == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.WarnContext(ctx, "Failed to encode value for cache",
			slog.String("key", key), slog.String("error", err.Error()))
		return
	}
	if err := c.rdb.Set(ctx, key, data, DefaultTTL).Err(); err != nil {
		c.logger.WarnContext(ctx, "Failed to write cache entry",
			slog.String("key", key), slog.String("error", err.Error()))
	}
}

// Invalidate removes the given keys after a write.
func (c *Cache) Invalidate(ctx context.Context, keys ...string) {
	if c == nil || c.rdb == nil || len(keys) == 0 {
		return
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		c.logger.WarnContext(ctx, "Failed to invalidate cache entries",
			slog.String("error", err.Error()))
	}
}
