// Package dedup provides the suppression cache used by publish-time
// duplicate detection and the periodic scanners. Keys live in Redis with
// a TTL; a key that sets is fresh, a key that already exists is a repeat.
package dedup

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Store is the minimal Redis surface the cache needs. The go-redis client
// satisfies it; tests use an in-memory fake.
type Store interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) *redis.BoolCmd
}

// Cache answers "have we seen this key inside its TTL window".
//
// It degrades open: when Redis is unreachable the answer is always
// "fresh". A duplicate notification is a nuisance, a silently dropped
// deadline alert is an incident.
type Cache struct {
	store  Store
	logger *zap.Logger
}

func NewCache(store Store, logger *zap.Logger) *Cache {
	return &Cache{store: store, logger: logger}
}

// Acquire returns true if the key was not present and is now held for
// ttl, false if it was already set inside its window.
func (c *Cache) Acquire(ctx context.Context, key string, ttl time.Duration) bool {
	ok, err := c.store.SetNX(ctx, key, 1, ttl).Result()
	if err != nil {
		c.logger.Warn("dedup store unavailable, allowing event through",
			zap.String("key", key), zap.Error(err))
		return true
	}
	return ok
}
