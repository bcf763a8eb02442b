package enrichment

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yungbote/courseforge/internal/platform/logger"
)

// Cache memoizes non-empty references in redis, keyed by topic slug.
// Redis failures degrade to calling the wrapped Lookup.
type Cache struct {
	inner  Lookup
	rdb    redis.UniversalClient
	ttl    time.Duration
	prefix string
	log    *logger.Logger
}

func NewCache(inner Lookup, rdb redis.UniversalClient, ttl time.Duration, log *logger.Logger) *Cache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Cache{inner: inner, rdb: rdb, ttl: ttl, prefix: "courseforge:reference:", log: log.Named("reference_cache")}
}

func (c *Cache) Reference(ctx context.Context, topic string) (string, error) {
	key := c.prefix + Slug(topic)
	val, err := c.rdb.Get(ctx, key).Result()
	switch {
	case err == nil:
		return val, nil
	case !errors.Is(err, redis.Nil):
		c.log.Warn("reference cache read failed", "key", key, "error", err)
	}

	text, err := c.inner.Reference(ctx, topic)
	if err != nil || text == "" {
		return text, err
	}
	if err := c.rdb.Set(ctx, key, text, c.ttl).Err(); err != nil {
		c.log.Warn("reference cache write failed", "key", key, "error", err)
	}
	return text, nil
}
