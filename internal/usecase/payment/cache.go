package payment

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisDedupeCache remembers the outcome of recently processed events keyed
// by (provider, reference, raw status). Hits let identical webhook retries
// return without touching Postgres. Misses and errors fall through to the
// real engine.
type RedisDedupeCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisDedupeCache(rdb *redis.Client) *RedisDedupeCache {
	return &RedisDedupeCache{rdb: rdb, ttl: 24 * time.Hour}
}

func (c *RedisDedupeCache) Seen(ctx context.Context, key string) (string, bool) {
	if c.rdb == nil {
		return "", false
	}
	outcome, err := c.rdb.Get(ctx, "recon:"+key).Result()
	if err != nil {
		return "", false
	}
	return outcome, true
}

func (c *RedisDedupeCache) Remember(ctx context.Context, key, outcome string) {
	if c.rdb == nil {
		return
	}
	c.rdb.Set(ctx, "recon:"+key, outcome, c.ttl)
}
