package pricing

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const DefaultCacheTTL = 10 * time.Minute

// kv is the part of *redis.Client the cache uses.
type kv interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// CachedSource memoises hits of the wrapped source in redis. Misses are not
// cached so a newly synced mapping shows up on the next request.
type CachedSource struct {
	log  *zap.Logger
	next Source
	rdb  kv
	ttl  time.Duration
}

func NewCachedSource(log *zap.Logger, next Source, rdb kv, ttl time.Duration) *CachedSource {
	if log == nil {
		log = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedSource{log: log, next: next, rdb: rdb, ttl: ttl}
}

func (c *CachedSource) Name() string { return "cached-" + c.next.Name() }

func (c *CachedSource) Lookup(ctx context.Context, req Request) (string, error) {
	key := cacheKey(c.next.Name(), req)

	// A redis error other than a miss is treated like a miss.
	if id, err := c.rdb.Get(ctx, key).Result(); err == nil && id != "" {
		return id, nil
	}

	id, err := c.next.Lookup(ctx, req)
	if err != nil || id == "" {
		return id, err
	}
	if err := c.rdb.Set(ctx, key, id, c.ttl).Err(); err != nil {
		c.log.Debug("price cache write failed",
			zap.String("key", key),
			zap.Error(err))
	}
	return id, nil
}

func cacheKey(source string, req Request) string {
	return fmt.Sprintf("price:%s:%s:%s:%s", source, req.Mode, req.PlanID, req.Cycle)
}

// NewRedisClient parses a redis:// URL.
func NewRedisClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	return redis.NewClient(opts), nil
}
