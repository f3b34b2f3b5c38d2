package directory

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/caseaccessio/api/internal/app"
	"github.com/caseaccessio/api/internal/infra/redis"
	"github.com/caseaccessio/api/pkg/logger"
)

// RedisCache caches resolved directory users in Redis. Entries are short
// lived: group membership changes in the provider must take effect within
// the TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *logger.Logger
}

// NewRedisCache creates a directory cache with the given TTL.
func NewRedisCache(client *redis.Client, ttl time.Duration, log *logger.Logger) *RedisCache {
	if ttl == 0 {
		ttl = 5 * time.Minute
	}
	return &RedisCache{client: client, ttl: ttl, log: log.With("component", "directory_cache")}
}

func (c *RedisCache) key(suffix string) string {
	return "directory:user:" + suffix
}

// Get implements Cache.
func (c *RedisCache) Get(ctx context.Context, key string) (*app.DirectoryUser, bool) {
	raw, err := c.client.Get(ctx, c.key(key))
	if errors.Is(err, redis.ErrKeyNotFound) {
		return nil, false
	}
	if err != nil {
		c.log.Warn("directory cache read failed", "error", err)
		return nil, false
	}
	var user app.DirectoryUser
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		c.log.Warn("directory cache entry corrupt", "error", err)
		return nil, false
	}
	return &user, true
}

// Set implements Cache. Failures are logged and swallowed; the cache is an
// optimisation, never a dependency.
func (c *RedisCache) Set(ctx context.Context, key string, user *app.DirectoryUser) {
	raw, err := json.Marshal(user)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, c.key(key), string(raw), c.ttl); err != nil {
		c.log.Warn("directory cache write failed", "error", err)
	}
}
