package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/arturoeanton/aio-tracker/internal/port"
)

const (
	analyticsPrefix = "aio:analytics:"
	lockPrefix      = "aio:lock:"
	scanBatch       = 200
)

// unlockScript deletes the lock only when it is still held by this owner.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// RedisCache stores analytics results and scheduler locks in Redis.
type RedisCache struct {
	rdb   *redis.Client
	ttl   time.Duration
	owner string
}

var (
	_ port.AnalyticsCache = (*RedisCache)(nil)
	_ port.Locker         = (*RedisCache)(nil)
)

// NewRedisCache wraps a client. ttl <= 0 keeps entries until invalidated.
func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, ttl: ttl, owner: uuid.NewString()}
}

// Connect parses a redis:// URL and pings the server.
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

// Ping checks the connection.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func analyticsKey(projectID, key string) string {
	return analyticsPrefix + projectID + ":" + key
}

// Get decodes a cached value into dst.
func (c *RedisCache) Get(ctx context.Context, projectID, key string, dst any) (bool, error) {
	raw, err := c.rdb.Get(ctx, analyticsKey(projectID, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache get: %w", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("cache decode: %w", err)
	}
	return true, nil
}

// Set stores value as JSON.
func (c *RedisCache) Set(ctx context.Context, projectID, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}
	if err := c.rdb.Set(ctx, analyticsKey(projectID, key), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// InvalidateProject deletes every cached result of a project.
func (c *RedisCache) InvalidateProject(ctx context.Context, projectID string) error {
	pattern := analyticsPrefix + projectID + ":*"
	var cursor uint64
	for {
		keys, next, err := c.rdb.Scan(ctx, cursor, pattern, scanBatch).Result()
		if err != nil {
			return fmt.Errorf("cache scan: %w", err)
		}
		if len(keys) > 0 {
			if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("cache delete: %w", err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// TryLock acquires name for ttl if nobody holds it.
func (c *RedisCache) TryLock(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	ok, err := c.rdb.SetNX(ctx, lockPrefix+name, c.owner, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire lock %s: %w", name, err)
	}
	return ok, nil
}

// Unlock releases name if this instance still holds it.
func (c *RedisCache) Unlock(ctx context.Context, name string) error {
	if err := unlockScript.Run(ctx, c.rdb, []string{lockPrefix + name}, c.owner).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release lock %s: %w", name, err)
	}
	return nil
}
