package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// ConnectRedis opens a client and pings it once.
func ConnectRedis(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return rdb, nil
}

// JSONCache stores JSON values under a key prefix.
type JSONCache struct {
	R      redis.Cmdable
	Prefix string
}

// New wraps r. Every key is stored under prefix.
func New(r redis.Cmdable, prefix string) *JSONCache {
	return &JSONCache{R: r, Prefix: prefix}
}

// Get decodes the cached value into dst. A miss returns false with no error.
func (c *JSONCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	b, err := c.R.Get(ctx, c.Prefix+key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(b, dst)
}

// Set stores v as JSON for ttl.
func (c *JSONCache) Set(ctx context.Context, key string, v any, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.R.Set(ctx, c.Prefix+key, b, ttl).Err()
}
