package repository

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionCache remembers the provider redirect URL issued for a given
// checkout idempotency key, so re-submits of an unmodified cart reuse the
// existing external session instead of round-tripping to the provider.
type SessionCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, url string, ttl time.Duration) error
}

type RedisSessionCache struct {
	client *redis.Client
}

func NewRedisSessionCache(client *redis.Client) *RedisSessionCache {
	return &RedisSessionCache{client: client}
}

func (c *RedisSessionCache) cacheKey(key string) string {
	return "checkout:session:" + key
}

func (c *RedisSessionCache) Get(ctx context.Context, key string) (string, error) {
	val, err := c.client.Get(ctx, c.cacheKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

func (c *RedisSessionCache) Set(ctx context.Context, key, url string, ttl time.Duration) error {
	return c.client.Set(ctx, c.cacheKey(key), url, ttl).Err()
}
