package streaming

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "stream:"

// URLCache remembers resolved playback links for a while.
type URLCache interface {
	Get(ctx context.Context, videoID string) (string, bool, error)
	Set(ctx context.Context, videoID, url string, ttl time.Duration) error
}

type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Get(ctx context.Context, videoID string) (string, bool, error) {
	url, err := c.client.Get(ctx, cacheKeyPrefix+videoID).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return url, true, nil
}

func (c *RedisCache) Set(ctx context.Context, videoID, url string, ttl time.Duration) error {
	return c.client.Set(ctx, cacheKeyPrefix+videoID, url, ttl).Err()
}
