package database

import (
	"context"
	"time"

	"github.com/coachpo/swiperflix-gateway/pkg/common/config"
	"github.com/coachpo/swiperflix-gateway/pkg/common/logger"
	"github.com/redis/go-redis/v9"
)

// OpenRedis returns nil when no REDIS_ADDR is configured. A failed ping is
// logged but not fatal; callers treat cache errors as misses.
func OpenRedis(cfg *config.Config) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Log.WithError(err).Error("Failed to connect to Redis")
	} else {
		logger.Log.Info("Connected to Redis")
	}

	return client
}

func CloseRedis(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}
