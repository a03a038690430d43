package db

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/lexops/notify/internal/config"
)

// ConnectRedis creates a Redis client for the suppression cache and
// verifies connectivity. The cache degrades open, so a failed ping is
// surfaced to the caller to decide whether to continue without it.
func ConnectRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return client, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}
