package db

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"desco-report-backend/config"
)

// ConnectRedis opens the Redis connection used for the token denylist and
// verifies it with a ping.
func ConnectRedis(cfg *config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}
