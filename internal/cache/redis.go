// internal/cache/redis.go
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/jason-s-yu/pileup/internal/config"
	"github.com/redis/go-redis/v9"
)

// NewClient builds a Redis client from cfg without contacting the server.
// go-redis dials lazily and redials on demand, so a store that is down at
// startup is picked up again on the next command.
func NewClient(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}

// Connect builds a client and pings it once. The client is returned even when
// the ping fails so the caller can keep running memory-only.
func Connect(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	rdb := NewClient(cfg)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return rdb, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.RedisAddr, err)
	}
	return rdb, nil
}
