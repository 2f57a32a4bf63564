// Package redisstore backs the login code store, the user directory and the
// vote ledger with Redis.
package redisstore

import (
	"context"
	"fmt"
	"time"

	"github.com/nft-voting-api/internal/config"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "nftvote:"

// NewClient connects to cfg.RedisAddr and pings it once.
func NewClient(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
	}
	return rdb, nil
}
