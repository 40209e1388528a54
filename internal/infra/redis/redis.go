package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sifan077/PowerOTP/config"
	"github.com/sifan077/PowerOTP/internal/infra/backoff"
	"go.uber.org/zap"
)

const pingTimeout = 3 * time.Second

// NewClient builds a redis client using app config and waits for PING to succeed.
func NewClient(ctx context.Context, cfg config.RedisConfig, log *zap.Logger) (*redis.Client, error) {
	rdb := redis.NewClient(Options(cfg))

	err := backoff.Connect(ctx, log, "redis", func(ctx context.Context) error {
		return Ping(ctx, rdb)
	})
	if err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: %w", err)
	}

	return rdb, nil
}

// Options converts app config into go-redis options.
func Options(cfg config.RedisConfig) *redis.Options {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}

	port := cfg.Port
	if port == 0 {
		port = 6379
	}

	return &redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

// Ping issues a PING bounded by a short timeout.
func Ping(ctx context.Context, rdb *redis.Client) error {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return rdb.Ping(pingCtx).Err()
}
