package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sethvargo/go-retry"
)

type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// ConnectRedis returns a client once the server answers PING.
func ConnectRedis(ctx context.Context, opts RedisOptions, log *slog.Logger) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	backoff := retry.WithMaxRetries(5, retry.NewExponential(250*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn("redis not ready, retrying", "addr", opts.Addr, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	log.Info("connected to Redis", "addr", opts.Addr)
	return rdb, nil
}
