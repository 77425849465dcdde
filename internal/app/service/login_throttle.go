package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// LoginThrottle tracks failed logins per username.
type LoginThrottle interface {
	// Allowed reports whether a login attempt may proceed, and if not,
	// how long until it may.
	Allowed(ctx context.Context, username string) (bool, time.Duration, error)
	RecordFailure(ctx context.Context, username string) error
	Reset(ctx context.Context, username string) error
}

type NoopLoginThrottle struct{}

func (NoopLoginThrottle) Allowed(context.Context, string) (bool, time.Duration, error) {
	return true, 0, nil
}

func (NoopLoginThrottle) RecordFailure(context.Context, string) error { return nil }

func (NoopLoginThrottle) Reset(context.Context, string) error { return nil }

// RedisLoginThrottle counts failures in a fixed window that starts at
// the first failure. Once maxFailures is reached further attempts are
// refused until the window's key expires.
type RedisLoginThrottle struct {
	rdb         *redis.Client
	maxFailures int
	window      time.Duration
}

const loginFailureKeyPrefix = "login_failures:"

func NewRedisLoginThrottle(rdb *redis.Client, maxFailures int, window time.Duration) *RedisLoginThrottle {
	return &RedisLoginThrottle{rdb: rdb, maxFailures: maxFailures, window: window}
}

func (t *RedisLoginThrottle) key(username string) string {
	return loginFailureKeyPrefix + username
}

func (t *RedisLoginThrottle) Allowed(ctx context.Context, username string) (bool, time.Duration, error) {
	if t.maxFailures <= 0 {
		return true, 0, nil
	}

	count, err := t.rdb.Get(ctx, t.key(username)).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return true, 0, nil
		}
		return true, 0, fmt.Errorf("read login failures: %w", err)
	}
	if count < t.maxFailures {
		return true, 0, nil
	}

	ttl, err := t.rdb.TTL(ctx, t.key(username)).Result()
	if err != nil || ttl < 0 {
		ttl = t.window
	}
	return false, ttl, nil
}

func (t *RedisLoginThrottle) RecordFailure(ctx context.Context, username string) error {
	if t.maxFailures <= 0 {
		return nil
	}

	key := t.key(username)
	count, err := t.rdb.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("increment login failures: %w", err)
	}
	if count == 1 {
		if err := t.rdb.Expire(ctx, key, t.window).Err(); err != nil {
			return fmt.Errorf("expire login failures: %w", err)
		}
	}
	return nil
}

func (t *RedisLoginThrottle) Reset(ctx context.Context, username string) error {
	if t.maxFailures <= 0 {
		return nil
	}
	if err := t.rdb.Del(ctx, t.key(username)).Err(); err != nil {
		return fmt.Errorf("reset login failures: %w", err)
	}
	return nil
}
