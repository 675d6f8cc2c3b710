package ratelimit

import (
	"context"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// redisStore shares one admission window across gateway replicas. The counter
// is a plain INCR with the window applied as the key's TTL on first use, so a
// window that outlives its reset simply disappears from Redis.
type redisStore struct {
	client  *redis.Client
	timeout time.Duration
}

func newRedisStore(addr, username, password string, timeout time.Duration) *redisStore {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Username:     username,
		Password:     password,
		DialTimeout:  timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
		MaxRetries:   2,
	})
	return &redisStore{client: client, timeout: timeout}
}

func (s *redisStore) take(key string, limit int, window time.Duration) (bool, time.Duration, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return false, 0, fmt.Errorf("increment %s: %w", key, err)
	}
	if count == 1 {
		if err := s.client.Expire(ctx, key, window).Err(); err != nil {
			return false, 0, fmt.Errorf("set window on %s: %w", key, err)
		}
	}
	if count <= int64(limit) {
		return true, 0, nil
	}

	ttl, err := s.client.TTL(ctx, key).Result()
	if err != nil {
		return false, 0, fmt.Errorf("read window on %s: %w", key, err)
	}
	if ttl < 0 {
		return false, window, nil
	}
	return false, ttl, nil
}
