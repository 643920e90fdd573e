package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aniladanir/file-relay-service/internal/cache"
	"github.com/go-redis/redis/v8"
)

const pingAttempts = 5

type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a new redis cache that complies with cache interface
func NewRedisCache(ctx context.Context, addr string) (*RedisCache, error) {
	rClient := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	retryTicker := time.NewTicker(time.Second * 2)
	defer retryTicker.Stop()

	// retry ping
	var pingErr error
	for attempt := range pingAttempts {
		if pingErr = rClient.Ping(ctx).Err(); pingErr == nil {
			break
		}
		if attempt == pingAttempts-1 {
			break
		}
		select {
		case <-retryTicker.C:
		case <-ctx.Done():
			rClient.Close()
			return nil, ctx.Err()
		}
	}
	if pingErr != nil {
		rClient.Close()
		return nil, fmt.Errorf("failed to ping redis instance: %w", pingErr)
	}

	return &RedisCache{
		client: rClient,
	}, nil
}

func (r *RedisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

// Get returns cache.ErrMiss for absent keys
func (r *RedisCache) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", cache.ErrMiss
	}
	return val, err
}

func (r *RedisCache) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}
