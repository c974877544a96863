package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"stockcollector/internal/util"
)

// Compile-time interface check.
var _ StateStore = (*RedisStateStore)(nil)

// RedisStateStore implements StateStore with one Redis string per key,
// namespaced by a prefix.
type RedisStateStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStateStore wraps an existing client.
func NewRedisStateStore(client redis.UniversalClient, prefix string) *RedisStateStore {
	return &RedisStateStore{client: client, prefix: prefix}
}

// DialRedis connects to addr and pings it, retrying while the server comes
// up.
func DialRedis(ctx context.Context, addr, password string, db int, prefix string) (*RedisStateStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	err := util.Retry(ctx, 3, 500*time.Millisecond, func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis %s: %w", addr, err)
	}
	return NewRedisStateStore(client, prefix), nil
}

// Get returns the value stored for key.
func (s *RedisStateStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.Get(ctx, s.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading state %q: %w", key, err)
	}
	return v, true, nil
}

// Put writes values in a MULTI/EXEC transaction.
func (s *RedisStateStore) Put(ctx context.Context, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for key, value := range values {
			if value == "" {
				pipe.Del(ctx, s.prefix+key)
				continue
			}
			pipe.Set(ctx, s.prefix+key, value, 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("writing state: %w", err)
	}
	return nil
}

// Close closes the client.
func (s *RedisStateStore) Close() error {
	return s.client.Close()
}
