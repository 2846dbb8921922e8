package kv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// Key prefix for the persistent store
	localKeyPrefix = "local:"

	// Key prefix for session stores; followed by the session id
	sessionKeyPrefix = "session:"
)

// RedisStore is a Store backed by Redis keys under a fixed prefix.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	owned  bool
}

// NewRedisClient connects to Redis and verifies the connection.
func NewRedisClient(ctx context.Context, addr, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return client, nil
}

// NewRedisLocal returns the persistent store. Keys never expire. The store
// owns the client and closes it on Close.
func NewRedisLocal(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, prefix: localKeyPrefix, owned: true}
}

// NewRedisSession returns a store scoped to one browser session. A fresh
// session id is generated per hub process, so a restart behaves like a new
// browser session. Keys expire after ttl to avoid leaking dead sessions.
func NewRedisSession(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: sessionKeyPrefix + uuid.NewString() + ":",
		ttl:    ttl,
	}
}

// Get retrieves a value by key
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Set stores a value, applying the session TTL when there is one
func (s *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	return s.client.Set(ctx, s.prefix+key, value, s.ttl).Err()
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.prefix+key).Err()
}

// Close closes the connection if this store owns it
func (s *RedisStore) Close() error {
	if !s.owned {
		return nil
	}
	return s.client.Close()
}
