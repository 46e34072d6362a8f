package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

const scanBatchSize = 100

// RedisBackend stores entries as plain Redis strings.
// Physical keys look like "<namespace><partition>:<key>".
type RedisBackend struct {
	client    *redis.Client
	namespace string
}

// NewRedisBackend creates a backend over an existing client
func NewRedisBackend(client *redis.Client, namespace string) *RedisBackend {
	return &RedisBackend{
		client:    client,
		namespace: namespace,
	}
}

func (b *RedisBackend) ForDevice(deviceID string) Store {
	return &redisStore{backend: b, deviceID: deviceID}
}

func (b *RedisBackend) Shared() Store {
	return &redisStore{backend: b}
}

// Ping verifies connectivity
func (b *RedisBackend) Ping(ctx context.Context) error {
	if err := b.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (b *RedisBackend) Close() error {
	return b.client.Close()
}

type redisStore struct {
	backend  *RedisBackend
	deviceID string
}

// physicalPrefix is the Redis key prefix of a partition
func (s *redisStore) physicalPrefix(shared bool) (string, error) {
	partition, err := partitionFor(s.deviceID, shared)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%s:", s.backend.namespace, partition), nil
}

func (s *redisStore) physicalKey(key string, shared bool) (string, error) {
	if err := checkKey(key); err != nil {
		return "", err
	}
	prefix, err := s.physicalPrefix(shared)
	if err != nil {
		return "", err
	}
	return prefix + key, nil
}

func (s *redisStore) Get(ctx context.Context, key string, shared bool) (*Entry, error) {
	k, err := s.physicalKey(key, shared)
	if err != nil {
		return nil, err
	}

	value, err := s.backend.client.Get(ctx, k).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	return &Entry{Key: key, Value: value, Shared: shared}, nil
}

func (s *redisStore) Set(ctx context.Context, key, value string, shared bool) error {
	k, err := s.physicalKey(key, shared)
	if err != nil {
		return err
	}
	if err := s.backend.client.Set(ctx, k, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (s *redisStore) Delete(ctx context.Context, key string, shared bool) error {
	k, err := s.physicalKey(key, shared)
	if err != nil {
		return err
	}
	// DEL on a missing key returns 0, not an error
	if err := s.backend.client.Del(ctx, k).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

// List returns logical keys starting with prefix, in SCAN order
func (s *redisStore) List(ctx context.Context, prefix string, shared bool) ([]string, error) {
	partitionPrefix, err := s.physicalPrefix(shared)
	if err != nil {
		return nil, err
	}

	pattern := escapeGlob(partitionPrefix+prefix) + "*"
	seen := make(map[string]struct{})
	keys := make([]string, 0)

	var cursor uint64
	for {
		var batch []string
		batch, cursor, err = s.backend.client.Scan(ctx, cursor, pattern, scanBatchSize).Result()
		if err != nil {
			return nil, fmt.Errorf("redis scan failed: %w", err)
		}
		for _, k := range batch {
			// SCAN may return a key more than once
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			keys = append(keys, strings.TrimPrefix(k, partitionPrefix))
		}
		if cursor == 0 {
			break
		}
	}

	return keys, nil
}

// escapeGlob escapes Redis MATCH metacharacters so user supplied names match literally
func escapeGlob(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
