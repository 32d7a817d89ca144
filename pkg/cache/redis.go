package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultNamespace prefixes every Redis key written by the store.
const DefaultNamespace = "workout:"

// scanCount is the COUNT hint used for SCAN iterations.
const scanCount = 500

// RedisStore shares entries between instances through Redis.
//
// Keys layout:
//
//	<ns>k:<key>  - entries
//	<ns>t:<tag>  - tag sets (members are entry keys without namespace)
type RedisStore struct {
	redis     *redis.Client
	ttl       time.Duration
	namespace string
}

// NewRedisStore creates a store with Redis backend.
func NewRedisStore(redisClient *redis.Client, ttl time.Duration) *RedisStore {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{
		redis:     redisClient,
		ttl:       ttl,
		namespace: DefaultNamespace,
	}
}

// WithNamespace returns a copy of the store writing under another namespace.
func (s *RedisStore) WithNamespace(ns string) *RedisStore {
	c := *s
	c.namespace = ns
	return &c
}

func (s *RedisStore) entryKey(key string) string {
	return s.namespace + "k:" + key
}

func (s *RedisStore) tagKey(tag string) string {
	return s.namespace + "t:" + tag
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.redis.Get(ctx, s.entryKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return data, nil
}

// Set implements Store.
func (s *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	if err := s.redis.Set(ctx, s.entryKey(key), value, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Delete implements Store.
func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, key := range keys {
		full[i] = s.entryKey(key)
	}
	if err := s.redis.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// KeysWithPrefix implements Store using SCAN, never KEYS.
func (s *RedisStore) KeysWithPrefix(ctx context.Context, prefix string) ([]string, error) {
	base := s.entryKey("")
	full, err := s.scan(ctx, base+escapeGlob(prefix)+"*")
	if err != nil {
		return nil, err
	}
	keys := make([]string, len(full))
	for i, k := range full {
		keys[i] = strings.TrimPrefix(k, base)
	}
	return keys, nil
}

// Tag implements Store. Tag sets expire with the entries they index.
func (s *RedisStore) Tag(ctx context.Context, key string, tags ...string) error {
	if len(tags) == 0 {
		return nil
	}
	pipe := s.redis.Pipeline()
	for _, tag := range tags {
		pipe.SAdd(ctx, s.tagKey(tag), key)
		pipe.Expire(ctx, s.tagKey(tag), s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis tag: %w", err)
	}
	return nil
}

// DrainTag implements Store. Members and removal happen in one transaction.
func (s *RedisStore) DrainTag(ctx context.Context, tag string) ([]string, error) {
	var members *redis.StringSliceCmd
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		members = pipe.SMembers(ctx, s.tagKey(tag))
		pipe.Del(ctx, s.tagKey(tag))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("redis drain tag: %w", err)
	}
	return members.Val(), nil
}

// Flush implements Store. Only keys under the namespace are removed.
func (s *RedisStore) Flush(ctx context.Context) error {
	keys, err := s.scan(ctx, escapeGlob(s.namespace)+"*")
	if err != nil {
		return err
	}
	for start := 0; start < len(keys); start += scanCount {
		end := start + scanCount
		if end > len(keys) {
			end = len(keys)
		}
		if err := s.redis.Del(ctx, keys[start:end]...).Err(); err != nil {
			return fmt.Errorf("redis flush: %w", err)
		}
	}
	return nil
}

// Ping implements Store.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.redis.Ping(ctx).Err()
}

// TTL implements Store.
func (s *RedisStore) TTL() time.Duration {
	return s.ttl
}

func (s *RedisStore) scan(ctx context.Context, match string) ([]string, error) {
	var keys []string
	iter := s.redis.Scan(ctx, 0, match, scanCount).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan: %w", err)
	}
	return keys, nil
}

// escapeGlob escapes the characters SCAN MATCH treats as patterns.
func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
