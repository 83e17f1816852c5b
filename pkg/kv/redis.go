package kv

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisStore backs the key-value abstraction with Redis. Prefix scans use
// SCAN with MATCH, paging the cursor internally.
type RedisStore struct {
	client    *redis.Client
	scanCount int64
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(cfg Config) (*RedisStore, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	if cfg.RedisPassword != "" {
		opts.Password = cfg.RedisPassword
	}
	if cfg.RedisDB >= 0 {
		opts.DB = cfg.RedisDB
	}
	if cfg.RedisPoolSize > 0 {
		opts.PoolSize = cfg.RedisPoolSize
	}

	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	scanCount := int64(cfg.ScanCount)
	if scanCount <= 0 {
		scanCount = 100
	}

	return &RedisStore{client: client, scanCount: scanCount}, nil
}

// Get retrieves a value. A missing key is not an error.
func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	} else if err != nil {
		return "", false, fmt.Errorf("redis get failed: %w", err)
	}
	return val, true, nil
}

// Put stores a value with no expiration. Record lifetimes (sessions) are
// enforced at read time, not by the store.
func (s *RedisStore) Put(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// Delete removes a key; deleting an absent key is a no-op.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del failed: %w", err)
	}
	return nil
}

// Scan returns a lazy iterator over all keys under prefix.
func (s *RedisStore) Scan(ctx context.Context, prefix string) Iterator {
	pattern := escapeGlob(prefix) + "*"
	return &redisIterator{
		iter:   s.client.Scan(ctx, 0, pattern, s.scanCount).Iterator(),
		prefix: prefix,
	}
}

// Ping checks connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

type redisIterator struct {
	iter   *redis.ScanIterator
	prefix string
	key    string
	err    error
}

func (it *redisIterator) Next(ctx context.Context) bool {
	for it.iter.Next(ctx) {
		key := it.iter.Val()
		// MATCH is a glob; re-check the literal prefix in case a key
		// contains glob metacharacters the escape missed.
		if !strings.HasPrefix(key, it.prefix) {
			continue
		}
		it.key = key
		return true
	}
	it.err = it.iter.Err()
	return false
}

func (it *redisIterator) Key() string { return it.key }
func (it *redisIterator) Err() error  { return it.err }

// escapeGlob escapes Redis MATCH metacharacters in a literal prefix.
func escapeGlob(s string) string {
	r := strings.NewReplacer(`*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`, `\`, `\\`)
	return r.Replace(s)
}
