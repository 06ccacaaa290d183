package database

import (
	"context"
	"fmt"
	"time"

	"trianglefinder/logging"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisTimeout bounds connection setup
const DefaultRedisTimeout = 1500 * time.Millisecond

// RedisStore keeps each hash key as a redis list of records
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to addr ("host:port") using database db
func NewRedisStore(addr string, db int) *RedisStore {
	return NewRedisStoreWithOptions(&redis.Options{
		Addr:        addr,
		DB:          db,
		DialTimeout: DefaultRedisTimeout,
	})
}

// NewRedisStoreFromURL parses a redis:// URL
func NewRedisStoreFromURL(url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url %q: %w", url, err)
	}
	if opts.DialTimeout == 0 || opts.DialTimeout > DefaultRedisTimeout {
		opts.DialTimeout = DefaultRedisTimeout
	}
	return NewRedisStoreWithOptions(opts), nil
}

// NewRedisStoreWithOptions wraps a client built from opts
func NewRedisStoreWithOptions(opts *redis.Options) *RedisStore {
	logging.DebugLog("Using redis store at %s db %d", opts.Addr, opts.DB)
	return &RedisStore{client: redis.NewClient(opts)}
}

// AddMembers appends values to the list at key
func (s *RedisStore) AddMembers(ctx context.Context, key string, values ...string) error {
	if len(values) == 0 {
		return nil
	}
	args := make([]interface{}, len(values))
	for i, v := range values {
		args[i] = v
	}
	return s.client.RPush(ctx, key, args...).Err()
}

// GetMembers pipelines one LRANGE per key
func (s *RedisStore) GetMembers(ctx context.Context, keys []string) ([][]string, error) {
	out := make([][]string, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	cmds := make([]*redis.StringSliceCmd, len(keys))
	_, err := s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, k := range keys {
			cmds[i] = pipe.LRange(ctx, k, 0, -1)
		}
		return nil
	})
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("redis pipeline failed: %w", err)
	}

	for i, cmd := range cmds {
		vals, err := cmd.Result()
		if err != nil && err != redis.Nil {
			return nil, err
		}
		out[i] = vals
	}
	return out, nil
}

// Clear flushes the selected database
func (s *RedisStore) Clear(ctx context.Context) error {
	return s.client.FlushDB(ctx).Err()
}

// Ping checks the server answers
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the client
func (s *RedisStore) Close() error {
	return s.client.Close()
}
