package sink

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisOptions struct {
	// URL is the connection string, e.g. "redis://localhost:6379/0".
	URL string
	// Prefix namespaces every key; defaults to "graphjson".
	Prefix string
	// TTL expires stored documents; zero keeps them forever.
	TTL            time.Duration
	ConnectTimeout time.Duration
}

// RedisStore stores each document under prefix:doc:runID/path and indexes the
// paths of a run in the set prefix:run:runID.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisStore(opts RedisOptions) (*RedisStore, error) {
	if opts.URL == "" {
		opts.URL = "redis://localhost:6379"
	}
	if opts.ConnectTimeout == 0 {
		opts.ConnectTimeout = 5 * time.Second
	}
	prefix := strings.TrimSpace(opts.Prefix)
	if prefix == "" {
		prefix = "graphjson"
	}

	redisOpts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	redisOpts.DialTimeout = opts.ConnectTimeout
	client := redis.NewClient(redisOpts)

	ctx, cancel := context.WithTimeout(context.Background(), opts.ConnectTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &RedisStore{client: client, prefix: prefix, ttl: opts.TTL}, nil
}

func (s *RedisStore) docKey(runID, path string) string {
	return s.prefix + ":doc:" + objectKey(runID, path)
}

func (s *RedisStore) runKey(runID string) string {
	return s.prefix + ":run:" + runID
}

func (s *RedisStore) Put(ctx context.Context, runID, path string, content []byte) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("store is nil")
	}
	runID, path, err := requireKey(runID, path)
	if err != nil {
		return err
	}
	if content == nil {
		content = []byte{}
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.docKey(runID, path), content, s.ttl)
	pipe.SAdd(ctx, s.runKey(runID), path)
	if s.ttl > 0 {
		pipe.Expire(ctx, s.runKey(runID), s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store %s: %w", objectKey(runID, path), err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, runID, path string) ([]byte, error) {
	if s == nil || s.client == nil {
		return nil, fmt.Errorf("store is nil")
	}
	runID, path, err := requireKey(runID, path)
	if err != nil {
		return nil, err
	}
	raw, err := s.client.Get(ctx, s.docKey(runID, path)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", objectKey(runID, path), err)
	}
	return raw, nil
}

func (s *RedisStore) List(ctx context.Context, runID string) ([]string, error) {
	if s == nil || s.client == nil {
		return nil, fmt.Errorf("store is nil")
	}
	runID = strings.TrimSpace(runID)
	if runID == "" {
		return nil, fmt.Errorf("run_id is required")
	}
	paths, err := s.client.SMembers(ctx, s.runKey(runID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list run %s: %w", runID, err)
	}
	sort.Strings(paths)
	return paths, nil
}

// GetURL is unsupported for Redis.
func (s *RedisStore) GetURL(context.Context, string, string) (string, error) {
	return "", nil
}

func (s *RedisStore) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}
