package app

import (
	"context"
	"fmt"
	"log"
	"strings"

	"graphjson/internal/config"
	"graphjson/internal/sink"
)

type closer func() error

func noClose() error { return nil }

// openStore builds the origin store named by cfg.Kind and, when cache
// entries are configured, fronts it with an LRU.
func openStore(ctx context.Context, cfg config.SinkConfig) (sink.Store, closer, error) {
	origin, closeFn, err := openOrigin(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	if cfg.CacheEntries <= 0 {
		return origin, closeFn, nil
	}
	cached, err := sink.NewCachedStore(origin, cfg.CacheEntries)
	if err != nil {
		_ = closeFn()
		return nil, nil, fmt.Errorf("failed to initialize document cache: %w", err)
	}
	log.Printf("document store: lru cache entries=%d", cfg.CacheEntries)
	return cached, closeFn, nil
}

func openOrigin(ctx context.Context, cfg config.SinkConfig) (sink.Store, closer, error) {
	switch cfg.Kind {
	case config.SinkMemory:
		log.Printf("document store: in-memory")
		return sink.NewMemoryStore(), noClose, nil
	case config.SinkS3:
		return chooseS3Store(cfg)
	case config.SinkPostgres:
		dsn := strings.TrimSpace(cfg.PostgresDSN)
		if dsn == "" {
			return nil, nil, fmt.Errorf("postgres sink requires GRAPHJSON_PG_DSN")
		}
		pg, err := sink.OpenPostgres(ctx, dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize postgres store: %w", err)
		}
		log.Printf("document store: postgres")
		return pg, pg.Close, nil
	case config.SinkRedis:
		rs, err := sink.NewRedisStore(sink.RedisOptions{
			URL:    cfg.Redis.URL,
			Prefix: cfg.Redis.Prefix,
			TTL:    cfg.Redis.TTL,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize redis store: %w", err)
		}
		log.Printf("document store: redis")
		return rs, rs.Close, nil
	case config.SinkFile, "":
		return fileStore(cfg.OutDir)
	}
	return nil, nil, fmt.Errorf("unknown sink %q", cfg.Kind)
}

// chooseS3Store falls back to the file store when the S3 settings are
// incomplete.
func chooseS3Store(cfg config.SinkConfig) (sink.Store, closer, error) {
	if !cfg.Artifact.CanUseS3() {
		log.Printf("document store: using file fallback (s3 config incomplete)")
		return fileStore(cfg.OutDir)
	}
	s3Cfg := sink.S3Config{
		Endpoint:  cfg.Artifact.Endpoint,
		Region:    cfg.Artifact.Region,
		AccessKey: cfg.Artifact.AccessKey,
		SecretKey: cfg.Artifact.SecretKey,
		Bucket:    cfg.Artifact.Bucket,
		UseSSL:    cfg.Artifact.UseSSL,
		Prefix:    cfg.Artifact.Prefix,
		URLExpiry: cfg.Artifact.URLExpiry,
	}
	s3Store, err := sink.NewS3Store(s3Cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize s3 store: %w", err)
	}
	log.Printf("document store: s3 bucket=%s endpoint=%s", s3Cfg.Bucket, s3Cfg.Endpoint)
	return s3Store, noClose, nil
}

func fileStore(dir string) (sink.Store, closer, error) {
	fs, err := sink.NewFileStore(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize file store: %w", err)
	}
	log.Printf("document store: file dir=%s", dir)
	return fs, noClose, nil
}
