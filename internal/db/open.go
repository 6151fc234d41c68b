package db

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/redis/go-redis/v9"
)

// Options selects and configures a backend.
type Options struct {
	Kind        string // file | sqlite | redis | postgres
	DataDir     string
	SQLitePath  string
	DatabaseURL string
	// Redis is required for the redis kind. It stays owned by the caller.
	Redis *redis.Client
}

// Open returns the backend named by opts.Kind.
func Open(ctx context.Context, opts Options) (Backend, error) {
	switch opts.Kind {
	case "", "file":
		return NewFileBackend(opts.DataDir)
	case "sqlite":
		path := opts.SQLitePath
		if path == "" {
			path = filepath.Join(opts.DataDir, "autoapply.db")
		}
		return NewSQLiteBackend(ctx, path)
	case "redis":
		if opts.Redis == nil {
			return nil, fmt.Errorf("redis backend needs a redis client")
		}
		return NewRedisBackend(opts.Redis, ""), nil
	case "postgres":
		pool, err := NewPostgresPool(ctx, opts.DatabaseURL)
		if err != nil {
			return nil, err
		}
		b, err := NewPostgresBackend(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, err
		}
		return b, nil
	}
	return nil, fmt.Errorf("unknown store backend %q", opts.Kind)
}
