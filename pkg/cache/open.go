package cache

import (
	"context"
	"fmt"
)

// Backend names accepted by Open.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendMongo = "mongo"
	BackendNone  = "none"
)

// Options selects and configures a backend.
type Options struct {
	Backend string

	// Dir is the FileCache directory.
	Dir string

	RedisAddr string

	MongoURI      string
	MongoDatabase string
}

// Open creates the configured backend. An empty backend is BackendFile.
func Open(ctx context.Context, opts Options) (Cache, error) {
	switch opts.Backend {
	case "", BackendFile:
		return NewFileCache(opts.Dir)
	case BackendRedis:
		return NewRedisCache(ctx, RedisOptions{Addr: opts.RedisAddr})
	case BackendMongo:
		return NewMongoCache(ctx, MongoOptions{URI: opts.MongoURI, Database: opts.MongoDatabase})
	case BackendNone:
		return NewNullCache(), nil
	}
	return nil, fmt.Errorf("unknown cache backend %q", opts.Backend)
}
