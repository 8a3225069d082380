package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"financing-workers/internal/common/config"
	"financing-workers/internal/common/logger"

	"github.com/redis/go-redis/v9"
)

// New builds the configured backend and wraps it with the read-through cache
// when a cache TTL and collections are set.
func New(ctx context.Context, cfg config.StoreConfig, db *sql.DB, rdb *redis.Client, log logger.Logger) (Store, error) {
	timeout := config.GetDuration(cfg.Timeout)

	var base Store
	switch cfg.Backend {
	case backendPostgres:
		if db == nil {
			return nil, fmt.Errorf("store backend %q needs a database connection", cfg.Backend)
		}
		pg := NewPostgresStore(db, timeout, log)
		if cfg.AutoMigrate {
			if err := pg.Migrate(ctx); err != nil {
				return nil, fmt.Errorf("migrate documents table: %w", err)
			}
		}
		base = pg
	case backendRedis:
		if rdb == nil {
			return nil, fmt.Errorf("store backend %q needs a redis connection", cfg.Backend)
		}
		base = NewRedisStore(rdb, cfg.KeyPrefix, timeout, log)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}

	if cfg.CacheTTL > 0 && len(cfg.CacheFor) > 0 && rdb != nil {
		return NewCachedStore(base, rdb, cfg.KeyPrefix,
			time.Duration(cfg.CacheTTL)*time.Second,
			config.GetDuration(cfg.CacheTimeout),
			cfg.CacheFor, log), nil
	}
	return base, nil
}
