package cache

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/text-extractor/internal/common"
	"github.com/joseph-ayodele/text-extractor/internal/repository"
)

// Open builds the Store for cfg.Driver. db is only used by the sql driver and
// may be nil otherwise.
func Open(ctx context.Context, cfg common.CacheConfig, db *repository.DB, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var (
		backend Backend
		err     error
	)
	switch cfg.Driver {
	case "fs", "":
		backend, err = NewFSBackend(cfg.Dir)
	case "memory":
		backend = NewMemoryBackend()
	case "sql":
		if db == nil {
			return nil, fmt.Errorf("sql cache needs a database: %w", common.ErrInvalidInput)
		}
		backend, err = NewSQLBackend(ctx, db)
	case "redis":
		backend, err = NewRedisBackend(ctx, cfg.Redis)
	case "s3":
		backend, err = NewS3Backend(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown cache driver %q: %w", cfg.Driver, common.ErrInvalidInput)
	}
	if err != nil {
		logger.Error("failed to open cache", "driver", cfg.Driver, "error", err)
		return nil, err
	}
	logger.Info("cache opened", "driver", cfg.Driver)
	return NewStore(backend, logger), nil
}
