package main

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/joseph-ayodele/text-extractor/internal/cache"
	"github.com/joseph-ayodele/text-extractor/internal/common"
	"github.com/joseph-ayodele/text-extractor/internal/ingest"
	"github.com/joseph-ayodele/text-extractor/internal/pipeline"
	"github.com/joseph-ayodele/text-extractor/internal/repository"
	"github.com/joseph-ayodele/text-extractor/internal/workerpool"
)

// app holds everything a command needs, opened from the loaded config.
type app struct {
	cfg    *common.Config
	logger *slog.Logger

	db    *repository.DB // nil unless the sql cache or the job ledger is on
	jobs  repository.ExtractJobRepository
	store *cache.Store
	svc   *pipeline.Service
}

// underVault resolves a relative path against the vault root.
func underVault(root, p string) string {
	if p == "" || p == ":memory:" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}

// openStore opens the cache, and the database when anything needs it.
func openStore(ctx context.Context, c *common.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: c, logger: logger}

	if c.UsesDatabase() {
		dbCfg := c.Database
		dbCfg.SQLitePath = underVault(c.VaultRoot, dbCfg.SQLitePath)
		db, err := repository.Open(ctx, dbCfg, logger)
		if err != nil {
			return nil, common.WrapError(err, "open database")
		}
		if err := db.HealthCheck(ctx, 3*time.Second, logger); err != nil {
			db.Close(logger)
			return nil, err
		}
		a.db = db
	}
	if c.Jobs.Record {
		a.jobs = repository.NewExtractJobRepository(a.db, logger)
		if err := a.jobs.Migrate(ctx); err != nil {
			a.close(ctx)
			return nil, common.WrapError(err, "migrate extract_job")
		}
	}

	cacheCfg := c.Cache
	cacheCfg.Dir = underVault(c.VaultRoot, cacheCfg.Dir)
	store, err := cache.Open(ctx, cacheCfg, a.db, logger)
	if err != nil {
		a.close(ctx)
		return nil, common.WrapError(err, "open cache")
	}
	a.store = store
	return a, nil
}

// openApp additionally builds the extraction service and its worker pools.
func openApp(ctx context.Context, c *common.Config, logger *slog.Logger) (*app, error) {
	a, err := openStore(ctx, c, logger)
	if err != nil {
		return nil, err
	}

	args := c.Pool.WorkerArgs
	if c.Pool.WorkerCommand == "" {
		// re-exec ourselves as a worker with the same config
		args = []string{"worker"}
		if cfgFile != "" {
			args = append(args, "--config", cfgFile)
		}
	}
	deps := pipeline.Deps{
		Store:   a.store,
		Reader:  ingest.NewFSReader(c.VaultRoot),
		Spawner: workerpool.NewProcessSpawner(c.Pool.WorkerCommand, args, logger),
		Logger:  logger,
	}
	if a.jobs != nil {
		deps.Jobs = a.jobs
	}
	svc, err := pipeline.NewService(pipeline.ConfigFrom(c), deps)
	if err != nil {
		a.close(ctx)
		return nil, err
	}
	a.svc = svc
	return a, nil
}

func (a *app) close(ctx context.Context) {
	if a.svc != nil {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		if err := a.svc.Close(sctx); err != nil {
			a.logger.Warn("failed to close extraction service", "error", err)
		}
		cancel()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("failed to close cache", "error", err)
		}
	}
	if a.db != nil {
		a.db.Close(a.logger)
	}
}
