package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/alfredjeanlab/unicorns/internal/config"
	"github.com/alfredjeanlab/unicorns/internal/export"
	"github.com/alfredjeanlab/unicorns/internal/store"
	"github.com/alfredjeanlab/unicorns/internal/store/csvsource"
	"github.com/alfredjeanlab/unicorns/internal/store/postgres"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}

// openSource selects Postgres when a database URL is configured and the
// CSV directory otherwise. The returned close function is never nil.
func openSource(cfg *config.Config, logger *slog.Logger) (store.Source, func() error, error) {
	if cfg.DatabaseURL != "" {
		pg, err := postgres.New(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("loading from postgres")
		return pg, pg.Close, nil
	}
	src := csvsource.New(cfg.DataDir)
	src.Logger = logger
	logger.Info("loading from csv", "dir", cfg.DataDir)
	return src, func() error { return nil }, nil
}

// loadEntities reads the configured source into an entity store.
func loadEntities(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*store.Entities, error) {
	src, closeSrc, err := openSource(cfg, logger)
	if err != nil {
		return nil, err
	}
	defer closeSrc()
	return store.Load(ctx, src, logger)
}

// snapshotDestinations builds the configured snapshot targets. An S3 target
// that cannot be configured is logged and skipped.
func snapshotDestinations(ctx context.Context, cfg *config.Config, logger *slog.Logger) []export.Destination {
	var dests []export.Destination
	if cfg.SnapshotFile != "" {
		dests = append(dests, &export.FileDestination{Path: cfg.SnapshotFile})
		logger.Info("snapshot file destination enabled", "path", cfg.SnapshotFile)
	}
	if cfg.SnapshotS3Bucket != "" {
		s3Dest, err := export.NewS3Destination(ctx,
			cfg.SnapshotS3Bucket,
			cfg.SnapshotS3Key,
			cfg.SnapshotS3Region,
			cfg.SnapshotS3Endpoint,
		)
		if err != nil {
			logger.Error("failed to create S3 snapshot destination", "err", err)
		} else {
			dests = append(dests, s3Dest)
			logger.Info("snapshot S3 destination enabled", "bucket", cfg.SnapshotS3Bucket, "key", cfg.SnapshotS3Key)
		}
	}
	return dests
}

func loadConfig() (*config.Config, *config.Tuning, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	tuning, err := config.LoadTuning(cfg.TuningFile)
	if err != nil {
		return nil, nil, fmt.Errorf("tuning: %w", err)
	}
	return cfg, tuning, nil
}
