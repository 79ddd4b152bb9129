package repository

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/glizzus/gymbot/internal/config"
	"github.com/glizzus/gymbot/internal/datalayer"
)

// OpenEntryRepository opens and migrates the store selected by cfg. The
// returned cleanup releases the underlying connections.
func OpenEntryRepository(ctx context.Context, cfg *config.StorageConfig) (EntryRepository, func(), error) {
	switch cfg.Driver {
	case config.StorageDriverSQLite:
		db, err := datalayer.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		cleanup := func() {
			if err := db.Close(); err != nil {
				slog.Warn("failed to close sqlite", "error", err)
			}
		}
		return NewSQLiteEntryRepository(db, nil), cleanup, nil

	case config.StorageDriverPostgres:
		pgConfig, err := config.NewPostgresConfigFromEnv()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load postgres config: %w", err)
		}
		pool, err := datalayer.NewPostgresPool(ctx, pgConfig)
		if err != nil {
			return nil, nil, err
		}
		if err := datalayer.MigratePostgres(pool); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("failed to migrate postgres: %w", err)
		}
		return NewPostgresEntryRepository(pool, nil), pool.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
