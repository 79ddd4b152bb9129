package config

import (
	"context"
	"fmt"

	"github.com/sethvargo/go-envconfig"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverSQLite   = "sqlite"
)

// StorageConfig selects where reminder entries are persisted.
// Postgres settings are read separately through PostgresConfig.
type StorageConfig struct {
	Driver     string `env:"STORAGE_DRIVER, default=postgres"`
	SQLitePath string `env:"SQLITE_PATH, default=data/gymbot.db"`
}

func NewStorageConfigFromEnv() (*StorageConfig, error) {
	return NewStorageConfig(context.Background(), nil)
}

func NewStorageConfig(ctx context.Context, lookuper envconfig.Lookuper) (*StorageConfig, error) {
	var cfg StorageConfig
	if err := process(ctx, &cfg, lookuper); err != nil {
		return nil, err
	}
	switch cfg.Driver {
	case StorageDriverPostgres, StorageDriverSQLite:
	default:
		return nil, fmt.Errorf("unknown STORAGE_DRIVER %q: expected %q or %q", cfg.Driver, StorageDriverPostgres, StorageDriverSQLite)
	}
	return &cfg, nil
}
