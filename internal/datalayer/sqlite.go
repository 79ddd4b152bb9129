package datalayer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	sqliteMigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	// Registers the pure Go "sqlite" driver.
	_ "modernc.org/sqlite"
)

// OpenSQLite opens (or creates) the SQLite database at path, brings its schema
// up to date and applies the pragmas the repository expects.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create sqlite directory: %w", err)
	}

	if err := MigrateSQLite(path); err != nil {
		return nil, fmt.Errorf("failed to migrate sqlite: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	// SQLite is a single writer engine.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}
	return db, nil
}

// MigrateSQLite runs the embedded SQLite migrations against the file at path.
// It uses its own connection because the migrate driver closes the handle it is given.
func MigrateSQLite(path string) (err error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return err
	}

	driver, derr := sqliteMigrate.WithInstance(db, &sqliteMigrate.Config{})
	if derr != nil {
		return errors.Join(derr, db.Close())
	}

	src, serr := iofs.New(migrationsFS, "migrations/sqlite")
	if serr != nil {
		return errors.Join(serr, db.Close())
	}

	m, merr := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if merr != nil {
		return errors.Join(merr, db.Close())
	}

	defer func() {
		srcErr, dbErr := m.Close()
		err = errors.Join(err, srcErr, dbErr)
	}()

	if upErr := m.Up(); upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return upErr
	}
	return nil
}
