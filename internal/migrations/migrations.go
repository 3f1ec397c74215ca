// Package migrations applies the schema with goose from SQL files embedded per dialect.
package migrations

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sync"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"

	"learnhub/m/internal/database"
)

//go:embed sqlite/*.sql postgres/*.sql
var files embed.FS

// goose keeps its base FS, dialect and logger in package state.
var mu sync.Mutex

// Run creates or upgrades the database schema.
func Run(ctx context.Context, db *sqlx.DB, logger goose.Logger) error {
	dir, dialect := "sqlite", "sqlite3"
	if db.DriverName() == database.DriverPostgres {
		dir, dialect = "postgres", "postgres"
	}

	sub, err := fs.Sub(files, dir)
	if err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	mu.Lock()
	defer mu.Unlock()

	goose.SetBaseFS(sub)
	defer goose.SetBaseFS(nil)
	if logger != nil {
		goose.SetLogger(logger)
	} else {
		goose.SetLogger(goose.NopLogger())
	}
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	if err := goose.UpContext(ctx, db.DB, "."); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	return nil
}
