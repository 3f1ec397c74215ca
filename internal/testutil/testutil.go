// Package testutil holds helpers shared by package tests.
package testutil

import (
	"context"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"

	"learnhub/m/internal/database"
	"learnhub/m/internal/migrations"
)

// OpenDB opens a migrated in-memory SQLite database private to the test.
// Caller does not need to close it.
func OpenDB(t *testing.T) *sqlx.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.Connect("file:" + name + "?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := migrations.Run(context.Background(), db, nil); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}
