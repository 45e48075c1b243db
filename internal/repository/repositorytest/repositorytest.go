// Package repositorytest provides metadata-store fixtures for tests.
package repositorytest

import (
	"context"
	"testing"

	"github.com/docsum/docsum/internal/common"
	"github.com/docsum/docsum/internal/repository"
)

// Open returns a throwaway in-memory SQLite store, closed with the test.
func Open(t *testing.T) *repository.DB {
	t.Helper()
	db, err := repository.Open(context.Background(), common.DatabaseConfig{
		Driver: string(repository.DialectSQLite),
		DSN:    ":memory:",
	}, nil)
	if err != nil {
		t.Fatalf("open memory db: %v", err)
	}
	// A single in-memory SQLite connection is its own database; don't let
	// database/sql open a second one.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}
