// Package sqlitetest provides in-memory ledger databases for tests in other packages.
package sqlitetest

import (
	"database/sql"
	"testing"

	"go.uber.org/zap"

	"github.com/mamadbah2/chickflow/internal/repository/sqlite"
)

// NewDB creates a fresh in-memory SQLite database with the schema applied.
func NewDB(t testing.TB) *sql.DB {
	t.Helper()

	db, err := sqlite.Open(":memory:")
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}

	if err := sqlite.EnsureSchema(db); err != nil {
		db.Close()
		t.Fatalf("creating test database schema: %v", err)
	}

	t.Cleanup(func() { db.Close() })

	return db
}

// NewStore returns a store over a fresh in-memory database.
func NewStore(t testing.TB) *sqlite.Store {
	t.Helper()
	return sqlite.NewStore(NewDB(t), zap.NewNop())
}
