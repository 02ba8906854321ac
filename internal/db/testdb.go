package db

import (
	"database/sql"
	"testing"
)

// NewTestDB opens an in-memory SQLite database with the schema applied and
// closes it when the test finishes.
func NewTestDB(tb testing.TB) *sql.DB {
	tb.Helper()

	db, err := Open(":memory:")
	if err == nil {
		err = Migrate(db)
	}
	if err != nil {
		tb.Fatalf("preparing test database: %v", err)
	}
	tb.Cleanup(func() { db.Close() })

	return db
}
