package db

import (
	"database/sql"
	"fmt"
)

// migrations is a list of SQL statements applied in order after schema creation.
// Each migration must be idempotent. Append new migrations at the end.
var migrations = []string{
	// Migration 1: allow reissuing a deleted reader's card number when the
	// profile is restored with a fresh card.
	`DROP INDEX IF EXISTS idx_readers_card_number`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_readers_card_number_active
	     ON readers(card_number) WHERE deleted_at IS NULL`,
}

// Migrate creates the schema and runs all migrations.
func Migrate(db *sql.DB) error {
	if err := EnsureSchema(db); err != nil {
		return err
	}

	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("running migration %d: %w", i+1, err)
		}
	}

	return nil
}
