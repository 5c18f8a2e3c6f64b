package db

import (
	"database/sql"
	"fmt"
)

// migrations is a list of SQL statements applied in order after schema
// creation. Each migration must be idempotent and additive. Append new
// migrations at the end. If a structural change cannot be expressed here,
// the documented fallback is wipe-and-rebuild: the remote system plus the
// outbox hold everything needed to rehydrate a tenant dataset.
var migrations = []string{
	// Migration 1: per-resource drain ordering needs a fast scan of the
	// queue grouped by resource key.
	`CREATE INDEX IF NOT EXISTS idx_outbox_resource ON outbox(resource, id)`,
}

// Migrate creates the schema and runs the migrations.
func Migrate(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("running migration %d: %w", i+1, err)
		}
	}

	return nil
}
