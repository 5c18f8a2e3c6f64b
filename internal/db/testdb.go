package db

import (
	"database/sql"
	"testing"
)

// NewTestDB creates a fresh in-memory SQLite database with the schema applied.
func NewTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}

	if err := Migrate(db); err != nil {
		db.Close()
		t.Fatalf("creating test database schema: %v", err)
	}

	t.Cleanup(func() { db.Close() })

	return db
}

// NewTestDeviceDB creates a fresh in-memory device state database.
func NewTestDeviceDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := OpenDevice(":memory:")
	if err != nil {
		t.Fatalf("opening test device database: %v", err)
	}

	t.Cleanup(func() { db.Close() })

	return db
}
