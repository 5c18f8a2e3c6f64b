package db

import (
	"context"
	"database/sql"
	"fmt"
)

// deviceSchema holds device-level state that must survive tenant dataset
// purges. It lives in its own database file, never in the tenant store.
const deviceSchema = `
CREATE TABLE IF NOT EXISTS device_state (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

// ActiveTenantKey is the device_state key holding the active tenant id.
const ActiveTenantKey = "active_tenant"

// OpenDevice opens (creating if needed) the device-level state database.
func OpenDevice(path string) (*sql.DB, error) {
	db, err := Open(path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(deviceSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating device schema: %w", err)
	}
	return db, nil
}

// GetDeviceState returns the value for a device state key, or "" if unset.
func GetDeviceState(ctx context.Context, db *sql.DB, key string) (string, error) {
	var value string
	err := db.QueryRowContext(ctx,
		`SELECT value FROM device_state WHERE key = ?`, key,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading device state %q: %w", key, err)
	}
	return value, nil
}

// SetDeviceState writes a device state key.
func SetDeviceState(ctx context.Context, db *sql.DB, key, value string) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO device_state (key, value) VALUES (?, ?)
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("writing device state %q: %w", key, err)
	}
	return nil
}
