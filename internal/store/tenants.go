package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/counterline/counterline/internal/model"
)

// GetTenantConfig returns the cached config for a tenant id, or nil if
// the device has never seen it.
func GetTenantConfig(ctx context.Context, db *sql.DB, tenantID string) (*model.TenantConfig, error) {
	c := &model.TenantConfig{}
	var metadata sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT tenant_id, account_email, settings_ref, menu_ref, drive_ref, metadata, created_at, updated_at
		 FROM tenants WHERE tenant_id = ?`, tenantID,
	).Scan(&c.TenantID, &c.AccountEmail, &c.SettingsRef, &c.MenuRef, &c.DriveRef,
		&metadata, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting tenant config: %w", err)
	}
	if metadata.Valid {
		c.Metadata = []byte(metadata.String)
	}
	return c, nil
}

// FindTenantConfigByEmail returns the cached config matching an account
// email, or nil if none is cached.
func FindTenantConfigByEmail(ctx context.Context, db *sql.DB, email string) (*model.TenantConfig, error) {
	var tenantID string
	err := db.QueryRowContext(ctx,
		`SELECT tenant_id FROM tenants WHERE account_email = ? COLLATE NOCASE ORDER BY updated_at DESC LIMIT 1`,
		email,
	).Scan(&tenantID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding tenant config by email: %w", err)
	}
	return GetTenantConfig(ctx, db, tenantID)
}

// UpsertTenantConfig writes a tenant config, replacing any cached copy.
func UpsertTenantConfig(ctx context.Context, db *sql.DB, c model.TenantConfig) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO tenants (tenant_id, account_email, settings_ref, menu_ref, drive_ref, metadata, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (tenant_id) DO UPDATE SET
		     account_email = excluded.account_email,
		     settings_ref  = excluded.settings_ref,
		     menu_ref      = excluded.menu_ref,
		     drive_ref     = excluded.drive_ref,
		     metadata      = excluded.metadata,
		     updated_at    = excluded.updated_at`,
		c.TenantID, c.AccountEmail, c.SettingsRef, c.MenuRef, c.DriveRef,
		nullableString(string(c.Metadata)), c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upserting tenant config: %w", err)
	}
	return nil
}

// tenantScopedTables lists every table purged on a tenant switch, in an
// order that respects foreign keys. The tenants table itself survives:
// it caches configs per tenant id and holds nothing cross-contaminating.
var tenantScopedTables = []string{
	"ticket_items",
	"tickets",
	"menu_items",
	"categories",
	"units",
	"inventory_items",
	"restocks",
	"outbox",
	"audit_log",
	"staff",
	"image_cache",
}

// PurgeTenantData deletes every tenant-scoped row in a single transaction.
// Called before hydrating a different tenant; no data from the previous
// tenant may remain visible afterwards.
func PurgeTenantData(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning purge transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range tenantScopedTables {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("purging %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing purge: %w", err)
	}
	return nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
