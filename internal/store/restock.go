package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/counterline/counterline/internal/model"
)

// CreateRestock appends a restock record together with its audit entry in
// one transaction. Restock records are never mutated afterwards; newer
// records for the same item supersede older ones.
func CreateRestock(ctx context.Context, db *sql.DB, r model.RestockRecord, audit model.AuditEntry) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning restock transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO restocks (id, item_id, ts, unit, package, units_per_package,
		     packages, extra_units, total_units, actor, notes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.ItemID, r.Timestamp, r.Unit, r.Package, r.UnitsPerPackage,
		r.Packages, r.ExtraUnits, r.TotalUnits, r.Actor, r.Notes,
	)
	if err != nil {
		return fmt.Errorf("recording restock: %w", err)
	}

	if err := appendAuditTx(ctx, tx, audit); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing restock: %w", err)
	}
	return nil
}

// ListRestocks returns restock records for an item, newest first. With an
// empty item id, all records are returned.
func ListRestocks(ctx context.Context, db *sql.DB, itemID string) ([]model.RestockRecord, error) {
	query := `SELECT id, item_id, ts, unit, package, units_per_package,
	                 packages, extra_units, total_units, actor, notes
	          FROM restocks`
	var args []any
	if itemID != "" {
		query += ` WHERE item_id = ?`
		args = append(args, itemID)
	}
	query += ` ORDER BY ts DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing restocks: %w", err)
	}
	defer rows.Close()

	var records []model.RestockRecord
	for rows.Next() {
		var r model.RestockRecord
		if err := rows.Scan(&r.ID, &r.ItemID, &r.Timestamp, &r.Unit, &r.Package,
			&r.UnitsPerPackage, &r.Packages, &r.ExtraUnits, &r.TotalUnits,
			&r.Actor, &r.Notes); err != nil {
			return nil, fmt.Errorf("scanning restock: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
