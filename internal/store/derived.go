package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/counterline/counterline/internal/model"
)

// MergeUnits upserts packaging rows derived from menu rows. An incoming
// row overwrites an existing one only if its timestamp is greater or
// equal (last write wins). Returns the number of rows applied.
func MergeUnits(ctx context.Context, db *sql.DB, units []model.Unit) (int, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning units merge: %w", err)
	}
	defer tx.Rollback()

	applied := 0
	for _, u := range units {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO units (item_id, consume_unit, purchase_unit, units_per_package, updated_at)
			 VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT (item_id) DO UPDATE SET
			     consume_unit      = excluded.consume_unit,
			     purchase_unit     = excluded.purchase_unit,
			     units_per_package = excluded.units_per_package,
			     updated_at        = excluded.updated_at
			 WHERE excluded.updated_at >= units.updated_at`,
			u.ItemID, u.ConsumeUnit, u.PurchaseUnit, u.UnitsPerPackage, u.UpdatedAt,
		)
		if err != nil {
			return 0, fmt.Errorf("merging unit %q: %w", u.ItemID, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			applied++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing units merge: %w", err)
	}
	return applied, nil
}

// GetUnit returns the packaging row for an item, or nil if the item has
// no packaging configured.
func GetUnit(ctx context.Context, db *sql.DB, itemID string) (*model.Unit, error) {
	u := &model.Unit{}
	err := db.QueryRowContext(ctx,
		`SELECT item_id, consume_unit, purchase_unit, units_per_package, updated_at
		 FROM units WHERE item_id = ?`, itemID,
	).Scan(&u.ItemID, &u.ConsumeUnit, &u.PurchaseUnit, &u.UnitsPerPackage, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting unit: %w", err)
	}
	return u, nil
}

// MergeInventoryItems upserts stock-tracking rows derived from menu rows,
// with the same timestamp-wins rule as MergeUnits.
func MergeInventoryItems(ctx context.Context, db *sql.DB, items []model.InventoryItem) (int, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning inventory merge: %w", err)
	}
	defer tx.Rollback()

	applied := 0
	for _, it := range items {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO inventory_items (item_id, name, cost, category, shelf_life_days, low_stock, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT (item_id) DO UPDATE SET
			     name            = excluded.name,
			     cost            = excluded.cost,
			     category        = excluded.category,
			     shelf_life_days = excluded.shelf_life_days,
			     low_stock       = excluded.low_stock,
			     updated_at      = excluded.updated_at
			 WHERE excluded.updated_at >= inventory_items.updated_at`,
			it.ItemID, it.Name, it.Cost, it.Category, it.ShelfLifeDays, it.LowStock, it.UpdatedAt,
		)
		if err != nil {
			return 0, fmt.Errorf("merging inventory item %q: %w", it.ItemID, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			applied++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing inventory merge: %w", err)
	}
	return applied, nil
}

// ListInventoryItems returns all stock-tracking rows ordered by name.
func ListInventoryItems(ctx context.Context, db *sql.DB) ([]model.InventoryItem, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT item_id, name, cost, category, shelf_life_days, low_stock, updated_at
		 FROM inventory_items ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing inventory items: %w", err)
	}
	defer rows.Close()

	var items []model.InventoryItem
	for rows.Next() {
		var it model.InventoryItem
		if err := rows.Scan(&it.ItemID, &it.Name, &it.Cost, &it.Category,
			&it.ShelfLifeDays, &it.LowStock, &it.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning inventory item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}
