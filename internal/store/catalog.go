package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/counterline/counterline/internal/model"
)

// ReplaceMenuItems clears the menu table and bulk-inserts the given rows
// in one transaction. An empty incoming set is a no-op unless allowEmpty
// is set: a transient empty response must never wipe a populated catalog,
// but deliberate resets (and unbootstrapped tenants) pass allowEmpty.
// Returns the number of rows written.
func ReplaceMenuItems(ctx context.Context, db *sql.DB, items []model.MenuItem, allowEmpty bool) (int, error) {
	if len(items) == 0 && !allowEmpty {
		return 0, nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning menu replace: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM menu_items`); err != nil {
		return 0, fmt.Errorf("clearing menu items: %w", err)
	}

	for _, it := range items {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO menu_items (id, name, category, price, cost, image_ref,
			     consume_unit, purchase_unit, units_per_package, shelf_life_days,
			     low_stock, updated_at, units_updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			it.ID, it.Name, it.Category, it.Price, it.Cost, it.ImageRef,
			it.ConsumeUnit, it.PurchaseUnit, it.UnitsPerPackage, it.ShelfLifeDays,
			it.LowStock, it.UpdatedAt, it.UnitsUpdatedAt,
		)
		if err != nil {
			return 0, fmt.Errorf("inserting menu item %q: %w", it.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing menu replace: %w", err)
	}
	return len(items), nil
}

// ReplaceCategories clears the category table and bulk-inserts the given
// rows. Same empty-set guard as ReplaceMenuItems.
func ReplaceCategories(ctx context.Context, db *sql.DB, cats []model.Category, allowEmpty bool) (int, error) {
	if len(cats) == 0 && !allowEmpty {
		return 0, nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning category replace: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM categories`); err != nil {
		return 0, fmt.Errorf("clearing categories: %w", err)
	}

	for _, c := range cats {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO categories (id, name, sort_order, updated_at) VALUES (?, ?, ?, ?)`,
			c.ID, c.Name, c.SortOrder, c.UpdatedAt,
		)
		if err != nil {
			return 0, fmt.Errorf("inserting category %q: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing category replace: %w", err)
	}
	return len(cats), nil
}

// ListMenuItems returns all menu rows ordered by category then name.
func ListMenuItems(ctx context.Context, db *sql.DB) ([]model.MenuItem, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, name, category, price, cost, image_ref, consume_unit,
		        purchase_unit, units_per_package, shelf_life_days, low_stock,
		        updated_at, units_updated_at
		 FROM menu_items ORDER BY category, name`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing menu items: %w", err)
	}
	defer rows.Close()

	var items []model.MenuItem
	for rows.Next() {
		var it model.MenuItem
		if err := rows.Scan(&it.ID, &it.Name, &it.Category, &it.Price, &it.Cost,
			&it.ImageRef, &it.ConsumeUnit, &it.PurchaseUnit, &it.UnitsPerPackage,
			&it.ShelfLifeDays, &it.LowStock, &it.UpdatedAt, &it.UnitsUpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning menu item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// ListCategories returns all category rows in display order.
func ListCategories(ctx context.Context, db *sql.DB) ([]model.Category, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, name, sort_order, updated_at FROM categories ORDER BY sort_order, name`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	defer rows.Close()

	var cats []model.Category
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.SortOrder, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning category: %w", err)
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

// CountMenuItems returns the number of menu rows. Used to compute the
// default bootstrap flag for a tenant.
func CountMenuItems(ctx context.Context, db *sql.DB) (int, error) {
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM menu_items`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting menu items: %w", err)
	}
	return n, nil
}
