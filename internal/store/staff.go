package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/counterline/counterline/internal/model"
)

// UpsertStaff writes a staff profile. An empty PinHash on the incoming
// profile preserves any hash already stored, so profile saves and PIN
// changes stay independent mutations.
func UpsertStaff(ctx context.Context, db *sql.DB, s model.StaffProfile) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO staff (id, name, email, pin_hash, role, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		     name       = excluded.name,
		     email      = excluded.email,
		     pin_hash   = CASE WHEN excluded.pin_hash = '' THEN staff.pin_hash ELSE excluded.pin_hash END,
		     role       = excluded.role,
		     updated_at = excluded.updated_at`,
		s.ID, s.Name, s.Email, s.PinHash, s.Role, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upserting staff profile: %w", err)
	}
	return nil
}

// GetStaff returns a staff profile by id, or nil if unknown.
func GetStaff(ctx context.Context, db *sql.DB, id string) (*model.StaffProfile, error) {
	s := &model.StaffProfile{}
	err := db.QueryRowContext(ctx,
		`SELECT id, name, email, pin_hash, role, updated_at FROM staff WHERE id = ?`, id,
	).Scan(&s.ID, &s.Name, &s.Email, &s.PinHash, &s.Role, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting staff profile: %w", err)
	}
	return s, nil
}

// SetStaffPIN replaces a staff member's PIN hash.
func SetStaffPIN(ctx context.Context, db *sql.DB, id, pinHash string, updatedAt int64) error {
	res, err := db.ExecContext(ctx,
		`UPDATE staff SET pin_hash = ?, updated_at = ? WHERE id = ?`,
		pinHash, updatedAt, id,
	)
	if err != nil {
		return fmt.Errorf("setting staff PIN: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("staff profile %s not found", id)
	}
	return nil
}

// ListStaff returns all staff profiles ordered by name.
func ListStaff(ctx context.Context, db *sql.DB) ([]model.StaffProfile, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, name, email, pin_hash, role, updated_at FROM staff ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing staff: %w", err)
	}
	defer rows.Close()

	var profiles []model.StaffProfile
	for rows.Next() {
		var s model.StaffProfile
		if err := rows.Scan(&s.ID, &s.Name, &s.Email, &s.PinHash, &s.Role, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning staff profile: %w", err)
		}
		profiles = append(profiles, s)
	}
	return profiles, rows.Err()
}
