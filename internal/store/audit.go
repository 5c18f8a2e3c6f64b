package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/counterline/counterline/internal/model"
)

// AppendAudit writes an audit log entry. The audit log is append-only;
// nothing in normal operation deletes from it.
func AppendAudit(ctx context.Context, db *sql.DB, e model.AuditEntry) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO audit_log (id, ts, action, entity, entity_id, actor, details)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Timestamp, e.Action, e.Entity, e.EntityID, e.Actor,
		nullableString(string(e.Details)),
	)
	if err != nil {
		return fmt.Errorf("appending audit entry: %w", err)
	}
	return nil
}

func appendAuditTx(ctx context.Context, tx *sql.Tx, e model.AuditEntry) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO audit_log (id, ts, action, entity, entity_id, actor, details)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Timestamp, e.Action, e.Entity, e.EntityID, e.Actor,
		nullableString(string(e.Details)),
	)
	if err != nil {
		return fmt.Errorf("appending audit entry: %w", err)
	}
	return nil
}

// ListAudit returns audit entries, optionally filtered by entity, newest
// first, up to limit rows (0 means no limit).
func ListAudit(ctx context.Context, db *sql.DB, entity string, limit int) ([]model.AuditEntry, error) {
	query := `SELECT id, ts, action, entity, entity_id, actor, details FROM audit_log`
	var args []any
	if entity != "" {
		query += ` WHERE entity = ?`
		args = append(args, entity)
	}
	query += ` ORDER BY ts DESC, id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing audit entries: %w", err)
	}
	defer rows.Close()

	var entries []model.AuditEntry
	for rows.Next() {
		var e model.AuditEntry
		var details sql.NullString
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.Action, &e.Entity, &e.EntityID,
			&e.Actor, &details); err != nil {
			return nil, fmt.Errorf("scanning audit entry: %w", err)
		}
		if details.Valid {
			e.Details = []byte(details.String)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
