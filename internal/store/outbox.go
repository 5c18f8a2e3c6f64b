package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/counterline/counterline/internal/model"
)

// EnqueueOutbox durably appends a pending remote mutation. This never
// touches the network; it is the queue-on-failure half of try-then-queue.
func EnqueueOutbox(ctx context.Context, db *sql.DB, action, resource string, payload json.RawMessage, ts int64) (int64, error) {
	if len(payload) == 0 {
		payload = json.RawMessage(`{}`)
	}
	res, err := db.ExecContext(ctx,
		`INSERT INTO outbox (action, resource, payload, ts) VALUES (?, ?, ?, ?)`,
		action, resource, string(payload), ts,
	)
	if err != nil {
		return 0, fmt.Errorf("enqueueing outbox entry: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("enqueueing outbox entry: %w", err)
	}
	return id, nil
}

// ListOutbox returns queue entries in enqueue order. With parkedOnly set,
// only entries that exhausted their delivery attempts are returned.
func ListOutbox(ctx context.Context, db *sql.DB, parkedOnly bool) ([]model.OutboxEntry, error) {
	query := `SELECT id, action, resource, payload, ts, attempts, parked FROM outbox`
	if parkedOnly {
		query += ` WHERE parked = 1`
	}
	query += ` ORDER BY id`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing outbox: %w", err)
	}
	defer rows.Close()

	return scanOutbox(rows)
}

// PendingOutbox returns unparked entries in enqueue order.
func PendingOutbox(ctx context.Context, db *sql.DB) ([]model.OutboxEntry, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, action, resource, payload, ts, attempts, parked
		 FROM outbox WHERE parked = 0 ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing pending outbox: %w", err)
	}
	defer rows.Close()

	return scanOutbox(rows)
}

// DeleteOutbox removes an entry after confirmed remote delivery. Nothing
// else removes entries.
func DeleteOutbox(ctx context.Context, db *sql.DB, id int64) error {
	_, err := db.ExecContext(ctx, `DELETE FROM outbox WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting outbox entry: %w", err)
	}
	return nil
}

// BumpOutboxAttempt increments an entry's attempt counter after a failed
// delivery and returns the new count.
func BumpOutboxAttempt(ctx context.Context, db *sql.DB, id int64) (int64, error) {
	_, err := db.ExecContext(ctx, `UPDATE outbox SET attempts = attempts + 1 WHERE id = ?`, id)
	if err != nil {
		return 0, fmt.Errorf("bumping outbox attempts: %w", err)
	}
	var attempts int64
	err = db.QueryRowContext(ctx, `SELECT attempts FROM outbox WHERE id = ?`, id).Scan(&attempts)
	if err != nil {
		return 0, fmt.Errorf("reading outbox attempts: %w", err)
	}
	return attempts, nil
}

// ParkOutbox marks an entry as exhausted. Parked entries are excluded
// from draining but never deleted; an operator unparks or clears them
// explicitly.
func ParkOutbox(ctx context.Context, db *sql.DB, id int64) error {
	_, err := db.ExecContext(ctx, `UPDATE outbox SET parked = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("parking outbox entry: %w", err)
	}
	return nil
}

// UnparkOutbox returns a parked entry to the drainable queue with a
// reset attempt counter.
func UnparkOutbox(ctx context.Context, db *sql.DB, id int64) error {
	_, err := db.ExecContext(ctx, `UPDATE outbox SET parked = 0, attempts = 0 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("unparking outbox entry: %w", err)
	}
	return nil
}

func scanOutbox(rows *sql.Rows) ([]model.OutboxEntry, error) {
	var entries []model.OutboxEntry
	for rows.Next() {
		var e model.OutboxEntry
		var payload string
		var parked int64
		if err := rows.Scan(&e.ID, &e.Action, &e.Resource, &payload, &e.Timestamp,
			&e.Attempts, &parked); err != nil {
			return nil, fmt.Errorf("scanning outbox entry: %w", err)
		}
		e.Payload = []byte(payload)
		e.Parked = parked != 0
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
