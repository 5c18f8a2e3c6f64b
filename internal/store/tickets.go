package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/counterline/counterline/internal/model"
)

// Ticket store errors callers branch on.
var (
	ErrTicketNotFound = errors.New("ticket not found")
	ErrTicketClosed   = errors.New("ticket is closed")
	ErrNothingToMove  = errors.New("no items to move")
)

// CreateTicket inserts a new open ticket.
func CreateTicket(ctx context.Context, db *sql.DB, t model.Ticket) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO tickets (id, name, opened_by, opened_at, status, notes)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID, t.Name, t.OpenedBy, t.OpenedAt, model.TicketStatusOpen, t.Notes,
	)
	if err != nil {
		return fmt.Errorf("creating ticket: %w", err)
	}
	return nil
}

// GetTicket returns a ticket by id, or nil if it does not exist.
func GetTicket(ctx context.Context, db *sql.DB, id string) (*model.Ticket, error) {
	t := &model.Ticket{}
	err := db.QueryRowContext(ctx,
		`SELECT id, name, opened_by, opened_at, status, closed_at, closed_by, pay_method, pay_amount, notes
		 FROM tickets WHERE id = ?`, id,
	).Scan(&t.ID, &t.Name, &t.OpenedBy, &t.OpenedAt, &t.Status,
		&t.ClosedAt, &t.ClosedBy, &t.PayMethod, &t.PayAmount, &t.Notes)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting ticket: %w", err)
	}
	return t, nil
}

// ListTickets returns tickets, optionally filtered by status, newest first.
func ListTickets(ctx context.Context, db *sql.DB, status string) ([]model.Ticket, error) {
	query := `SELECT id, name, opened_by, opened_at, status, closed_at, closed_by, pay_method, pay_amount, notes
	          FROM tickets`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY opened_at DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing tickets: %w", err)
	}
	defer rows.Close()

	var tickets []model.Ticket
	for rows.Next() {
		var t model.Ticket
		if err := rows.Scan(&t.ID, &t.Name, &t.OpenedBy, &t.OpenedAt, &t.Status,
			&t.ClosedAt, &t.ClosedBy, &t.PayMethod, &t.PayAmount, &t.Notes); err != nil {
			return nil, fmt.Errorf("scanning ticket: %w", err)
		}
		tickets = append(tickets, t)
	}
	return tickets, rows.Err()
}

// CloseTicket marks an open ticket closed with payment details. Closed
// tickets are terminal; closing an already-closed ticket fails.
func CloseTicket(ctx context.Context, db *sql.DB, id, closedBy, payMethod string, payAmount, closedAt int64) error {
	res, err := db.ExecContext(ctx,
		`UPDATE tickets SET status = ?, closed_at = ?, closed_by = ?, pay_method = ?, pay_amount = ?
		 WHERE id = ? AND status = ?`,
		model.TicketStatusClosed, closedAt, closedBy, payMethod, payAmount,
		id, model.TicketStatusOpen,
	)
	if err != nil {
		return fmt.Errorf("closing ticket: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("closing ticket: %w", err)
	}
	if n == 0 {
		t, err := GetTicket(ctx, db, id)
		if err != nil {
			return err
		}
		if t == nil {
			return ErrTicketNotFound
		}
		return ErrTicketClosed
	}
	return nil
}

// DeleteTicket removes a ticket and its items. Used by compensating
// cleanup when a split fails after the destination ticket was created.
func DeleteTicket(ctx context.Context, db *sql.DB, id string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning ticket delete: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM ticket_items WHERE ticket_id = ?`, id); err != nil {
		return fmt.Errorf("deleting ticket items: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM tickets WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting ticket: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing ticket delete: %w", err)
	}
	return nil
}
