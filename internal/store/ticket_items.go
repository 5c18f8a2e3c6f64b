package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/counterline/counterline/internal/model"
)

// AddTicketItem inserts a line item under an open ticket. The line total
// is computed here so callers cannot insert an inconsistent row.
func AddTicketItem(ctx context.Context, db *sql.DB, it model.TicketItem) error {
	ticket, err := GetTicket(ctx, db, it.TicketID)
	if err != nil {
		return err
	}
	if ticket == nil {
		return ErrTicketNotFound
	}
	if ticket.Status != model.TicketStatusOpen {
		return ErrTicketClosed
	}

	options, err := json.Marshal(optionsOrEmpty(it.Options))
	if err != nil {
		return fmt.Errorf("encoding item options: %w", err)
	}

	_, err = db.ExecContext(ctx,
		`INSERT INTO ticket_items (id, ticket_id, sku, name, price, qty, line_total, options, added_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		it.ID, it.TicketID, it.SKU, it.Name, it.Price, it.Qty, it.Price*it.Qty,
		string(options), it.AddedAt,
	)
	if err != nil {
		return fmt.Errorf("adding ticket item: %w", err)
	}
	return nil
}

// GetTicketItems returns the line items of a ticket in the order they
// were added.
func GetTicketItems(ctx context.Context, db *sql.DB, ticketID string) ([]model.TicketItem, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, ticket_id, sku, name, price, qty, line_total, options, added_at
		 FROM ticket_items WHERE ticket_id = ? ORDER BY added_at, id`, ticketID,
	)
	if err != nil {
		return nil, fmt.Errorf("getting ticket items: %w", err)
	}
	defer rows.Close()

	return scanTicketItems(rows)
}

// UpdateTicketItemQty sets a line's quantity and recomputes its total.
// The line must belong to the given ticket; an id paired with the wrong
// ticket mutates nothing.
func UpdateTicketItemQty(ctx context.Context, db *sql.DB, ticketID, itemID string, qty int64) error {
	if qty <= 0 {
		return fmt.Errorf("quantity must be positive")
	}
	res, err := db.ExecContext(ctx,
		`UPDATE ticket_items SET qty = ?, line_total = price * ? WHERE id = ? AND ticket_id = ?`,
		qty, qty, itemID, ticketID,
	)
	if err != nil {
		return fmt.Errorf("updating ticket item quantity: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("ticket item %s not found on ticket %s", itemID, ticketID)
	}
	return nil
}

// RemoveTicketItem deletes a single line item from the given ticket.
func RemoveTicketItem(ctx context.Context, db *sql.DB, ticketID, itemID string) error {
	res, err := db.ExecContext(ctx,
		`DELETE FROM ticket_items WHERE id = ? AND ticket_id = ?`, itemID, ticketID,
	)
	if err != nil {
		return fmt.Errorf("removing ticket item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("ticket item %s not found on ticket %s", itemID, ticketID)
	}
	return nil
}

// TicketTotals returns the item count and summed line totals of a ticket.
func TicketTotals(ctx context.Context, db *sql.DB, ticketID string) (count int64, total int64, err error) {
	err = db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(qty), 0), COALESCE(SUM(line_total), 0)
		 FROM ticket_items WHERE ticket_id = ?`, ticketID,
	).Scan(&count, &total)
	if err != nil {
		return 0, 0, fmt.Errorf("computing ticket totals: %w", err)
	}
	return count, total, nil
}

func scanTicketItems(rows *sql.Rows) ([]model.TicketItem, error) {
	var items []model.TicketItem
	for rows.Next() {
		var it model.TicketItem
		var options string
		if err := rows.Scan(&it.ID, &it.TicketID, &it.SKU, &it.Name, &it.Price,
			&it.Qty, &it.LineTotal, &options, &it.AddedAt); err != nil {
			return nil, fmt.Errorf("scanning ticket item: %w", err)
		}
		if err := json.Unmarshal([]byte(options), &it.Options); err != nil {
			return nil, fmt.Errorf("decoding item options: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func optionsOrEmpty(options []string) []string {
	if options == nil {
		return []string{}
	}
	return options
}
