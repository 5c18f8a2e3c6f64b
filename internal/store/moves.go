package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/counterline/counterline/internal/model"
)

// QtyMove names a line item and how many units of it move during a split.
type QtyMove struct {
	ItemID string
	Qty    int64
}

// MoveResult describes the outcome of a split transaction.
type MoveResult struct {
	Moved     []model.TicketItem // lines now under the destination ticket
	Remaining []model.TicketItem // lines left on the source ticket
	MovedQty  int64
	MovedSum  int64
}

// SplitItems moves quantities from a source ticket's lines to an already
// created destination ticket, in a single transaction: either every move
// applies or none do. A full-quantity move deletes the source line and
// inserts an equivalent line under the destination; a partial move
// shrinks the source line and inserts a new line with a fresh id.
// Quantity and total are conserved exactly across the two tickets.
func SplitItems(ctx context.Context, db *sql.DB, sourceID, destID string, moves []QtyMove, now int64) (*MoveResult, error) {
	if len(moves) == 0 {
		return nil, ErrNothingToMove
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning split transaction: %w", err)
	}
	defer tx.Rollback()

	result := &MoveResult{}
	for _, mv := range moves {
		if mv.Qty <= 0 {
			continue
		}

		var it model.TicketItem
		var options string
		err := tx.QueryRowContext(ctx,
			`SELECT id, ticket_id, sku, name, price, qty, line_total, options, added_at
			 FROM ticket_items WHERE id = ? AND ticket_id = ?`,
			mv.ItemID, sourceID,
		).Scan(&it.ID, &it.TicketID, &it.SKU, &it.Name, &it.Price, &it.Qty,
			&it.LineTotal, &options, &it.AddedAt)
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("line %s not found on ticket %s", mv.ItemID, sourceID)
		}
		if err != nil {
			return nil, fmt.Errorf("loading line %s: %w", mv.ItemID, err)
		}

		if mv.Qty > it.Qty {
			return nil, fmt.Errorf("cannot move %d of %d units of %q", mv.Qty, it.Qty, it.Name)
		}

		moved := model.TicketItem{
			ID:        it.ID,
			TicketID:  destID,
			SKU:       it.SKU,
			Name:      it.Name,
			Price:     it.Price,
			Qty:       mv.Qty,
			LineTotal: it.Price * mv.Qty,
			AddedAt:   now,
		}

		if mv.Qty == it.Qty {
			// Full move: reparent the existing line.
			_, err = tx.ExecContext(ctx,
				`UPDATE ticket_items SET ticket_id = ?, added_at = ? WHERE id = ?`,
				destID, now, it.ID,
			)
			if err != nil {
				return nil, fmt.Errorf("reparenting line %s: %w", it.ID, err)
			}
		} else {
			// Partial move: shrink the source line, insert a new line
			// under the destination.
			remaining := it.Qty - mv.Qty
			_, err = tx.ExecContext(ctx,
				`UPDATE ticket_items SET qty = ?, line_total = price * ? WHERE id = ?`,
				remaining, remaining, it.ID,
			)
			if err != nil {
				return nil, fmt.Errorf("shrinking line %s: %w", it.ID, err)
			}

			moved.ID = uuid.NewString()
			_, err = tx.ExecContext(ctx,
				`INSERT INTO ticket_items (id, ticket_id, sku, name, price, qty, line_total, options, added_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				moved.ID, destID, moved.SKU, moved.Name, moved.Price, moved.Qty,
				moved.LineTotal, options, now,
			)
			if err != nil {
				return nil, fmt.Errorf("inserting moved line: %w", err)
			}
		}

		result.Moved = append(result.Moved, moved)
		result.MovedQty += moved.Qty
		result.MovedSum += moved.LineTotal
	}

	if len(result.Moved) == 0 {
		return nil, ErrNothingToMove
	}

	remaining, err := ticketItemsTx(ctx, tx, sourceID)
	if err != nil {
		return nil, err
	}
	result.Remaining = remaining

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing split: %w", err)
	}
	return result, nil
}

// MergeTickets reparents every line of the source ticket to the
// destination and deletes the then-empty source, in one transaction.
// Both tickets are verified open inside the transaction: a concurrently
// deleted destination or closed source fails the whole merge with
// nothing reparented. Closed tickets are immutable snapshots and can
// be on neither side of a merge.
func MergeTickets(ctx context.Context, db *sql.DB, sourceID, destID string, now int64) ([]model.TicketItem, error) {
	if sourceID == destID {
		return nil, fmt.Errorf("cannot merge a ticket into itself")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning merge transaction: %w", err)
	}
	defer tx.Rollback()

	var sourceStatus string
	err = tx.QueryRowContext(ctx,
		`SELECT status FROM tickets WHERE id = ?`, sourceID,
	).Scan(&sourceStatus)
	if err == sql.ErrNoRows {
		return nil, ErrTicketNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("checking source ticket: %w", err)
	}
	if sourceStatus != model.TicketStatusOpen {
		return nil, ErrTicketClosed
	}

	var destStatus string
	err = tx.QueryRowContext(ctx,
		`SELECT status FROM tickets WHERE id = ?`, destID,
	).Scan(&destStatus)
	if err == sql.ErrNoRows {
		return nil, ErrTicketNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("checking destination ticket: %w", err)
	}
	if destStatus != model.TicketStatusOpen {
		return nil, ErrTicketClosed
	}

	items, err := ticketItemsTx(ctx, tx, sourceID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrNothingToMove
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE ticket_items SET ticket_id = ?, added_at = ? WHERE ticket_id = ?`,
		destID, now, sourceID,
	); err != nil {
		return nil, fmt.Errorf("reparenting source lines: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM tickets WHERE id = ?`, sourceID); err != nil {
		return nil, fmt.Errorf("deleting merged source ticket: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing merge: %w", err)
	}

	for i := range items {
		items[i].TicketID = destID
		items[i].AddedAt = now
	}
	return items, nil
}

// ticketItemsTx reads a ticket's lines inside an open transaction.
func ticketItemsTx(ctx context.Context, tx *sql.Tx, ticketID string) ([]model.TicketItem, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT id, ticket_id, sku, name, price, qty, line_total, options, added_at
		 FROM ticket_items WHERE ticket_id = ? ORDER BY added_at, id`, ticketID,
	)
	if err != nil {
		return nil, fmt.Errorf("reading ticket lines: %w", err)
	}
	defer rows.Close()

	return scanTicketItems(rows)
}
