// Package ticket executes split, merge, restock, and lifecycle
// mutations as atomic local transactions with an auditable event trail.
package ticket

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/counterline/counterline/internal/model"
	"github.com/counterline/counterline/internal/outbox"
	"github.com/counterline/counterline/internal/store"
	"github.com/counterline/counterline/internal/tenant"
)

// ErrNoPackaging means a restock was requested for an item with no
// configured packaging unit; the caller must surface this, not queue it.
var ErrNoPackaging = errors.New("item has no packaging configured")

// Engine runs ticket and restock mutations. Every mutation commits
// locally first, then takes the try-then-queue path to the remote.
type Engine struct {
	DB      *sql.DB
	Deliver outbox.DeliverFunc
	Logger  *zap.Logger

	now   func() time.Time
	newID func() string
}

// NewEngine wires a mutation engine over the local store and a remote
// delivery call.
func NewEngine(db *sql.DB, deliver outbox.DeliverFunc, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		DB:      db,
		Deliver: deliver,
		Logger:  logger,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// Open creates a new open ticket.
func (e *Engine) Open(ctx context.Context, tctx tenant.Context, name, openedBy string) (*model.Ticket, error) {
	now := e.now().UnixMilli()
	t := model.Ticket{
		ID:       e.newID(),
		Name:     name,
		OpenedBy: openedBy,
		OpenedAt: now,
		Status:   model.TicketStatusOpen,
	}
	if err := store.CreateTicket(ctx, e.DB, t); err != nil {
		return nil, err
	}

	e.emit(ctx, EventOpen, "ticket:"+t.ID, "ticket", t.ID, openedBy, map[string]any{
		"ticketId": t.ID,
		"name":     t.Name,
		"openedAt": t.OpenedAt,
	}, now)
	return &t, nil
}

// AddItem appends a line to an open ticket.
func (e *Engine) AddItem(ctx context.Context, tctx tenant.Context, ticketID string, item model.TicketItem, actor string) (*model.TicketItem, error) {
	if item.Qty <= 0 {
		return nil, fmt.Errorf("quantity must be positive")
	}
	now := e.now().UnixMilli()
	item.ID = e.newID()
	item.TicketID = ticketID
	item.LineTotal = item.Price * item.Qty
	item.AddedAt = now

	if err := store.AddTicketItem(ctx, e.DB, item); err != nil {
		return nil, err
	}

	e.emit(ctx, EventItemAdd, "ticket:"+ticketID, "ticket_item", item.ID, actor, map[string]any{
		"ticketId": ticketID,
		"itemId":   item.ID,
		"sku":      item.SKU,
		"name":     item.Name,
		"qty":      item.Qty,
		"price":    item.Price,
	}, now)
	return &item, nil
}

// UpdateItemQty changes a line's quantity, recomputing its total.
func (e *Engine) UpdateItemQty(ctx context.Context, tctx tenant.Context, ticketID, itemID string, qty int64, actor string) error {
	ticket, err := store.GetTicket(ctx, e.DB, ticketID)
	if err != nil {
		return err
	}
	if ticket == nil {
		return store.ErrTicketNotFound
	}
	if ticket.Status != model.TicketStatusOpen {
		return store.ErrTicketClosed
	}

	if err := store.UpdateTicketItemQty(ctx, e.DB, ticketID, itemID, qty); err != nil {
		return err
	}

	now := e.now().UnixMilli()
	e.emit(ctx, EventItemQty, "ticket:"+ticketID, "ticket_item", itemID, actor, map[string]any{
		"ticketId": ticketID,
		"itemId":   itemID,
		"qty":      qty,
	}, now)
	return nil
}

// RemoveItem deletes a line from an open ticket.
func (e *Engine) RemoveItem(ctx context.Context, tctx tenant.Context, ticketID, itemID, actor string) error {
	ticket, err := store.GetTicket(ctx, e.DB, ticketID)
	if err != nil {
		return err
	}
	if ticket == nil {
		return store.ErrTicketNotFound
	}
	if ticket.Status != model.TicketStatusOpen {
		return store.ErrTicketClosed
	}

	if err := store.RemoveTicketItem(ctx, e.DB, ticketID, itemID); err != nil {
		return err
	}

	now := e.now().UnixMilli()
	e.emit(ctx, EventItemDel, "ticket:"+ticketID, "ticket_item", itemID, actor, map[string]any{
		"ticketId": ticketID,
		"itemId":   itemID,
	}, now)
	return nil
}

// Close terminates an open ticket with payment details. Closed tickets
// are read-only snapshots.
func (e *Engine) Close(ctx context.Context, tctx tenant.Context, ticketID, closedBy, payMethod string, payAmount int64) error {
	now := e.now().UnixMilli()
	if err := store.CloseTicket(ctx, e.DB, ticketID, closedBy, payMethod, payAmount, now); err != nil {
		return err
	}

	e.emit(ctx, EventClose, "ticket:"+ticketID, "ticket", ticketID, closedBy, map[string]any{
		"ticketId":  ticketID,
		"payMethod": payMethod,
		"payAmount": payAmount,
		"closedAt":  now,
	}, now)
	return nil
}

// Split moves the given quantities off a source ticket onto a brand-new
// open ticket and emits a ticket.split event. The item moves are one
// atomic transaction; if it fails after the new ticket was created, the
// orphan is cleaned up best-effort.
func (e *Engine) Split(ctx context.Context, tctx tenant.Context, sourceID string, moves []store.QtyMove, newName, actor string) (*model.Ticket, *SplitEvent, error) {
	source, err := store.GetTicket(ctx, e.DB, sourceID)
	if err != nil {
		return nil, nil, err
	}
	if source == nil {
		return nil, nil, store.ErrTicketNotFound
	}
	if source.Status != model.TicketStatusOpen {
		return nil, nil, store.ErrTicketClosed
	}

	now := e.now().UnixMilli()
	if newName == "" {
		newName = source.Name + " (split)"
	}
	dest := model.Ticket{
		ID:       e.newID(),
		Name:     newName,
		OpenedBy: actor,
		OpenedAt: now,
		Status:   model.TicketStatusOpen,
	}
	if err := store.CreateTicket(ctx, e.DB, dest); err != nil {
		return nil, nil, err
	}

	result, err := store.SplitItems(ctx, e.DB, sourceID, dest.ID, moves, now)
	if err != nil {
		// Best-effort compensating cleanup of the orphaned ticket.
		// Not a two-phase commit: a residual orphan is accepted and
		// logged rather than left silent.
		if cerr := store.DeleteTicket(ctx, e.DB, dest.ID); cerr != nil {
			e.Logger.Error("split rollback left an orphaned ticket",
				zap.String("ticket", dest.ID), zap.Error(cerr))
		}
		return nil, nil, err
	}

	event := &SplitEvent{
		SourceID:   source.ID,
		SourceName: source.Name,
		DestID:     dest.ID,
		DestName:   dest.Name,
		ItemsMoved: movedLines(result.Moved),
		MovedQty:   result.MovedQty,
		MovedTotal: result.MovedSum,
		Remaining:  movedLines(result.Remaining),
		Actor:      actor,
		Timestamp:  now,
	}
	e.emit(ctx, EventSplit, "ticket:"+sourceID, "ticket", sourceID, actor, event, now)
	return &dest, event, nil
}

// Merge moves every line of the source ticket onto an existing open
// destination, deletes the source, and emits a ticket.merge event with
// destination snapshots from before and after.
func (e *Engine) Merge(ctx context.Context, tctx tenant.Context, sourceID, destID, actor string) (*MergeEvent, error) {
	if sourceID == destID {
		return nil, fmt.Errorf("cannot merge a ticket into itself")
	}

	source, err := store.GetTicket(ctx, e.DB, sourceID)
	if err != nil {
		return nil, err
	}
	if source == nil {
		return nil, store.ErrTicketNotFound
	}
	if source.Status != model.TicketStatusOpen {
		return nil, store.ErrTicketClosed
	}

	dest, err := store.GetTicket(ctx, e.DB, destID)
	if err != nil {
		return nil, err
	}
	destName := ""
	if dest != nil {
		destName = dest.Name
	}

	beforeItems, beforeTotal, err := store.TicketTotals(ctx, e.DB, destID)
	if err != nil {
		return nil, err
	}

	now := e.now().UnixMilli()
	moved, err := store.MergeTickets(ctx, e.DB, sourceID, destID, now)
	if err != nil {
		return nil, err
	}

	afterItems, afterTotal, err := store.TicketTotals(ctx, e.DB, destID)
	if err != nil {
		return nil, err
	}

	event := &MergeEvent{
		SourceID:   source.ID,
		SourceName: source.Name,
		DestID:     destID,
		DestName:   destName,
		Merged:     movedLines(moved),
		DestBefore: TicketSnapshot{Items: beforeItems, Total: beforeTotal},
		DestAfter:  TicketSnapshot{Items: afterItems, Total: afterTotal},
		Actor:      actor,
		Timestamp:  now,
	}
	for _, line := range event.Merged {
		event.MergedQty += line.Qty
		event.MergedSum += line.LineTotal
	}

	e.emit(ctx, EventMerge, "ticket:"+destID, "ticket", destID, actor, event, now)
	return event, nil
}

// Restock records an inventory replenishment: totalUnits = packages ×
// unitsPerPackage + extraUnits, using the item's configured packaging.
// The restock record and its audit entry commit in one transaction
// before the remote is attempted.
func (e *Engine) Restock(ctx context.Context, tctx tenant.Context, itemID string, packages, extraUnits int64, actor, notes string) (*model.RestockRecord, error) {
	unit, err := store.GetUnit(ctx, e.DB, itemID)
	if err != nil {
		return nil, err
	}
	if unit == nil {
		return nil, fmt.Errorf("item %s: %w", itemID, ErrNoPackaging)
	}

	now := e.now().UnixMilli()
	record := model.RestockRecord{
		ID:              e.newID(),
		ItemID:          itemID,
		Timestamp:       now,
		Unit:            unit.ConsumeUnit,
		Package:         unit.PurchaseUnit,
		UnitsPerPackage: unit.UnitsPerPackage,
		Packages:        packages,
		ExtraUnits:      extraUnits,
		TotalUnits:      packages*unit.UnitsPerPackage + extraUnits,
		Actor:           actor,
		Notes:           notes,
	}

	details, _ := json.Marshal(record)
	audit := model.AuditEntry{
		ID:        e.newID(),
		Timestamp: now,
		Action:    EventRestock,
		Entity:    "item",
		EntityID:  itemID,
		Actor:     actor,
		Details:   details,
	}
	if err := store.CreateRestock(ctx, e.DB, record, audit); err != nil {
		return nil, err
	}

	if err := outbox.TryThenQueue(ctx, e.DB, e.Deliver, EventRestock, "item:"+itemID, record, now); err != nil {
		return nil, err
	}
	return &record, nil
}

// emit records an audit entry and forwards the event remotely via
// try-then-queue. Event delivery is decoupled from the local
// transaction's success: the local commit already happened.
func (e *Engine) emit(ctx context.Context, action, resource, entity, entityID, actor string, payload any, now int64) {
	details, err := json.Marshal(payload)
	if err != nil {
		e.Logger.Error("encoding event payload", zap.String("action", action), zap.Error(err))
		return
	}

	audit := model.AuditEntry{
		ID:        e.newID(),
		Timestamp: now,
		Action:    action,
		Entity:    entity,
		EntityID:  entityID,
		Actor:     actor,
		Details:   details,
	}
	if err := store.AppendAudit(ctx, e.DB, audit); err != nil {
		e.Logger.Error("appending audit entry", zap.String("action", action), zap.Error(err))
	}

	if err := outbox.TryThenQueue(ctx, e.DB, e.Deliver, action, resource, payload, now); err != nil {
		e.Logger.Error("event delivery rejected", zap.String("action", action), zap.Error(err))
	}
}
