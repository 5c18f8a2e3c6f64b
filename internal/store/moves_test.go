package store

import (
	"context"
	"errors"
	"testing"

	"github.com/counterline/counterline/internal/db"
	"github.com/counterline/counterline/internal/model"
)

func TestSplitItemsPartialMove(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	CreateTicket(ctx, database, model.Ticket{ID: "t1", Name: "Table 1", OpenedAt: 1000})
	CreateTicket(ctx, database, model.Ticket{ID: "t2", Name: "Table 1 (split)", OpenedAt: 2000})
	AddTicketItem(ctx, database, model.TicketItem{
		ID: "l1", TicketID: "t1", Name: "Coffee", Price: 250, Qty: 3, AddedAt: 1001,
	})

	res, err := SplitItems(ctx, database, "t1", "t2", []QtyMove{{ItemID: "l1", Qty: 2}}, 2001)
	if err != nil {
		t.Fatalf("SplitItems: %v", err)
	}

	if res.MovedQty != 2 || res.MovedSum != 500 {
		t.Errorf("expected moved qty 2 / sum 500, got %d / %d", res.MovedQty, res.MovedSum)
	}

	source, _ := GetTicketItems(ctx, database, "t1")
	if len(source) != 1 || source[0].Qty != 1 || source[0].LineTotal != 250 {
		t.Errorf("expected source line qty 1 total 250, got %+v", source)
	}

	dest, _ := GetTicketItems(ctx, database, "t2")
	if len(dest) != 1 || dest[0].Qty != 2 || dest[0].LineTotal != 500 {
		t.Errorf("expected dest line qty 2 total 500, got %+v", dest)
	}
	if dest[0].ID == "l1" {
		t.Error("partial move must mint a new line id")
	}
}

func TestSplitItemsFullMoveReparents(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	CreateTicket(ctx, database, model.Ticket{ID: "t1", OpenedAt: 1000})
	CreateTicket(ctx, database, model.Ticket{ID: "t2", OpenedAt: 2000})
	AddTicketItem(ctx, database, model.TicketItem{
		ID: "l1", TicketID: "t1", Name: "Tea", Price: 300, Qty: 2, AddedAt: 1001,
	})

	res, err := SplitItems(ctx, database, "t1", "t2", []QtyMove{{ItemID: "l1", Qty: 2}}, 2001)
	if err != nil {
		t.Fatalf("SplitItems: %v", err)
	}
	if len(res.Remaining) != 0 {
		t.Errorf("expected no remaining lines, got %d", len(res.Remaining))
	}

	dest, _ := GetTicketItems(ctx, database, "t2")
	if len(dest) != 1 || dest[0].ID != "l1" {
		t.Errorf("full move should keep the line id, got %+v", dest)
	}
}

func TestSplitItemsConservation(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	CreateTicket(ctx, database, model.Ticket{ID: "t1", OpenedAt: 1000})
	CreateTicket(ctx, database, model.Ticket{ID: "t2", OpenedAt: 2000})
	AddTicketItem(ctx, database, model.TicketItem{ID: "l1", TicketID: "t1", Name: "Coffee", Price: 250, Qty: 3, AddedAt: 1001})
	AddTicketItem(ctx, database, model.TicketItem{ID: "l2", TicketID: "t1", Name: "Bagel", Price: 400, Qty: 2, AddedAt: 1002})

	qtyBefore, totalBefore, _ := TicketTotals(ctx, database, "t1")

	res, err := SplitItems(ctx, database, "t1", "t2",
		[]QtyMove{{ItemID: "l1", Qty: 1}, {ItemID: "l2", Qty: 2}}, 2001)
	if err != nil {
		t.Fatalf("SplitItems: %v", err)
	}

	qtyAfter, totalAfter, _ := TicketTotals(ctx, database, "t1")
	destQty, destTotal, _ := TicketTotals(ctx, database, "t2")

	if qtyBefore != qtyAfter+res.MovedQty {
		t.Errorf("quantity not conserved: before %d, after %d + moved %d", qtyBefore, qtyAfter, res.MovedQty)
	}
	if totalBefore != totalAfter+res.MovedSum {
		t.Errorf("total not conserved: before %d, after %d + moved %d", totalBefore, totalAfter, res.MovedSum)
	}
	if destQty != res.MovedQty || destTotal != res.MovedSum {
		t.Errorf("destination got %d/%d, expected %d/%d", destQty, destTotal, res.MovedQty, res.MovedSum)
	}
}

func TestSplitItemsRejectsOversizedMove(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	CreateTicket(ctx, database, model.Ticket{ID: "t1", OpenedAt: 1000})
	CreateTicket(ctx, database, model.Ticket{ID: "t2", OpenedAt: 2000})
	AddTicketItem(ctx, database, model.TicketItem{ID: "l1", TicketID: "t1", Name: "Coffee", Price: 250, Qty: 1, AddedAt: 1001})

	_, err := SplitItems(ctx, database, "t1", "t2", []QtyMove{{ItemID: "l1", Qty: 5}}, 2001)
	if err == nil {
		t.Fatal("expected error moving more than available")
	}

	// Nothing may have changed.
	qty, total, _ := TicketTotals(ctx, database, "t1")
	if qty != 1 || total != 250 {
		t.Errorf("source mutated by failed split: qty %d total %d", qty, total)
	}
}

func TestMergeTickets(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	CreateTicket(ctx, database, model.Ticket{ID: "t1", Name: "Bar", OpenedAt: 1000})
	CreateTicket(ctx, database, model.Ticket{ID: "t2", Name: "Patio", OpenedAt: 1500})
	AddTicketItem(ctx, database, model.TicketItem{ID: "l1", TicketID: "t1", Name: "Coffee", Price: 250, Qty: 2, AddedAt: 1001})
	AddTicketItem(ctx, database, model.TicketItem{ID: "l2", TicketID: "t2", Name: "Tea", Price: 300, Qty: 1, AddedAt: 1501})

	moved, err := MergeTickets(ctx, database, "t1", "t2", 2000)
	if err != nil {
		t.Fatalf("MergeTickets: %v", err)
	}
	if len(moved) != 1 || moved[0].TicketID != "t2" {
		t.Errorf("expected 1 line reparented to t2, got %+v", moved)
	}

	// Source ticket is gone.
	source, _ := GetTicket(ctx, database, "t1")
	if source != nil {
		t.Error("expected source ticket deleted after merge")
	}

	destQty, destTotal, _ := TicketTotals(ctx, database, "t2")
	if destQty != 3 || destTotal != 800 {
		t.Errorf("expected destination qty 3 total 800, got %d/%d", destQty, destTotal)
	}
}

func TestMergeIntoMissingDestination(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	CreateTicket(ctx, database, model.Ticket{ID: "t1", OpenedAt: 1000})
	AddTicketItem(ctx, database, model.TicketItem{ID: "l1", TicketID: "t1", Name: "Coffee", Price: 250, Qty: 2, AddedAt: 1001})

	_, err := MergeTickets(ctx, database, "t1", "gone", 2000)
	if !errors.Is(err, ErrTicketNotFound) {
		t.Fatalf("expected ErrTicketNotFound, got %v", err)
	}

	// Source untouched, nothing reparented.
	items, _ := GetTicketItems(ctx, database, "t1")
	if len(items) != 1 || items[0].TicketID != "t1" {
		t.Errorf("source mutated by failed merge: %+v", items)
	}
}

func TestMergeEmptySourceRejected(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	CreateTicket(ctx, database, model.Ticket{ID: "t1", OpenedAt: 1000})
	CreateTicket(ctx, database, model.Ticket{ID: "t2", OpenedAt: 1500})

	_, err := MergeTickets(ctx, database, "t1", "t2", 2000)
	if !errors.Is(err, ErrNothingToMove) {
		t.Fatalf("expected ErrNothingToMove, got %v", err)
	}
}

func TestMergeClosedSource(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	CreateTicket(ctx, database, model.Ticket{ID: "t1", OpenedAt: 1000})
	CreateTicket(ctx, database, model.Ticket{ID: "t2", OpenedAt: 1500})
	AddTicketItem(ctx, database, model.TicketItem{ID: "l1", TicketID: "t1", Name: "Coffee", Price: 250, Qty: 2, AddedAt: 1001})
	if err := CloseTicket(ctx, database, "t1", "kiera", "cash", 500, 1600); err != nil {
		t.Fatalf("CloseTicket: %v", err)
	}

	_, err := MergeTickets(ctx, database, "t1", "t2", 2000)
	if !errors.Is(err, ErrTicketClosed) {
		t.Fatalf("expected ErrTicketClosed, got %v", err)
	}

	// The closed snapshot is untouched: ticket still there, line still
	// on it, nothing reparented to the destination.
	closed, _ := GetTicket(ctx, database, "t1")
	if closed == nil || closed.Status != model.TicketStatusClosed {
		t.Fatalf("closed source mutated by rejected merge: %+v", closed)
	}
	items, _ := GetTicketItems(ctx, database, "t1")
	if len(items) != 1 || items[0].TicketID != "t1" {
		t.Errorf("closed source lines mutated: %+v", items)
	}
	destItems, _ := GetTicketItems(ctx, database, "t2")
	if len(destItems) != 0 {
		t.Errorf("destination gained lines from a rejected merge: %+v", destItems)
	}
}

func TestMergeIntoClosedDestination(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	CreateTicket(ctx, database, model.Ticket{ID: "t1", OpenedAt: 1000})
	CreateTicket(ctx, database, model.Ticket{ID: "t2", OpenedAt: 1500})
	AddTicketItem(ctx, database, model.TicketItem{ID: "l1", TicketID: "t1", Name: "Coffee", Price: 250, Qty: 1, AddedAt: 1001})
	if err := CloseTicket(ctx, database, "t2", "kiera", "cash", 0, 1600); err != nil {
		t.Fatalf("CloseTicket: %v", err)
	}

	_, err := MergeTickets(ctx, database, "t1", "t2", 2000)
	if !errors.Is(err, ErrTicketClosed) {
		t.Fatalf("expected ErrTicketClosed, got %v", err)
	}
}
