package store

import (
	"context"
	"errors"
	"testing"

	"github.com/counterline/counterline/internal/db"
	"github.com/counterline/counterline/internal/model"
)

func TestCloseTicketIsTerminal(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	CreateTicket(ctx, database, model.Ticket{ID: "t1", OpenedAt: 1000})

	if err := CloseTicket(ctx, database, "t1", "kiera", "card", 750, 2000); err != nil {
		t.Fatalf("CloseTicket: %v", err)
	}

	got, _ := GetTicket(ctx, database, "t1")
	if got.Status != model.TicketStatusClosed || got.PayAmount != 750 {
		t.Errorf("unexpected closed ticket: %+v", got)
	}

	// Closing again fails; closed tickets are read-only snapshots.
	err := CloseTicket(ctx, database, "t1", "kiera", "cash", 100, 3000)
	if !errors.Is(err, ErrTicketClosed) {
		t.Fatalf("expected ErrTicketClosed, got %v", err)
	}

	// And they reject new lines.
	err = AddTicketItem(ctx, database, model.TicketItem{
		ID: "l1", TicketID: "t1", Name: "Coffee", Price: 250, Qty: 1, AddedAt: 3001,
	})
	if !errors.Is(err, ErrTicketClosed) {
		t.Fatalf("expected ErrTicketClosed adding to closed ticket, got %v", err)
	}
}

func TestCloseMissingTicket(t *testing.T) {
	database := db.NewTestDB(t)

	err := CloseTicket(context.Background(), database, "missing", "", "", 0, 1000)
	if !errors.Is(err, ErrTicketNotFound) {
		t.Fatalf("expected ErrTicketNotFound, got %v", err)
	}
}

func TestAddTicketItemComputesLineTotal(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	CreateTicket(ctx, database, model.Ticket{ID: "t1", OpenedAt: 1000})
	AddTicketItem(ctx, database, model.TicketItem{
		ID: "l1", TicketID: "t1", Name: "Latte", Price: 450, Qty: 3,
		Options: []string{"oat milk"}, AddedAt: 1001,
	})

	items, _ := GetTicketItems(ctx, database, "t1")
	if len(items) != 1 || items[0].LineTotal != 1350 {
		t.Fatalf("expected line total 1350, got %+v", items)
	}
	if len(items[0].Options) != 1 || items[0].Options[0] != "oat milk" {
		t.Errorf("options did not round-trip: %+v", items[0].Options)
	}
}

func TestCreateRestockWithAudit(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	err := CreateRestock(ctx, database,
		model.RestockRecord{
			ID: "r1", ItemID: "m1", Timestamp: 1000, Unit: "g", Package: "bag",
			UnitsPerPackage: 1000, Packages: 2, ExtraUnits: 150, TotalUnits: 2150,
			Actor: "kiera",
		},
		model.AuditEntry{
			ID: "a1", Timestamp: 1000, Action: "inventory.restock",
			Entity: "item", EntityID: "m1", Actor: "kiera",
		},
	)
	if err != nil {
		t.Fatalf("CreateRestock: %v", err)
	}

	records, _ := ListRestocks(ctx, database, "m1")
	if len(records) != 1 || records[0].TotalUnits != 2150 {
		t.Errorf("unexpected restock records: %+v", records)
	}

	audit, _ := ListAudit(ctx, database, "item", 0)
	if len(audit) != 1 || audit[0].Action != "inventory.restock" {
		t.Errorf("expected matching audit entry, got %+v", audit)
	}
}
