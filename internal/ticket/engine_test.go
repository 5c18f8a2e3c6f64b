package ticket

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/counterline/counterline/internal/db"
	"github.com/counterline/counterline/internal/model"
	"github.com/counterline/counterline/internal/remote"
	"github.com/counterline/counterline/internal/store"
	"github.com/counterline/counterline/internal/tenant"
)

// recordingDeliver captures delivered events, optionally simulating an
// unreachable remote.
type recordingDeliver struct {
	offline bool
	events  []string
}

func (r *recordingDeliver) deliver(ctx context.Context, action string, payload json.RawMessage) error {
	if r.offline {
		return fmt.Errorf("%w: offline", remote.ErrRemote)
	}
	r.events = append(r.events, action)
	return nil
}

func newTestEngine(t *testing.T) (*Engine, *recordingDeliver, *sql.DB) {
	t.Helper()
	database := db.NewTestDB(t)
	rec := &recordingDeliver{}
	return NewEngine(database, rec.deliver, nil), rec, database
}

func testTenant() tenant.Context {
	return tenant.Context{ID: "ten-a", Config: model.TenantConfig{TenantID: "ten-a"}}
}

func TestSplitScenario(t *testing.T) {
	e, rec, database := newTestEngine(t)
	ctx := context.Background()
	tctx := testTenant()

	t1, err := e.Open(ctx, tctx, "Table 1", "kiera")
	require.NoError(t, err)
	coffee, err := e.AddItem(ctx, tctx, t1.ID, model.TicketItem{Name: "Coffee", Price: 250, Qty: 3}, "kiera")
	require.NoError(t, err)

	t2, event, err := e.Split(ctx, tctx, t1.ID, []store.QtyMove{{ItemID: coffee.ID, Qty: 2}}, "", "kiera")
	require.NoError(t, err)

	// T1 keeps one coffee at 2.50; T2 got two at 5.00.
	sourceItems, _ := store.GetTicketItems(ctx, database, t1.ID)
	require.Len(t, sourceItems, 1)
	assert.Equal(t, int64(1), sourceItems[0].Qty)
	assert.Equal(t, int64(250), sourceItems[0].LineTotal)

	destItems, _ := store.GetTicketItems(ctx, database, t2.ID)
	require.Len(t, destItems, 1)
	assert.Equal(t, int64(2), destItems[0].Qty)
	assert.Equal(t, int64(500), destItems[0].LineTotal)

	// Event carries the itemized move.
	require.Len(t, event.ItemsMoved, 1)
	assert.Equal(t, "Coffee", event.ItemsMoved[0].Name)
	assert.Equal(t, int64(2), event.ItemsMoved[0].Qty)
	assert.Equal(t, int64(500), event.ItemsMoved[0].LineTotal)
	assert.Equal(t, t1.ID, event.SourceID)
	assert.Equal(t, t2.ID, event.DestID)
	assert.Contains(t, rec.events, EventSplit)

	// And the audit trail recorded it.
	audit, _ := store.ListAudit(ctx, database, "ticket", 0)
	var actions []string
	for _, a := range audit {
		actions = append(actions, a.Action)
	}
	assert.Contains(t, actions, EventSplit)
}

func TestSplitFailureCleansUpOrphan(t *testing.T) {
	e, _, database := newTestEngine(t)
	ctx := context.Background()
	tctx := testTenant()

	t1, _ := e.Open(ctx, tctx, "Table 1", "kiera")
	item, _ := e.AddItem(ctx, tctx, t1.ID, model.TicketItem{Name: "Coffee", Price: 250, Qty: 1}, "kiera")

	// Moving more than available fails inside the transaction.
	_, _, err := e.Split(ctx, tctx, t1.ID, []store.QtyMove{{ItemID: item.ID, Qty: 5}}, "", "kiera")
	require.Error(t, err)

	// No orphaned destination ticket remains.
	tickets, _ := store.ListTickets(ctx, database, "")
	require.Len(t, tickets, 1)
	assert.Equal(t, t1.ID, tickets[0].ID)

	// Source untouched.
	items, _ := store.GetTicketItems(ctx, database, t1.ID)
	require.Len(t, items, 1)
	assert.Equal(t, int64(1), items[0].Qty)
}

func TestSplitClosedSourceRejected(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()
	tctx := testTenant()

	t1, _ := e.Open(ctx, tctx, "Table 1", "kiera")
	require.NoError(t, e.Close(ctx, tctx, t1.ID, "kiera", "cash", 0))

	_, _, err := e.Split(ctx, tctx, t1.ID, []store.QtyMove{{ItemID: "x", Qty: 1}}, "", "kiera")
	assert.ErrorIs(t, err, store.ErrTicketClosed)
}

func TestMergeScenario(t *testing.T) {
	e, rec, database := newTestEngine(t)
	ctx := context.Background()
	tctx := testTenant()

	t1, _ := e.Open(ctx, tctx, "Bar", "kiera")
	t2, _ := e.Open(ctx, tctx, "Patio", "kiera")
	e.AddItem(ctx, tctx, t1.ID, model.TicketItem{Name: "Coffee", Price: 250, Qty: 2}, "kiera")
	e.AddItem(ctx, tctx, t2.ID, model.TicketItem{Name: "Tea", Price: 300, Qty: 1}, "kiera")

	event, err := e.Merge(ctx, tctx, t1.ID, t2.ID, "kiera")
	require.NoError(t, err)

	assert.Equal(t, TicketSnapshot{Items: 1, Total: 300}, event.DestBefore)
	assert.Equal(t, TicketSnapshot{Items: 3, Total: 800}, event.DestAfter)
	assert.Equal(t, int64(2), event.MergedQty)
	assert.Equal(t, int64(500), event.MergedSum)
	assert.Contains(t, rec.events, EventMerge)

	// Conservation: destination gained exactly what the source held.
	assert.Equal(t, event.DestBefore.Items+event.MergedQty, event.DestAfter.Items)
	assert.Equal(t, event.DestBefore.Total+event.MergedSum, event.DestAfter.Total)

	source, _ := store.GetTicket(ctx, database, t1.ID)
	assert.Nil(t, source)
}

func TestMergeClosedSourceRejected(t *testing.T) {
	e, _, database := newTestEngine(t)
	ctx := context.Background()
	tctx := testTenant()

	t1, _ := e.Open(ctx, tctx, "Bar", "kiera")
	t2, _ := e.Open(ctx, tctx, "Patio", "kiera")
	e.AddItem(ctx, tctx, t1.ID, model.TicketItem{Name: "Coffee", Price: 250, Qty: 2}, "kiera")
	require.NoError(t, e.Close(ctx, tctx, t1.ID, "kiera", "cash", 500))

	_, err := e.Merge(ctx, tctx, t1.ID, t2.ID, "kiera")
	assert.ErrorIs(t, err, store.ErrTicketClosed)

	// The closed ticket stays intact: still present, lines untouched.
	closed, _ := store.GetTicket(ctx, database, t1.ID)
	require.NotNil(t, closed)
	assert.Equal(t, model.TicketStatusClosed, closed.Status)

	items, _ := store.GetTicketItems(ctx, database, t1.ID)
	require.Len(t, items, 1)
	assert.Equal(t, t1.ID, items[0].TicketID)

	destItems, _ := store.GetTicketItems(ctx, database, t2.ID)
	assert.Empty(t, destItems)
}

func TestMergeIntoMissingDestinationFailsCleanly(t *testing.T) {
	e, _, database := newTestEngine(t)
	ctx := context.Background()
	tctx := testTenant()

	t1, _ := e.Open(ctx, tctx, "Bar", "kiera")
	e.AddItem(ctx, tctx, t1.ID, model.TicketItem{Name: "Coffee", Price: 250, Qty: 2}, "kiera")

	_, err := e.Merge(ctx, tctx, t1.ID, "deleted-elsewhere", "kiera")
	assert.ErrorIs(t, err, store.ErrTicketNotFound)

	// Nothing reparented, source unchanged.
	items, _ := store.GetTicketItems(ctx, database, t1.ID)
	require.Len(t, items, 1)
	assert.Equal(t, t1.ID, items[0].TicketID)
}

func TestLineMutationsScopedToTheirTicket(t *testing.T) {
	e, _, database := newTestEngine(t)
	ctx := context.Background()
	tctx := testTenant()

	t1, _ := e.Open(ctx, tctx, "Bar", "kiera")
	t2, _ := e.Open(ctx, tctx, "Patio", "kiera")
	coffee, err := e.AddItem(ctx, tctx, t2.ID, model.TicketItem{Name: "Coffee", Price: 250, Qty: 2}, "kiera")
	require.NoError(t, err)

	// Pairing another ticket's line id with t1 must mutate nothing,
	// even though both tickets are open.
	err = e.UpdateItemQty(ctx, tctx, t1.ID, coffee.ID, 5, "kiera")
	require.Error(t, err)
	err = e.RemoveItem(ctx, tctx, t1.ID, coffee.ID, "kiera")
	require.Error(t, err)

	items, _ := store.GetTicketItems(ctx, database, t2.ID)
	require.Len(t, items, 1)
	assert.Equal(t, int64(2), items[0].Qty)
	assert.Equal(t, int64(500), items[0].LineTotal)

	// And no audit entry was written for the failed attempts.
	audit, _ := store.ListAudit(ctx, database, "ticket_item", 0)
	var actions []string
	for _, a := range audit {
		actions = append(actions, a.Action)
	}
	assert.Equal(t, []string{EventItemAdd}, actions)
}

func TestRestockComputesTotalUnits(t *testing.T) {
	e, rec, database := newTestEngine(t)
	ctx := context.Background()
	tctx := testTenant()

	store.MergeUnits(ctx, database, []model.Unit{
		{ItemID: "m1", ConsumeUnit: "g", PurchaseUnit: "bag", UnitsPerPackage: 1000, UpdatedAt: 100},
	})

	record, err := e.Restock(ctx, tctx, "m1", 2, 150, "kiera", "weekly delivery")
	require.NoError(t, err)
	assert.Equal(t, int64(2150), record.TotalUnits)
	assert.Equal(t, "bag", record.Package)
	assert.Contains(t, rec.events, EventRestock)

	records, _ := store.ListRestocks(ctx, database, "m1")
	require.Len(t, records, 1)

	audit, _ := store.ListAudit(ctx, database, "item", 0)
	require.Len(t, audit, 1)
	assert.Equal(t, EventRestock, audit[0].Action)
}

func TestRestockUnconfiguredItemFailsFast(t *testing.T) {
	e, _, database := newTestEngine(t)
	ctx := context.Background()

	_, err := e.Restock(ctx, testTenant(), "ghost", 1, 0, "kiera", "")
	assert.ErrorIs(t, err, ErrNoPackaging)

	// Validation failures are never queued.
	pending, _ := store.PendingOutbox(ctx, database)
	assert.Empty(t, pending)
}

func TestRestockOfflineQueues(t *testing.T) {
	e, rec, database := newTestEngine(t)
	rec.offline = true
	ctx := context.Background()

	store.MergeUnits(ctx, database, []model.Unit{
		{ItemID: "m1", ConsumeUnit: "g", PurchaseUnit: "bag", UnitsPerPackage: 500, UpdatedAt: 100},
	})

	record, err := e.Restock(ctx, testTenant(), "m1", 3, 0, "kiera", "")
	require.NoError(t, err)
	assert.Equal(t, int64(1500), record.TotalUnits)

	// The same payload went to the outbox instead of being lost.
	pending, _ := store.PendingOutbox(ctx, database)
	require.Len(t, pending, 1)
	assert.Equal(t, EventRestock, pending[0].Action)
	assert.Equal(t, "item:m1", pending[0].Resource)

	var queued model.RestockRecord
	require.NoError(t, json.Unmarshal(pending[0].Payload, &queued))
	assert.Equal(t, record.ID, queued.ID)
	assert.Equal(t, int64(1500), queued.TotalUnits)
}

func TestMutationsOfflineStillCommitLocally(t *testing.T) {
	e, rec, database := newTestEngine(t)
	rec.offline = true
	ctx := context.Background()
	tctx := testTenant()

	t1, err := e.Open(ctx, tctx, "Table 1", "kiera")
	require.NoError(t, err)
	_, err = e.AddItem(ctx, tctx, t1.ID, model.TicketItem{Name: "Coffee", Price: 250, Qty: 1}, "kiera")
	require.NoError(t, err)
	require.NoError(t, e.Close(ctx, tctx, t1.ID, "kiera", "cash", 250))

	got, _ := store.GetTicket(ctx, database, t1.ID)
	require.NotNil(t, got)
	assert.Equal(t, model.TicketStatusClosed, got.Status)

	// Three mutations, three queued deliveries.
	pending, _ := store.PendingOutbox(ctx, database)
	assert.Len(t, pending, 3)
}
