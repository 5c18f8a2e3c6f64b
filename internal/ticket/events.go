package ticket

import "github.com/counterline/counterline/internal/model"

// Domain event actions delivered to the remote system and the audit log.
const (
	EventOpen    = "ticket.open"
	EventClose   = "ticket.close"
	EventItemAdd = "ticket.item.add"
	EventItemQty = "ticket.item.qty"
	EventItemDel = "ticket.item.remove"
	EventSplit   = "ticket.split"
	EventMerge   = "ticket.merge"
	EventRestock = "inventory.restock"
)

// MovedLine is one line item as carried inside a split or merge event.
type MovedLine struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Qty       int64  `json:"qty"`
	Price     int64  `json:"price"`
	LineTotal int64  `json:"lineTotal"`
}

// TicketSnapshot captures a ticket's item count and total at a point in
// time, for reconciliation of merge events.
type TicketSnapshot struct {
	Items int64 `json:"items"`
	Total int64 `json:"total"`
}

// SplitEvent is the ticket.split payload: the itemized moved lines,
// their aggregates, and what stayed behind on the source.
type SplitEvent struct {
	SourceID   string      `json:"sourceId"`
	SourceName string      `json:"sourceName"`
	DestID     string      `json:"destId"`
	DestName   string      `json:"destName"`
	ItemsMoved []MovedLine `json:"itemsMoved"`
	MovedQty   int64       `json:"movedQty"`
	MovedTotal int64       `json:"movedTotal"`
	Remaining  []MovedLine `json:"remaining"`
	Actor      string      `json:"actor,omitempty"`
	Timestamp  int64       `json:"timestamp"`
}

// MergeEvent is the ticket.merge payload, with destination snapshots
// from both sides of the transaction.
type MergeEvent struct {
	SourceID   string         `json:"sourceId"`
	SourceName string         `json:"sourceName"`
	DestID     string         `json:"destId"`
	DestName   string         `json:"destName"`
	Merged     []MovedLine    `json:"merged"`
	MergedQty  int64          `json:"mergedQty"`
	MergedSum  int64          `json:"mergedTotal"`
	DestBefore TicketSnapshot `json:"destBefore"`
	DestAfter  TicketSnapshot `json:"destAfter"`
	Actor      string         `json:"actor,omitempty"`
	Timestamp  int64          `json:"timestamp"`
}

func movedLines(items []model.TicketItem) []MovedLine {
	lines := make([]MovedLine, 0, len(items))
	for _, it := range items {
		lines = append(lines, MovedLine{
			ID:        it.ID,
			Name:      it.Name,
			Qty:       it.Qty,
			Price:     it.Price,
			LineTotal: it.LineTotal,
		})
	}
	return lines
}
