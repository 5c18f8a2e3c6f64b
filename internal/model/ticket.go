package model

// Ticket statuses.
const (
	TicketStatusOpen   = "open"
	TicketStatusClosed = "closed"
)

// Ticket is an open or closed order. Closed tickets are read-only
// snapshots and are never mutated again locally.
type Ticket struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	OpenedBy  string `json:"opened_by,omitempty"`
	OpenedAt  int64  `json:"opened_at"`
	Status    string `json:"status"`
	ClosedAt  int64  `json:"closed_at,omitempty"`
	ClosedBy  string `json:"closed_by,omitempty"`
	PayMethod string `json:"pay_method,omitempty"`
	PayAmount int64  `json:"pay_amount,omitempty"`
	Notes     string `json:"notes,omitempty"`
}

// TicketItem is a line on a ticket. Price and LineTotal are in cents.
// A line belongs to exactly one ticket; split and merge transfer
// ownership by rewriting TicketID inside a transaction.
type TicketItem struct {
	ID        string   `json:"id"`
	TicketID  string   `json:"ticket_id"`
	SKU       string   `json:"sku,omitempty"`
	Name      string   `json:"name"`
	Price     int64    `json:"price"`
	Qty       int64    `json:"qty"`
	LineTotal int64    `json:"line_total"`
	Options   []string `json:"options,omitempty"`
	AddedAt   int64    `json:"added_at"`
}

// RestockRecord is an append-only inventory replenishment entry.
// TotalUnits = Packages*UnitsPerPackage + ExtraUnits.
type RestockRecord struct {
	ID              string `json:"id"`
	ItemID          string `json:"item_id"`
	Timestamp       int64  `json:"timestamp"`
	Unit            string `json:"unit"`
	Package         string `json:"package"`
	UnitsPerPackage int64  `json:"units_per_package"`
	Packages        int64  `json:"packages"`
	ExtraUnits      int64  `json:"extra_units"`
	TotalUnits      int64  `json:"total_units"`
	Actor           string `json:"actor,omitempty"`
	Notes           string `json:"notes,omitempty"`
}
