package model

// MenuItem is a sellable catalog row. Price and Cost are in cents.
// UpdatedAt and UnitsUpdatedAt are Unix milliseconds and are the only
// conflict-resolution signal during sync (last write wins).
type MenuItem struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Category        string `json:"category,omitempty"`
	Price           int64  `json:"price"`
	Cost            int64  `json:"cost,omitempty"`
	ImageRef        string `json:"image_ref,omitempty"`
	ConsumeUnit     string `json:"consume_unit,omitempty"`
	PurchaseUnit    string `json:"purchase_unit,omitempty"`
	UnitsPerPackage int64  `json:"units_per_package,omitempty"`
	ShelfLifeDays   int64  `json:"shelf_life_days,omitempty"`
	LowStock        int64  `json:"low_stock,omitempty"`
	UpdatedAt       int64  `json:"updated_at"`
	UnitsUpdatedAt  int64  `json:"units_updated_at,omitempty"`
}

// Category is a menu grouping row.
type Category struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	SortOrder int64  `json:"sort_order,omitempty"`
	UpdatedAt int64  `json:"updated_at"`
}

// Unit holds per-item packaging configuration, derived from menu rows:
// the unit items are consumed in, the unit they are purchased in, and how
// many consume units one purchase package holds.
type Unit struct {
	ItemID          string `json:"item_id"`
	ConsumeUnit     string `json:"consume_unit"`
	PurchaseUnit    string `json:"purchase_unit"`
	UnitsPerPackage int64  `json:"units_per_package"`
	UpdatedAt       int64  `json:"updated_at"`
}

// InventoryItem is the stock-tracking row derived from a menu row.
type InventoryItem struct {
	ItemID        string `json:"item_id"`
	Name          string `json:"name"`
	Cost          int64  `json:"cost,omitempty"`
	Category      string `json:"category,omitempty"`
	ShelfLifeDays int64  `json:"shelf_life_days,omitempty"`
	LowStock      int64  `json:"low_stock,omitempty"`
	UpdatedAt     int64  `json:"updated_at"`
}
