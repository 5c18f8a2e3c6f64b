package catalog

import (
	"encoding/json"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/counterline/counterline/internal/model"
)

// idNamespace seeds derived ids so a row that arrives without one maps
// to the same id on every sync.
var idNamespace = uuid.MustParse("9f2c1af0-55e7-4d6e-a6b1-214d2f9c7ad4")

// NormalizeMenuRow turns a raw remote menu row into internal shape.
// Returns false when the row fails minimal validity (no name).
func NormalizeMenuRow(raw json.RawMessage) (model.MenuItem, bool) {
	var row map[string]any
	if err := json.Unmarshal(raw, &row); err != nil {
		return model.MenuItem{}, false
	}

	name := coerceString(row, "name", "itemName", "title")
	if name == "" {
		return model.MenuItem{}, false
	}

	id := coerceString(row, "id", "itemId", "sku")
	if id == "" {
		id = deriveID("menu", name)
	}

	it := model.MenuItem{
		ID:              id,
		Name:            name,
		Category:        coerceString(row, "category", "categoryName"),
		Price:           coerceCents(row, "price"),
		Cost:            coerceCents(row, "cost", "unitCost"),
		ImageRef:        NormalizeImageRef(coerceString(row, "image", "imageUrl", "img")),
		ConsumeUnit:     coerceString(row, "consumeUnit", "unit"),
		PurchaseUnit:    coerceString(row, "purchaseUnit", "package"),
		UnitsPerPackage: coerceInt(row, "unitsPerPackage", "unitsPerPkg"),
		ShelfLifeDays:   coerceInt(row, "shelfLifeDays", "shelfLife"),
		LowStock:        coerceInt(row, "lowStock", "lowStockThreshold"),
		UpdatedAt:       coerceInt(row, "updatedAt"),
		UnitsUpdatedAt:  coerceInt(row, "unitsUpdatedAt"),
	}
	if it.UnitsUpdatedAt == 0 {
		it.UnitsUpdatedAt = it.UpdatedAt
	}
	return it, true
}

// NormalizeCategoryRow turns a raw remote category row into internal
// shape, dropping nameless rows.
func NormalizeCategoryRow(raw json.RawMessage) (model.Category, bool) {
	var row map[string]any
	if err := json.Unmarshal(raw, &row); err != nil {
		return model.Category{}, false
	}

	name := coerceString(row, "name", "categoryName", "title")
	if name == "" {
		return model.Category{}, false
	}

	id := coerceString(row, "id", "categoryId")
	if id == "" {
		id = deriveID("category", name)
	}

	return model.Category{
		ID:        id,
		Name:      name,
		SortOrder: coerceInt(row, "sortOrder", "order"),
		UpdatedAt: coerceInt(row, "updatedAt"),
	}, true
}

// NormalizeImageRef rewrites third-party file-hosting URLs into the
// proxyable local form "img:<id>". Other refs pass through unchanged.
// Recognized Google Drive forms:
//
//	https://drive.google.com/open?id=<id>
//	https://drive.google.com/file/d/<id>/view
//	https://drive.google.com/uc?export=view&id=<id>
func NormalizeImageRef(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}

	u, err := url.Parse(ref)
	if err != nil || !strings.HasSuffix(u.Host, "drive.google.com") {
		return ref
	}

	if id := u.Query().Get("id"); id != "" {
		return "img:" + id
	}
	if rest, ok := strings.CutPrefix(u.Path, "/file/d/"); ok {
		if id, _, _ := strings.Cut(rest, "/"); id != "" {
			return "img:" + id
		}
	}
	return ref
}

// DeriveUnits computes per-item packaging rows from menu rows. Items
// without a purchase unit carry no packaging.
func DeriveUnits(items []model.MenuItem) []model.Unit {
	var units []model.Unit
	for _, it := range items {
		if it.PurchaseUnit == "" && it.UnitsPerPackage == 0 {
			continue
		}
		units = append(units, model.Unit{
			ItemID:          it.ID,
			ConsumeUnit:     it.ConsumeUnit,
			PurchaseUnit:    it.PurchaseUnit,
			UnitsPerPackage: it.UnitsPerPackage,
			UpdatedAt:       it.UnitsUpdatedAt,
		})
	}
	return units
}

// DeriveInventory computes stock-tracking rows from menu rows.
func DeriveInventory(items []model.MenuItem) []model.InventoryItem {
	inventory := make([]model.InventoryItem, 0, len(items))
	for _, it := range items {
		inventory = append(inventory, model.InventoryItem{
			ItemID:        it.ID,
			Name:          it.Name,
			Cost:          it.Cost,
			Category:      it.Category,
			ShelfLifeDays: it.ShelfLifeDays,
			LowStock:      it.LowStock,
			UpdatedAt:     it.UpdatedAt,
		})
	}
	return inventory
}

func deriveID(kind, name string) string {
	return uuid.NewSHA1(idNamespace, []byte(kind+":"+strings.ToLower(name))).String()
}

// coerceString returns the first non-empty string under the given keys,
// stringifying numbers defensively.
func coerceString(row map[string]any, keys ...string) string {
	for _, key := range keys {
		switch v := row[key].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

// coerceInt reads a number-or-numeric-string field as int64.
func coerceInt(row map[string]any, keys ...string) int64 {
	for _, key := range keys {
		switch v := row[key].(type) {
		case float64:
			return int64(v)
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				return int64(f)
			}
		}
	}
	return 0
}

// coerceCents reads a dollar amount (number or string, possibly with a
// currency prefix) as cents.
func coerceCents(row map[string]any, keys ...string) int64 {
	for _, key := range keys {
		switch v := row[key].(type) {
		case float64:
			return int64(math.Round(v * 100))
		case string:
			s := strings.TrimSpace(strings.TrimLeft(v, "$€£ "))
			s = strings.ReplaceAll(s, ",", "")
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return int64(math.Round(f * 100))
			}
		}
	}
	return 0
}
