package catalog

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/counterline/counterline/internal/model"
)

func TestNormalizeMenuRow(t *testing.T) {
	row := json.RawMessage(`{
		"id": "m1",
		"name": " Latte ",
		"category": "drinks",
		"price": 4.5,
		"cost": "1.20",
		"image": "https://drive.google.com/open?id=abc123",
		"consumeUnit": "g",
		"purchaseUnit": "bag",
		"unitsPerPackage": "1000",
		"updatedAt": 1700000000000
	}`)

	it, ok := NormalizeMenuRow(row)
	require.True(t, ok)
	assert.Equal(t, "m1", it.ID)
	assert.Equal(t, "Latte", it.Name)
	assert.Equal(t, int64(450), it.Price)
	assert.Equal(t, int64(120), it.Cost)
	assert.Equal(t, "img:abc123", it.ImageRef)
	assert.Equal(t, int64(1000), it.UnitsPerPackage)
	assert.Equal(t, int64(1700000000000), it.UpdatedAt)
	// Units timestamp falls back to the row timestamp.
	assert.Equal(t, int64(1700000000000), it.UnitsUpdatedAt)
}

func TestNormalizeMenuRowDropsNameless(t *testing.T) {
	_, ok := NormalizeMenuRow(json.RawMessage(`{"id":"m1","price":4.5}`))
	assert.False(t, ok)

	_, ok = NormalizeMenuRow(json.RawMessage(`not json`))
	assert.False(t, ok)
}

func TestNormalizeMenuRowDerivesStableID(t *testing.T) {
	a, ok := NormalizeMenuRow(json.RawMessage(`{"name":"Flat White"}`))
	require.True(t, ok)
	b, ok := NormalizeMenuRow(json.RawMessage(`{"name":"flat white"}`))
	require.True(t, ok)

	assert.NotEmpty(t, a.ID)
	// Same name (case-insensitive) maps to the same id on every sync.
	assert.Equal(t, a.ID, b.ID)

	c, _ := NormalizeMenuRow(json.RawMessage(`{"name":"Espresso"}`))
	assert.NotEqual(t, a.ID, c.ID)
}

func TestNormalizeImageRef(t *testing.T) {
	cases := []struct{ in, want string }{
		{"https://drive.google.com/open?id=abc123", "img:abc123"},
		{"https://drive.google.com/file/d/xyz789/view", "img:xyz789"},
		{"https://drive.google.com/uc?export=view&id=qq11", "img:qq11"},
		{"https://cdn.example.com/latte.jpg", "https://cdn.example.com/latte.jpg"},
		{"", ""},
		{"  https://drive.google.com/open?id=padded  ", "img:padded"},
		{"https://drive.google.com/drive/folders/notafile", "https://drive.google.com/drive/folders/notafile"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NormalizeImageRef(tc.in), "input %q", tc.in)
	}
}

func TestNormalizeCategoryRow(t *testing.T) {
	c, ok := NormalizeCategoryRow(json.RawMessage(`{"name":"Drinks","sortOrder":"2","updatedAt":100}`))
	require.True(t, ok)
	assert.Equal(t, "Drinks", c.Name)
	assert.Equal(t, int64(2), c.SortOrder)
	assert.NotEmpty(t, c.ID)

	_, ok = NormalizeCategoryRow(json.RawMessage(`{"sortOrder":1}`))
	assert.False(t, ok)
}

func TestDeriveUnits(t *testing.T) {
	items := []model.MenuItem{
		{ID: "m1", Name: "Coffee", ConsumeUnit: "g", PurchaseUnit: "bag", UnitsPerPackage: 1000, UnitsUpdatedAt: 50},
		{ID: "m2", Name: "Sticker"},
	}

	units := DeriveUnits(items)
	require.Len(t, units, 1)
	assert.Equal(t, "m1", units[0].ItemID)
	assert.Equal(t, int64(50), units[0].UpdatedAt)
}

func TestCoerceCents(t *testing.T) {
	row := map[string]any{
		"a": 4.5,
		"b": "1.20",
		"c": "$2,100.75",
		"d": true,
	}
	assert.Equal(t, int64(450), coerceCents(row, "a"))
	assert.Equal(t, int64(120), coerceCents(row, "b"))
	assert.Equal(t, int64(210075), coerceCents(row, "c"))
	assert.Equal(t, int64(0), coerceCents(row, "d"))
	assert.Equal(t, int64(0), coerceCents(row, "missing"))
}
