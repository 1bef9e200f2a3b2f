package cart

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestAddItemMergesByID(t *testing.T) {
	c := &Cart{}

	c.AddItem(LineItem{ID: "book-a", Title: "Book A", UnitPrice: price("19.99"), Quantity: 1})
	c.AddItem(LineItem{ID: "book-b", Title: "Book B", UnitPrice: price("9.50"), Quantity: 2})
	c.AddItem(LineItem{ID: "book-a", Title: "Book A", UnitPrice: price("19.99"), Quantity: 3})

	require.Len(t, c.Items, 2)
	assert.Equal(t, "book-a", c.Items[0].ID)
	assert.Equal(t, 4, c.Items[0].Quantity)
	assert.Equal(t, 2, c.Items[1].Quantity)
}

func TestAddItemDefaultsQuantityToOne(t *testing.T) {
	c := &Cart{}

	c.AddItem(LineItem{ID: "book-a", Title: "Book A", UnitPrice: price("19.99")})
	c.AddItem(LineItem{ID: "book-a", Title: "Book A", UnitPrice: price("19.99"), Quantity: -3})

	require.Len(t, c.Items, 1)
	assert.Equal(t, 2, c.Items[0].Quantity)
}

func TestDecrementItemRemovesAtZero(t *testing.T) {
	c := &Cart{}
	c.AddItem(LineItem{ID: "book-a", Title: "Book A", UnitPrice: price("19.99"), Quantity: 2})

	c.DecrementItem("book-a")
	require.Len(t, c.Items, 1)
	assert.Equal(t, 1, c.Items[0].Quantity)

	// Decrementing a quantity-1 line removes the row; no zero-quantity
	// entries ever exist.
	c.DecrementItem("book-a")
	assert.Empty(t, c.Items)
	assert.True(t, c.IsEmpty())

	// No-op on an absent ID.
	c.DecrementItem("book-a")
	assert.Empty(t, c.Items)
}

func TestRemoveItem(t *testing.T) {
	c := &Cart{}
	c.AddItem(LineItem{ID: "book-a", Title: "Book A", UnitPrice: price("19.99"), Quantity: 5})
	c.AddItem(LineItem{ID: "book-b", Title: "Book B", UnitPrice: price("9.50")})

	c.RemoveItem("book-a")

	require.Len(t, c.Items, 1)
	assert.Equal(t, "book-b", c.Items[0].ID)

	c.RemoveItem("missing")
	assert.Len(t, c.Items, 1)
}

func TestTotalsStayConsistentAcrossMutations(t *testing.T) {
	c := &Cart{}
	c.AddItem(LineItem{ID: "book-a", Title: "Book A", UnitPrice: price("19.99"), Quantity: 2})
	c.AddItem(LineItem{ID: "book-b", Title: "Book B", UnitPrice: price("9.50"), Quantity: 1})

	assert.Equal(t, 3, c.TotalCount())
	assert.True(t, c.TotalPrice().Equal(price("49.48")), "got %s", c.TotalPrice())

	c.DecrementItem("book-a")
	assert.Equal(t, 2, c.TotalCount())
	assert.True(t, c.TotalPrice().Equal(price("29.49")), "got %s", c.TotalPrice())

	c.RemoveItem("book-b")
	assert.Equal(t, 1, c.TotalCount())
	assert.True(t, c.TotalPrice().Equal(price("19.99")), "got %s", c.TotalPrice())

	c.Clear()
	assert.Equal(t, 0, c.TotalCount())
	assert.True(t, c.TotalPrice().IsZero())
}
