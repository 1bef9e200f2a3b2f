package cart

import "github.com/shopspring/decimal"

// AddItem merges by ID: an existing entry gains the incoming quantity
// (1 when the item carries none), otherwise the item is appended. Order of
// first insertion is preserved.
func (c *Cart) AddItem(item LineItem) {
	qty := item.Quantity
	if qty <= 0 {
		qty = 1
	}

	for i := range c.Items {
		if c.Items[i].ID == item.ID {
			c.Items[i].Quantity += qty
			return
		}
	}

	item.Quantity = qty
	c.Items = append(c.Items, item)
}

// RemoveItem deletes the entry with that ID; no-op when absent.
func (c *Cart) RemoveItem(id string) {
	for i := range c.Items {
		if c.Items[i].ID == id {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			return
		}
	}
}

// DecrementItem lowers quantity by one; reaching zero removes the entry.
func (c *Cart) DecrementItem(id string) {
	for i := range c.Items {
		if c.Items[i].ID != id {
			continue
		}
		if c.Items[i].Quantity <= 1 {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
		} else {
			c.Items[i].Quantity--
		}
		return
	}
}

// Clear empties the collection unconditionally.
func (c *Cart) Clear() {
	c.Items = nil
}

func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// TotalCount is the sum of all quantities.
func (c *Cart) TotalCount() int {
	total := 0
	for i := range c.Items {
		total += c.Items[i].Quantity
	}
	return total
}

// TotalPrice is Σ(unit price × quantity) in major currency units.
func (c *Cart) TotalPrice() decimal.Decimal {
	total := decimal.Zero
	for i := range c.Items {
		line := c.Items[i].UnitPrice.Mul(decimal.NewFromInt(int64(c.Items[i].Quantity)))
		total = total.Add(line)
	}
	return total
}
