package domain

import "strings"

// Cart is the mutable per-session collection of line items. Insertion order
// is preserved for display; totals are order independent. The cart only ever
// lives in session state, it is never persisted before payment.
type Cart struct {
	lines []CartLine
}

// NewCart builds a cart from the supplied lines, merging duplicates by
// identity key the same way AddLine does.
func NewCart(lines ...CartLine) *Cart {
	c := &Cart{}
	for _, line := range lines {
		c.AddLine(line)
	}
	return c
}

// Lines returns a copy of the cart contents in insertion order.
func (c *Cart) Lines() []CartLine {
	if c == nil || len(c.lines) == 0 {
		return nil
	}
	out := make([]CartLine, len(c.lines))
	copy(out, c.lines)
	return out
}

// Len reports the number of distinct lines.
func (c *Cart) Len() int {
	if c == nil {
		return 0
	}
	return len(c.lines)
}

// UnitCount reports the total number of physical units across all lines.
func (c *Cart) UnitCount() int {
	if c == nil {
		return 0
	}
	total := 0
	for _, line := range c.lines {
		total += line.Quantity
	}
	return total
}

// AddLine merges the line into an existing entry with the same identity key
// by incrementing its quantity, or appends it otherwise.
func (c *Cart) AddLine(line CartLine) {
	if c == nil {
		return
	}
	if line.Quantity < 1 {
		line.Quantity = 1
	}
	key := line.Key()
	for i := range c.lines {
		if c.lines[i].Key() == key {
			c.lines[i].Quantity += line.Quantity
			return
		}
	}
	c.lines = append(c.lines, line)
}

// UpdateQuantity applies delta to the matching line's quantity, clamping at a
// minimum of 1. Decrementing past zero does NOT remove the line; removal is
// an explicit, separate operation.
func (c *Cart) UpdateQuantity(productID, variantID string, delta int) {
	if c == nil {
		return
	}
	key := CartLine{ProductID: productID, VariantID: variantID}.Key()
	for i := range c.lines {
		if c.lines[i].Key() != key {
			continue
		}
		next := c.lines[i].Quantity + delta
		if next < 1 {
			next = 1
		}
		c.lines[i].Quantity = next
		return
	}
}

// RemoveLine drops the line with the matching identity key, if present.
func (c *Cart) RemoveLine(productID, variantID string) {
	if c == nil {
		return
	}
	key := CartLine{ProductID: productID, VariantID: variantID}.Key()
	kept := c.lines[:0]
	for _, line := range c.lines {
		if line.Key() != key {
			kept = append(kept, line)
		}
	}
	c.lines = kept
}

// ReplaceAll atomically swaps the whole cart contents, merging duplicate
// identity keys in the replacement set. Used when deep-linking a prefilled
// cart.
func (c *Cart) ReplaceAll(lines []CartLine) {
	if c == nil {
		return
	}
	c.lines = nil
	for _, line := range lines {
		c.AddLine(line)
	}
}

// Currency returns the currency of the first line, defaulting to USD for an
// empty cart.
func (c *Cart) Currency() string {
	if c == nil || len(c.lines) == 0 {
		return "USD"
	}
	currency := strings.TrimSpace(c.lines[0].Currency)
	if currency == "" {
		return "USD"
	}
	return currency
}
