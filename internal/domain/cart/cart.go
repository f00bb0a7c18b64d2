package cart

import (
	"errors"
	"fmt"
)

var (
	ErrStockCeiling  = errors.New("cart: quantity would exceed available stock")
	ErrOutOfStock    = errors.New("cart: item has no stock")
	ErrEntryNotFound = errors.New("cart: entry not found")
	ErrInvalidEntry  = errors.New("cart: invalid entry")
)

// Cart is the buyer's selection. It is owned by the checkout flow; there is no
// package-level cart. Mutations never touch storage: the ceiling on each entry is
// a snapshot and the inventory guard has the final word at order time.
type Cart struct {
	entries []Entry
}

func New() *Cart {
	return &Cart{}
}

// FromEntries rebuilds a cart from a submitted entry list, keeping the submitted
// quantities. Each entry must satisfy 1 <= Quantity <= StockCeiling.
func FromEntries(entries []Entry) (*Cart, error) {
	c := New()
	for i, e := range entries {
		if err := validate(e); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		if e.Quantity < 1 || e.Quantity > e.StockCeiling {
			return nil, fmt.Errorf("entry %d: %w: quantity %d outside [1, %d]", i, ErrInvalidEntry, e.Quantity, e.StockCeiling)
		}
		if e.Key == "" {
			e.Key = KeyFor(e)
		}
		if idx := c.index(e.Key); idx >= 0 {
			merged := c.entries[idx].Quantity + e.Quantity
			if merged > c.entries[idx].StockCeiling {
				return nil, fmt.Errorf("entry %d: %w", i, ErrStockCeiling)
			}
			c.entries[idx].Quantity = merged
			continue
		}
		c.entries = append(c.entries, e.clone())
	}
	return c, nil
}

// Add merges into the entry with the same key, refusing to pass its ceiling,
// or appends a new entry with quantity 1.
func (c *Cart) Add(e Entry) error {
	if err := validate(e); err != nil {
		return err
	}
	if e.Key == "" {
		e.Key = KeyFor(e)
	}
	if idx := c.index(e.Key); idx >= 0 {
		existing := &c.entries[idx]
		if existing.Quantity+1 > existing.StockCeiling {
			return ErrStockCeiling
		}
		existing.Quantity++
		return nil
	}
	e = e.clone()
	e.Quantity = 1
	c.entries = append(c.entries, e)
	return nil
}

// SetQuantity clamps n into [1, StockCeiling] and returns the stored quantity.
func (c *Cart) SetQuantity(key string, n int) (int, error) {
	idx := c.index(key)
	if idx < 0 {
		return 0, ErrEntryNotFound
	}
	e := &c.entries[idx]
	switch {
	case n < 1:
		n = 1
	case n > e.StockCeiling:
		n = e.StockCeiling
	}
	e.Quantity = n
	return n, nil
}

func (c *Cart) Remove(key string) error {
	idx := c.index(key)
	if idx < 0 {
		return ErrEntryNotFound
	}
	c.entries = append(c.entries[:idx], c.entries[idx+1:]...)
	return nil
}

func (c *Cart) Clear() {
	c.entries = nil
}

// Subtotal is Σ unitPrice × quantity.
func (c *Cart) Subtotal() int64 {
	var total int64
	for _, e := range c.entries {
		total += e.LineTotal()
	}
	return total
}

func (c *Cart) Len() int { return len(c.entries) }

// Entries returns a copy of the entries in insertion order.
func (c *Cart) Entries() []Entry {
	out := make([]Entry, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.clone()
	}
	return out
}

func (c *Cart) Entry(key string) (Entry, bool) {
	idx := c.index(key)
	if idx < 0 {
		return Entry{}, false
	}
	return c.entries[idx].clone(), true
}

func (c *Cart) index(key string) int {
	for i := range c.entries {
		if c.entries[i].Key == key {
			return i
		}
	}
	return -1
}

func validate(e Entry) error {
	if e.StockCeiling < 1 {
		return ErrOutOfStock
	}
	if e.UnitPrice < 0 {
		return fmt.Errorf("%w: negative unit price", ErrInvalidEntry)
	}
	if !e.Custom && e.ProductID <= 0 {
		return fmt.Errorf("%w: catalog item without product id", ErrInvalidEntry)
	}
	if e.Custom && e.Category == "" {
		return fmt.Errorf("%w: custom item without category", ErrInvalidEntry)
	}
	return nil
}
