package inventory

import (
	"errors"
	"strings"
)

var (
	ErrNotFound          = errors.New("inventory: stock record not found")
	ErrInvalidQuantity   = errors.New("inventory: quantity must be greater than zero")
	ErrInsufficientStock = errors.New("inventory: insufficient stock")
)

// DefaultRingCategory is the catalog category whose stock is tracked per size.
const DefaultRingCategory = "anillos"

// FlatStock is the single counter kept for every catalog product.
type FlatStock struct {
	ProductID int64
	Quantity  int
}

// SizedStock is the counter for one (product, size) pair. It is addressed by its
// own surrogate ID, never by the pair.
type SizedStock struct {
	ID        int64
	ProductID int64
	Size      string
	Quantity  int
}

// Policy decides which representation a category uses.
type Policy struct {
	RingCategory string
}

func NewPolicy(ringCategory string) Policy {
	if strings.TrimSpace(ringCategory) == "" {
		ringCategory = DefaultRingCategory
	}
	return Policy{RingCategory: ringCategory}
}

// Sized reports whether items of category draw from sized inventory.
func (p Policy) Sized(category string) bool {
	return strings.EqualFold(strings.TrimSpace(category), p.RingCategory)
}

// Apply checks a guarded decrement against the current quantity and returns the
// new quantity. ok is false when the guard rejects it; current is then unchanged.
func Apply(current, qty int) (next int, ok bool, err error) {
	if qty <= 0 {
		return current, false, ErrInvalidQuantity
	}
	if current < qty {
		return current, false, nil
	}
	return current - qty, true, nil
}
