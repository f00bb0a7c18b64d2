package memory

import (
	"context"

	"github.com/Zhima-Mochi/joyeria/internal/domain/inventory"
)

func (t *tx) DecrementFlat(ctx context.Context, productID int64, qty int) (bool, error) {
	_ = ctx
	p, ok := t.s.products[productID]
	if !ok {
		return false, inventory.ErrNotFound
	}
	next, applied, err := inventory.Apply(p.stock, qty)
	if err != nil || !applied {
		return false, err
	}
	p.stock = next
	t.s.products[productID] = p
	return true, nil
}

func (t *tx) DecrementSized(ctx context.Context, sizeStockID int64, qty int) (bool, error) {
	_ = ctx
	st, ok := t.s.sized[sizeStockID]
	if !ok {
		return false, inventory.ErrNotFound
	}
	next, applied, err := inventory.Apply(st.Quantity, qty)
	if err != nil || !applied {
		return false, err
	}
	st.Quantity = next
	t.s.sized[sizeStockID] = st
	return true, nil
}

func (t *tx) IncrementFlat(ctx context.Context, productID int64, qty int) error {
	_ = ctx
	if qty <= 0 {
		return inventory.ErrInvalidQuantity
	}
	p, ok := t.s.products[productID]
	if !ok {
		return inventory.ErrNotFound
	}
	p.stock += qty
	t.s.products[productID] = p
	return nil
}

func (t *tx) IncrementSized(ctx context.Context, sizeStockID int64, qty int) error {
	_ = ctx
	if qty <= 0 {
		return inventory.ErrInvalidQuantity
	}
	st, ok := t.s.sized[sizeStockID]
	if !ok {
		return inventory.ErrNotFound
	}
	st.Quantity += qty
	t.s.sized[sizeStockID] = st
	return nil
}

func (s *Store) FlatQuantity(ctx context.Context, productID int64) (int, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.state.products[productID]
	if !ok {
		return 0, inventory.ErrNotFound
	}
	return p.stock, nil
}

func (s *Store) SizedQuantity(ctx context.Context, sizeStockID int64) (int, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.state.sized[sizeStockID]
	if !ok {
		return 0, inventory.ErrNotFound
	}
	return st.Quantity, nil
}
