package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/Zhima-Mochi/joyeria/internal/domain/inventory"
	"github.com/jackc/pgx/v5"
)

// Guarded decrements: the WHERE clause is the only thing that keeps stock
// non-negative across concurrent checkouts.
const (
	decrementFlatSQL  = `UPDATE products SET stock = stock - $2 WHERE id = $1 AND stock >= $2`
	decrementSizedSQL = `UPDATE product_size_stock SET stock = stock - $2 WHERE id = $1 AND stock >= $2`
	incrementFlatSQL  = `UPDATE products SET stock = stock + $2 WHERE id = $1`
	incrementSizedSQL = `UPDATE product_size_stock SET stock = stock + $2 WHERE id = $1`
)

func (t *tx) DecrementFlat(ctx context.Context, productID int64, qty int) (bool, error) {
	return guardedDecrement(ctx, t.tx, decrementFlatSQL, `SELECT 1 FROM products WHERE id = $1`, productID, qty)
}

func (t *tx) DecrementSized(ctx context.Context, sizeStockID int64, qty int) (bool, error) {
	return guardedDecrement(ctx, t.tx, decrementSizedSQL, `SELECT 1 FROM product_size_stock WHERE id = $1`, sizeStockID, qty)
}

func (t *tx) IncrementFlat(ctx context.Context, productID int64, qty int) error {
	return increment(ctx, t.tx, incrementFlatSQL, productID, qty)
}

func (t *tx) IncrementSized(ctx context.Context, sizeStockID int64, qty int) error {
	return increment(ctx, t.tx, incrementSizedSQL, sizeStockID, qty)
}

func guardedDecrement(ctx context.Context, q querier, update, exists string, id int64, qty int) (bool, error) {
	if qty <= 0 {
		return false, inventory.ErrInvalidQuantity
	}
	tag, err := q.Exec(ctx, update, id, qty)
	if err != nil {
		return false, fmt.Errorf("postgres: decrement stock: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}
	var one int
	if err := q.QueryRow(ctx, exists, id).Scan(&one); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, inventory.ErrNotFound
		}
		return false, fmt.Errorf("postgres: check stock row: %w", err)
	}
	return false, nil
}

func increment(ctx context.Context, q querier, update string, id int64, qty int) error {
	if qty <= 0 {
		return inventory.ErrInvalidQuantity
	}
	tag, err := q.Exec(ctx, update, id, qty)
	if err != nil {
		return fmt.Errorf("postgres: increment stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return inventory.ErrNotFound
	}
	return nil
}

func (s *Store) FlatQuantity(ctx context.Context, productID int64) (int, error) {
	return quantity(ctx, s.pool, `SELECT stock FROM products WHERE id = $1`, productID)
}

func (s *Store) SizedQuantity(ctx context.Context, sizeStockID int64) (int, error) {
	return quantity(ctx, s.pool, `SELECT stock FROM product_size_stock WHERE id = $1`, sizeStockID)
}

func quantity(ctx context.Context, q querier, query string, id int64) (int, error) {
	var n int
	if err := q.QueryRow(ctx, query, id).Scan(&n); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, inventory.ErrNotFound
		}
		return 0, fmt.Errorf("postgres: read stock: %w", err)
	}
	return n, nil
}
