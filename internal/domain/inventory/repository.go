package inventory

import "context"

// Repository mutates both stock representations.
//
// Decrements are compare-and-decrement updates at the storage layer
// ("update ... where stock >= qty"). That guard is the only thing that keeps
// stock non-negative under concurrent checkouts: there is no reservation and no
// in-process lock, and it gives no first-come-first-served ordering. A false
// applied result means the row was left untouched.
type Repository interface {
	DecrementFlat(ctx context.Context, productID int64, qty int) (applied bool, err error)
	DecrementSized(ctx context.Context, sizeStockID int64, qty int) (applied bool, err error)
	IncrementFlat(ctx context.Context, productID int64, qty int) error
	IncrementSized(ctx context.Context, sizeStockID int64, qty int) error
}

// Reader exposes current counters.
type Reader interface {
	FlatQuantity(ctx context.Context, productID int64) (int, error)
	SizedQuantity(ctx context.Context, sizeStockID int64) (int, error)
}
