package catalog

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("catalog: product not found")

// Product is the read-only slice of a catalog item the order pipeline needs.
type Product struct {
	ID       int64
	Name     string
	Category string
	ImageURL string
	Price    int64
}

type Reader interface {
	Product(ctx context.Context, id int64) (Product, error)
}
