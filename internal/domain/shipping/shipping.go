package shipping

import (
	"context"
	"errors"
)

var (
	ErrNotFound          = errors.New("shipping: option not found")
	ErrNoShippingOptions = errors.New("shipping: no shipping options available")
	ErrOptionUnavailable = errors.New("shipping: option is not available")
)

// Option is a shipping rule as maintained by the back-office. Price is in minor units.
type Option struct {
	ID          int64
	Description string
	Price       int64
	Active      bool
}

// Total adds the option price to a subtotal.
func Total(subtotal int64, o Option) int64 {
	return subtotal + o.Price
}

type Repository interface {
	ListActive(ctx context.Context) ([]Option, error)
	Get(ctx context.Context, id int64) (Option, error)
}
