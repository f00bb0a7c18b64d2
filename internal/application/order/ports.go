package order

import (
	"context"
	"time"

	"github.com/Zhima-Mochi/joyeria/internal/domain/inventory"
	domain "github.com/Zhima-Mochi/joyeria/internal/domain/order"
)

// Store runs a unit of work. fn's writes commit together or not at all.
type Store interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx is the write surface of one unit of work.
type Tx interface {
	domain.Writer
	inventory.Repository

	// Savepoint runs fn as a nested unit. When fn fails only its own writes are
	// rolled back and the outer unit stays usable.
	Savepoint(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// IdempotencyGuard is a fast-path claim on a payment session. The unique
// session constraint in the store remains the durable guarantee.
type IdempotencyGuard interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

type CodeGenerator interface {
	Next() string
}
