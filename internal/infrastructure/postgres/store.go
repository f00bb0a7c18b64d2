package postgres

import (
	"context"
	"errors"
	"fmt"

	apporder "github.com/Zhima-Mochi/joyeria/internal/application/order"
	"github.com/Zhima-Mochi/joyeria/internal/domain/catalog"
	"github.com/Zhima-Mochi/joyeria/internal/domain/customer"
	"github.com/Zhima-Mochi/joyeria/internal/domain/inventory"
	domain "github.com/Zhima-Mochi/joyeria/internal/domain/order"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the Postgres-backed storefront.
type Store struct {
	pool *pgxpool.Pool
}

var (
	_ apporder.Store     = (*Store)(nil)
	_ apporder.Tx        = (*tx)(nil)
	_ domain.Reader      = (*Store)(nil)
	_ inventory.Reader   = (*Store)(nil)
	_ catalog.Reader     = (*Store)(nil)
	_ customer.Directory = (*Store)(nil)
)

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// WithinTx commits fn's writes atomically.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx apporder.Tx) error) (err error) {
	pgtx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer func() {
		if err != nil {
			if rerr := pgtx.Rollback(context.WithoutCancel(ctx)); rerr != nil && !errors.Is(rerr, pgx.ErrTxClosed) {
				err = errors.Join(err, fmt.Errorf("postgres: rollback: %w", rerr))
			}
		}
	}()

	if err = fn(ctx, &tx{tx: pgtx}); err != nil {
		return err
	}
	if err = pgtx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	return nil
}

type tx struct {
	tx pgx.Tx
}

// Savepoint maps onto a pgx pseudo nested transaction (SAVEPOINT / ROLLBACK TO).
func (t *tx) Savepoint(ctx context.Context, fn func(ctx context.Context, tx apporder.Tx) error) error {
	sp, err := t.tx.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: savepoint: %w", err)
	}
	if err := fn(ctx, &tx{tx: sp}); err != nil {
		if rerr := sp.Rollback(ctx); rerr != nil {
			return errors.Join(err, fmt.Errorf("postgres: rollback to savepoint: %w", rerr))
		}
		return err
	}
	if err := sp.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: release savepoint: %w", err)
	}
	return nil
}
