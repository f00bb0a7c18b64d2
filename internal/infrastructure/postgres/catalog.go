package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/Zhima-Mochi/joyeria/internal/domain/catalog"
	"github.com/Zhima-Mochi/joyeria/internal/domain/customer"
	"github.com/Zhima-Mochi/joyeria/internal/domain/shipping"
	"github.com/jackc/pgx/v5"
)

var _ shipping.Repository = (*ShippingOptions)(nil)

func (s *Store) Product(ctx context.Context, id int64) (catalog.Product, error) {
	var p catalog.Product
	err := s.pool.QueryRow(ctx, `SELECT id, name, category, image_url, price FROM products WHERE id = $1`, id).
		Scan(&p.ID, &p.Name, &p.Category, &p.ImageURL, &p.Price)
	if errors.Is(err, pgx.ErrNoRows) {
		return catalog.Product{}, catalog.ErrNotFound
	}
	if err != nil {
		return catalog.Product{}, fmt.Errorf("postgres: get product: %w", err)
	}
	return p, nil
}

// ShippingOptions is the shipping repository view of a Store.
type ShippingOptions struct{ s *Store }

func (s *Store) ShippingOptions() *ShippingOptions { return &ShippingOptions{s: s} }

func (r *ShippingOptions) ListActive(ctx context.Context) ([]shipping.Option, error) {
	rows, err := r.s.pool.Query(ctx, `SELECT id, description, price, active FROM shipping_options WHERE active ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list shipping options: %w", err)
	}
	defer rows.Close()

	out := make([]shipping.Option, 0)
	for rows.Next() {
		var o shipping.Option
		if err := rows.Scan(&o.ID, &o.Description, &o.Price, &o.Active); err != nil {
			return nil, fmt.Errorf("postgres: scan shipping option: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *ShippingOptions) Get(ctx context.Context, id int64) (shipping.Option, error) {
	var o shipping.Option
	err := r.s.pool.QueryRow(ctx, `SELECT id, description, price, active FROM shipping_options WHERE id = $1`, id).
		Scan(&o.ID, &o.Description, &o.Price, &o.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return shipping.Option{}, shipping.ErrNotFound
	}
	if err != nil {
		return shipping.Option{}, fmt.Errorf("postgres: get shipping option: %w", err)
	}
	return o, nil
}

func (s *Store) Buyer(ctx context.Context, id int64) (customer.Contact, error) {
	var c customer.Contact
	err := s.pool.QueryRow(ctx, `
		SELECT c.id, c.name, c.email, c.phone,
			COALESCE(a.street, ''), COALESCE(a.city, ''), COALESCE(a.state, ''), COALESCE(a.postal_code, '')
		FROM customers c
		LEFT JOIN LATERAL (
			SELECT street, city, state, postal_code FROM addresses
			WHERE customer_id = c.id
			ORDER BY is_default DESC, id
			LIMIT 1
		) a ON TRUE
		WHERE c.id = $1`, id).
		Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Address.Street, &c.Address.City, &c.Address.State, &c.Address.PostalCode)
	if errors.Is(err, pgx.ErrNoRows) {
		return customer.Contact{}, customer.ErrNotFound
	}
	if err != nil {
		return customer.Contact{}, fmt.Errorf("postgres: get buyer: %w", err)
	}
	return c, nil
}

func (s *Store) AdminEmails(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT email FROM admin_contacts WHERE active ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list admin contacts: %w", err)
	}
	defer rows.Close()
	return pgx.CollectRows(rows, pgx.RowTo[string])
}
