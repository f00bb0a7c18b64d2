package memory

import (
	"context"
	"sort"

	"github.com/Zhima-Mochi/joyeria/internal/domain/catalog"
	"github.com/Zhima-Mochi/joyeria/internal/domain/customer"
	"github.com/Zhima-Mochi/joyeria/internal/domain/shipping"
)

func (s *Store) Product(ctx context.Context, id int64) (catalog.Product, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.state.products[id]
	if !ok {
		return catalog.Product{}, catalog.ErrNotFound
	}
	return p.Product, nil
}

// ShippingOptions is the shipping repository view of a Store.
type ShippingOptions struct{ s *Store }

func (s *Store) ShippingOptions() *ShippingOptions { return &ShippingOptions{s: s} }

func (r *ShippingOptions) ListActive(ctx context.Context) ([]shipping.Option, error) {
	_ = ctx
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]shipping.Option, 0, len(s.state.options))
	for _, o := range s.state.options {
		if o.Active {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *ShippingOptions) Get(ctx context.Context, id int64) (shipping.Option, error) {
	_ = ctx
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.state.options[id]
	if !ok {
		return shipping.Option{}, shipping.ErrNotFound
	}
	return o, nil
}

func (s *Store) Buyer(ctx context.Context, id int64) (customer.Contact, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.state.customers[id]
	if !ok {
		return customer.Contact{}, customer.ErrNotFound
	}
	return c, nil
}

func (s *Store) AdminEmails(ctx context.Context) ([]string, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]string(nil), s.state.admins...), nil
}
