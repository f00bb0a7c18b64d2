package memory

import (
	"context"
	"sort"
	"sync"

	apporder "github.com/Zhima-Mochi/joyeria/internal/application/order"
	"github.com/Zhima-Mochi/joyeria/internal/domain/catalog"
	"github.com/Zhima-Mochi/joyeria/internal/domain/customer"
	"github.com/Zhima-Mochi/joyeria/internal/domain/inventory"
	domain "github.com/Zhima-Mochi/joyeria/internal/domain/order"
	"github.com/Zhima-Mochi/joyeria/internal/domain/shipping"
)

// Store keeps the whole storefront in process. A unit of work holds the store
// mutex for its duration and is rolled back by restoring a snapshot; this stands
// in for the database's own atomicity and is not used for inventory decisions.
type Store struct {
	mu    sync.Mutex
	state *state
}

var (
	_ apporder.Store      = (*Store)(nil)
	_ apporder.Tx         = (*tx)(nil)
	_ domain.Reader       = (*Store)(nil)
	_ inventory.Reader    = (*Store)(nil)
	_ catalog.Reader      = (*Store)(nil)
	_ shipping.Repository = (*ShippingOptions)(nil)
	_ customer.Directory  = (*Store)(nil)
)

type product struct {
	catalog.Product
	stock int
}

type state struct {
	products  map[int64]product
	sized     map[int64]inventory.SizedStock
	options   map[int64]shipping.Option
	customers map[int64]customer.Contact
	admins    []string
	orders    map[int64]*domain.Order
	sessions  map[string]int64
	issues    []domain.StockIssue

	nextOrderID int64
	nextItemID  int64
	nextIssueID int64
}

func NewStore() *Store {
	return &Store{state: &state{
		products:  make(map[int64]product),
		sized:     make(map[int64]inventory.SizedStock),
		options:   make(map[int64]shipping.Option),
		customers: make(map[int64]customer.Contact),
		orders:    make(map[int64]*domain.Order),
		sessions:  make(map[string]int64),
	}}
}

func (s *state) clone() *state {
	c := &state{
		products:    make(map[int64]product, len(s.products)),
		sized:       make(map[int64]inventory.SizedStock, len(s.sized)),
		options:     make(map[int64]shipping.Option, len(s.options)),
		customers:   make(map[int64]customer.Contact, len(s.customers)),
		admins:      append([]string(nil), s.admins...),
		orders:      make(map[int64]*domain.Order, len(s.orders)),
		sessions:    make(map[string]int64, len(s.sessions)),
		issues:      append([]domain.StockIssue(nil), s.issues...),
		nextOrderID: s.nextOrderID,
		nextItemID:  s.nextItemID,
		nextIssueID: s.nextIssueID,
	}
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.sized {
		c.sized[k] = v
	}
	for k, v := range s.options {
		c.options[k] = v
	}
	for k, v := range s.customers {
		c.customers[k] = v
	}
	for k, v := range s.orders {
		c.orders[k] = v.Clone()
	}
	for k, v := range s.sessions {
		c.sessions[k] = v
	}
	return c
}

// WithinTx runs fn against live state and restores the snapshot if fn fails.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx apporder.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.state.clone()
	if err := fn(ctx, &tx{s: s.state}); err != nil {
		s.state = snap
		return err
	}
	return nil
}

type tx struct{ s *state }

func (t *tx) Savepoint(ctx context.Context, fn func(ctx context.Context, tx apporder.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	snap := t.s.clone()
	if err := fn(ctx, t); err != nil {
		*t.s = *snap
		return err
	}
	return nil
}

// Seeding helpers for development and tests.

func (s *Store) PutProduct(p catalog.Product, stock int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.products[p.ID] = product{Product: p, stock: stock}
}

func (s *Store) PutSizedStock(st inventory.SizedStock) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.sized[st.ID] = st
}

func (s *Store) PutShippingOption(o shipping.Option) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.options[o.ID] = o
}

func (s *Store) PutCustomer(c customer.Contact) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.customers[c.ID] = c
}

func (s *Store) PutAdmin(email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.admins = append(s.state.admins, email)
}

func sortedOrders(m map[int64]*domain.Order) []*domain.Order {
	out := make([]*domain.Order, 0, len(m))
	for _, o := range m {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}
