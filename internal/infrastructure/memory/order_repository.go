package memory

import (
	"context"
	"fmt"

	"github.com/Zhima-Mochi/joyeria/internal/domain/cart"
	domain "github.com/Zhima-Mochi/joyeria/internal/domain/order"
)

func (t *tx) Insert(ctx context.Context, o *domain.Order) error {
	_ = ctx
	if o == nil || o.PaymentSessionID == "" {
		return fmt.Errorf("order repository: payment session id is required")
	}
	if _, exists := t.s.sessions[o.PaymentSessionID]; exists {
		return domain.ErrConflict
	}

	t.s.nextOrderID++
	o.ID = t.s.nextOrderID
	stored := o.Clone()
	stored.Items = nil
	t.s.orders[o.ID] = stored
	t.s.sessions[o.PaymentSessionID] = o.ID
	return nil
}

func (t *tx) InsertLineItem(ctx context.Context, orderID int64, li *domain.LineItem) error {
	_ = ctx
	o, ok := t.s.orders[orderID]
	if !ok {
		return domain.ErrNotFound
	}
	if li.Quantity <= 0 {
		return fmt.Errorf("order repository: line quantity %d", li.Quantity)
	}
	t.s.nextItemID++
	li.ID = t.s.nextItemID
	li.OrderID = orderID
	stored := *li
	stored.Materials = append([]cart.Material(nil), li.Materials...)
	o.Items = append(o.Items, stored)
	return nil
}

func (t *tx) Lock(ctx context.Context, id int64) (*domain.Order, error) {
	_ = ctx
	o, ok := t.s.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return o.Clone(), nil
}

func (t *tx) UpdateStatus(ctx context.Context, o *domain.Order) error {
	_ = ctx
	stored, ok := t.s.orders[o.ID]
	if !ok {
		return domain.ErrNotFound
	}
	stored.Status = o.Status
	stored.Carrier = o.Carrier
	stored.TrackingNumber = o.TrackingNumber
	stored.UpdatedAt = o.UpdatedAt
	return nil
}

func (t *tx) RecordStockIssue(ctx context.Context, issue domain.StockIssue) error {
	_ = ctx
	t.s.nextIssueID++
	issue.ID = t.s.nextIssueID
	t.s.issues = append(t.s.issues, issue)
	return nil
}

func (t *tx) StockIssues(ctx context.Context, orderID int64) ([]domain.StockIssue, error) {
	_ = ctx
	return t.s.issuesFor(orderID), nil
}

func (s *Store) Get(ctx context.Context, id int64) (*domain.Order, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.state.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return o.Clone(), nil
}

func (s *Store) FindBySession(ctx context.Context, sessionID string) (*domain.Order, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.state.sessions[sessionID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return s.state.orders[id].Clone(), nil
}

func (s *Store) List(ctx context.Context, f domain.ListFilter) ([]domain.Summary, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Summary, 0)
	skipped := 0
	for _, o := range sortedOrders(s.state.orders) {
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		if skipped < f.Offset {
			skipped++
			continue
		}
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
		sum := domain.Summary{Order: *o.Clone()}
		sum.Items = nil
		if c, ok := s.state.customers[o.BuyerID]; ok {
			sum.BuyerName = c.Name
			sum.BuyerEmail = c.Email
			sum.BuyerPhone = c.Phone
			sum.BuyerAddress = c.Address.String()
		}
		out = append(out, sum)
	}
	return out, nil
}

func (s *Store) StockIssues(ctx context.Context, orderID int64) ([]domain.StockIssue, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.issuesFor(orderID), nil
}

func (st *state) issuesFor(orderID int64) []domain.StockIssue {
	var out []domain.StockIssue
	for _, is := range st.issues {
		if is.OrderID == orderID {
			out = append(out, is)
		}
	}
	return out
}
