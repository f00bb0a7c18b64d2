package order

import (
	"context"
	"errors"
	"fmt"

	domain "github.com/Zhima-Mochi/joyeria/internal/domain/order"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// Detail is one order with its line items and compensating-log entries.
type Detail struct {
	*domain.Order
	StockIssues []domain.StockIssue
}

// QueryService is the admin read surface.
type QueryService struct {
	orders domain.Reader
}

func NewQueryService(orders domain.Reader) *QueryService {
	return &QueryService{orders: orders}
}

func (s *QueryService) List(ctx context.Context, f domain.ListFilter) ([]domain.Summary, error) {
	if f.Status != "" {
		st, err := domain.ParseStatus(string(f.Status))
		if err != nil {
			return nil, err
		}
		f.Status = st
	}
	if f.Limit <= 0 {
		f.Limit = defaultListLimit
	}
	if f.Limit > maxListLimit {
		f.Limit = maxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	out, err := s.orders.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("order: list: %w", err)
	}
	return out, nil
}

func (s *QueryService) Get(ctx context.Context, id int64) (*Detail, error) {
	o, err := s.orders.Get(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("order: get %d: %w", id, err)
	}
	issues, err := s.orders.StockIssues(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("order: stock issues %d: %w", id, err)
	}
	return &Detail{Order: o, StockIssues: issues}, nil
}
