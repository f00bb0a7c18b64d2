package shipping

import (
	"context"
	"errors"
	"fmt"

	"github.com/Zhima-Mochi/joyeria/internal/application"
	domain "github.com/Zhima-Mochi/joyeria/internal/domain/shipping"
	"github.com/Zhima-Mochi/joyeria/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

const (
	shippingService   = "shipping-service"
	useCaseListActive = "shipping.list_active"
	useCaseSelect     = "shipping.select"
)

// Service is the shipping selector. An unreachable store is reported as
// ErrNoShippingOptions, never as free shipping.
type Service struct {
	repo domain.Repository
	in   application.Instruments
}

func NewService(repo domain.Repository, tel observability.Observability) *Service {
	return &Service{repo: repo, in: application.NewInstruments(tel, shippingService)}
}

func (s *Service) ListActive(ctx context.Context) (_ []domain.Option, err error) {
	ctx, run := s.in.Start(ctx, useCaseListActive, "ListShippingOptions")
	defer func() { run.End(err) }()

	opts, err := s.repo.ListActive(ctx)
	if err != nil {
		run.Fail("REPO_LIST_FAILED")
		return nil, fmt.Errorf("%w: %w", domain.ErrNoShippingOptions, err)
	}
	active := opts[:0:0]
	for _, o := range opts {
		if o.Active {
			active = append(active, o)
		}
	}
	if len(active) == 0 {
		run.Fail("NO_ACTIVE_OPTIONS")
		return nil, domain.ErrNoShippingOptions
	}
	run.With("options", len(active))
	return active, nil
}

// Select returns the option when it exists and is active.
func (s *Service) Select(ctx context.Context, id int64) (_ domain.Option, err error) {
	ctx, run := s.in.Start(ctx, useCaseSelect, "SelectShippingOption", attribute.Int64("shipping.option_id", id))
	defer func() { run.End(err) }()

	opt, err := Lookup(ctx, s.repo, id)
	if err != nil {
		run.Fail("OPTION_UNAVAILABLE")
		return domain.Option{}, err
	}
	return opt, nil
}

// Lookup loads an active option without instrumentation. A missing or inactive
// option is ErrOptionUnavailable; store failures are returned wrapped.
func Lookup(ctx context.Context, repo domain.Repository, id int64) (domain.Option, error) {
	opt, err := repo.Get(ctx, id)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return domain.Option{}, fmt.Errorf("%w: id %d", domain.ErrOptionUnavailable, id)
	case err != nil:
		return domain.Option{}, fmt.Errorf("shipping: get option %d: %w", id, err)
	case !opt.Active:
		return domain.Option{}, fmt.Errorf("%w: id %d inactive", domain.ErrOptionUnavailable, id)
	}
	return opt, nil
}
