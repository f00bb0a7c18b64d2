package shipping

import (
	"context"
	"errors"
	"testing"

	domain "github.com/Zhima-Mochi/joyeria/internal/domain/shipping"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRepo struct {
	opts []domain.Option
	err  error
}

func (r stubRepo) ListActive(context.Context) ([]domain.Option, error) { return r.opts, r.err }

func (r stubRepo) Get(_ context.Context, id int64) (domain.Option, error) {
	if r.err != nil {
		return domain.Option{}, r.err
	}
	for _, o := range r.opts {
		if o.ID == id {
			return o, nil
		}
	}
	return domain.Option{}, domain.ErrNotFound
}

func TestListActive(t *testing.T) {
	svc := NewService(stubRepo{opts: []domain.Option{
		{ID: 1, Description: "Estándar", Price: 50, Active: true},
		{ID: 2, Description: "Express", Price: 150, Active: false},
	}}, nil)

	opts, err := svc.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, opts, 1)
	assert.Equal(t, int64(1), opts[0].ID)
}

func TestListActiveNeverDefaultsToFreeShipping(t *testing.T) {
	_, err := NewService(stubRepo{err: errors.New("db down")}, nil).ListActive(context.Background())
	assert.ErrorIs(t, err, domain.ErrNoShippingOptions)

	_, err = NewService(stubRepo{}, nil).ListActive(context.Background())
	assert.ErrorIs(t, err, domain.ErrNoShippingOptions)

	_, err = NewService(stubRepo{opts: []domain.Option{{ID: 1}}}, nil).ListActive(context.Background())
	assert.ErrorIs(t, err, domain.ErrNoShippingOptions)
}

func TestSelect(t *testing.T) {
	svc := NewService(stubRepo{opts: []domain.Option{
		{ID: 1, Price: 50, Active: true},
		{ID: 2, Price: 150},
	}}, nil)

	o, err := svc.Select(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(50), o.Price)

	_, err = svc.Select(context.Background(), 2)
	assert.ErrorIs(t, err, domain.ErrOptionUnavailable)
	_, err = svc.Select(context.Background(), 3)
	assert.ErrorIs(t, err, domain.ErrOptionUnavailable)
}
