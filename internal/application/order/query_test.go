package order_test

import (
	"context"
	"testing"

	apporder "github.com/Zhima-Mochi/joyeria/internal/application/order"
	domain "github.com/Zhima-Mochi/joyeria/internal/domain/order"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryListJoinsBuyer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := placeOrder(t, f, "pi_1", input("", necklace(1)))
	second := placeOrder(t, f, "pi_2", input("", necklace(1)))
	_, err := f.transition.Execute(ctx, apporder.TransitionInput{OrderID: first, Status: "cancelado"})
	require.NoError(t, err)

	all, err := f.query.List(ctx, domain.ListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second, all[0].ID)
	assert.Equal(t, "Ana López", all[0].BuyerName)
	assert.Equal(t, "5550001111", all[0].BuyerPhone)
	assert.Contains(t, all[0].BuyerAddress, "CDMX")

	cancelled, err := f.query.List(ctx, domain.ListFilter{Status: "cancelado"})
	require.NoError(t, err)
	require.Len(t, cancelled, 1)
	assert.Equal(t, first, cancelled[0].ID)

	_, err = f.query.List(ctx, domain.ListFilter{Status: "lost"})
	assert.ErrorIs(t, err, domain.ErrUnknownStatus)
}

func TestQueryGetIncludesItemsAndIssues(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	placeOrder(t, f, "pi_1", input("", ring(1)))
	id := placeOrder(t, f, "pi_2", input("", ring(1), customPiece()))

	d, err := f.query.Get(ctx, id)
	require.NoError(t, err)
	require.Len(t, d.Items, 2)
	assert.Len(t, d.Items[1].Materials, 2)
	require.Len(t, d.StockIssues, 1)
	assert.Equal(t, domain.IssueSizedDecrement, d.StockIssues[0].Kind)

	_, err = f.query.Get(ctx, 404)
	assert.ErrorIs(t, err, apporder.ErrNotFound)
}
