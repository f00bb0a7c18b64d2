package order_test

import (
	"context"
	"errors"
	"testing"

	apporder "github.com/Zhima-Mochi/joyeria/internal/application/order"
	domain "github.com/Zhima-Mochi/joyeria/internal/domain/order"
	"github.com/Zhima-Mochi/joyeria/internal/domain/payment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateOrderWritesHeaderItemsAndStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.create.Execute(ctx, input("pi_1", necklace(2)))
	require.NoError(t, err)
	assert.Equal(t, "ORD-20261019-001", res.Code)
	assert.Equal(t, domain.StatusProcessing, res.Status)
	assert.Equal(t, payment.MethodCard, res.PaymentMethod)
	assert.Empty(t, res.StockIssues)

	o, err := f.store.Get(ctx, res.OrderID)
	require.NoError(t, err)
	assert.Equal(t, int64(200), o.Subtotal)
	assert.Equal(t, int64(250), o.Total)
	assert.Equal(t, int64(50), o.ShippingPrice)
	assert.Equal(t, "pi_1", o.PaymentSessionID)
	require.Len(t, o.Items, 1)
	assert.Equal(t, int64(200), o.Items[0].Subtotal)
	assert.Equal(t, "collares", o.Items[0].Category)

	assert.Equal(t, 8, f.flat(t, necklaceID))
	assert.ElementsMatch(t, []string{apporder.TemplateConfirmation, apporder.TemplateAdminAlert}, f.sender.subjects())
	assert.Equal(t, 1, f.logs.FilterMessage("use_case_done").FilterField(zapString("status", "OK")).Len())
}

func TestCreateOrderOneLineItemPerEntry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.create.Execute(ctx, input("pi_1", necklace(1), ring(1), customPiece()))
	require.NoError(t, err)

	o, err := f.store.Get(ctx, res.OrderID)
	require.NoError(t, err)
	require.Len(t, o.Items, 3)
	custom := o.Items[2]
	assert.True(t, custom.Custom)
	assert.Equal(t, "pulseras", custom.Category)
	require.Len(t, custom.Materials, 2)
	assert.Equal(t, "cuarzo", custom.Materials[1].Name)
	assert.Equal(t, "7", o.Items[1].Size)

	assert.Equal(t, 9, f.flat(t, necklaceID))
	assert.Equal(t, 0, f.sized(t, ringSize7ID))
	assert.Equal(t, 0, f.flat(t, ringID), "ring lines never touch flat stock")
}

func TestCreateOrderResolvesCategoryFromCatalog(t *testing.T) {
	f := newFixture(t)
	e := necklace(1)
	e.Category = "stale"

	res, err := f.create.Execute(context.Background(), input("pi_1", e))
	require.NoError(t, err)
	o, _ := f.store.Get(context.Background(), res.OrderID)
	assert.Equal(t, "collares", o.Items[0].Category)
}

func TestCreateOrderIncompleteDataWritesNothing(t *testing.T) {
	cases := map[string]func(*apporder.CreateOrderInput){
		"missing session":   func(in *apporder.CreateOrderInput) { in.PaymentSessionID = " " },
		"missing buyer":     func(in *apporder.CreateOrderInput) { in.BuyerID = 0 },
		"empty cart":        func(in *apporder.CreateOrderInput) { in.Entries = nil },
		"missing shipping":  func(in *apporder.CreateOrderInput) { in.ShippingOptionID = 0 },
		"inactive shipping": func(in *apporder.CreateOrderInput) { in.ShippingOptionID = retiredID },
		"unknown shipping":  func(in *apporder.CreateOrderInput) { in.ShippingOptionID = 99 },
		"total mismatch":    func(in *apporder.CreateOrderInput) { in.Total = 200 },
		"over ceiling":      func(in *apporder.CreateOrderInput) { in.Entries[0].Quantity = 11 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			in := input("pi_1", necklace(2))
			mutate(&in)

			_, err := f.create.Execute(context.Background(), in)
			assert.ErrorIs(t, err, apporder.ErrIncompleteOrderData)
			assert.Equal(t, 0, f.orderCount(t))
			assert.Equal(t, 10, f.flat(t, necklaceID))
			assert.Empty(t, f.sender.subjects())
		})
	}
}

func TestCreateOrderRejectsSecondAttemptForSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.create.Execute(ctx, input("pi_1", necklace(2)))
	require.NoError(t, err)

	_, err = f.create.Execute(ctx, input("pi_1", necklace(2)))
	require.ErrorIs(t, err, apporder.ErrAlreadyProcessed)
	var ap *apporder.AlreadyProcessedError
	require.True(t, errors.As(err, &ap))
	assert.Equal(t, first.OrderID, ap.OrderID)
	assert.Equal(t, first.Code, ap.Code)

	assert.Equal(t, 1, f.orderCount(t))
	assert.Equal(t, 8, f.flat(t, necklaceID))
}

func TestCreateOrderInFlightClaimIsRejected(t *testing.T) {
	f := newFixture(t)
	_, _ = f.guard.Claim(context.Background(), "pi_1", 0)

	_, err := f.create.Execute(context.Background(), input("pi_1", necklace(1)))
	var ap *apporder.AlreadyProcessedError
	require.True(t, errors.As(err, &ap))
	assert.Zero(t, ap.OrderID)
	assert.Equal(t, 0, f.orderCount(t))
}

func TestCreateOrderDurableConstraintWithoutGuard(t *testing.T) {
	f := newFixture(t, func(d *apporder.CreateOrderDeps, _ *apporder.TransitionOptions) { d.Guard = nil })
	ctx := context.Background()

	_, err := f.create.Execute(ctx, input("pi_1", necklace(1)))
	require.NoError(t, err)
	_, err = f.create.Execute(ctx, input("pi_1", necklace(1)))
	assert.ErrorIs(t, err, apporder.ErrAlreadyProcessed)
	assert.Equal(t, 1, f.orderCount(t))
}

func TestCreateOrderReleasesClaimOnFailure(t *testing.T) {
	f := newFixture(t)
	f.faulty.insertErr = errBoom

	_, err := f.create.Execute(context.Background(), input("pi_1", necklace(1)))
	require.ErrorIs(t, err, apporder.ErrOrderPersistenceFailed)

	f.faulty.insertErr = nil
	_, err = f.create.Execute(context.Background(), input("pi_1", necklace(1)))
	require.NoError(t, err)
}

func TestCreateOrderHeaderFailureAbortsEverything(t *testing.T) {
	f := newFixture(t)
	f.faulty.insertErr = errBoom

	_, err := f.create.Execute(context.Background(), input("pi_1", necklace(2)))
	require.ErrorIs(t, err, apporder.ErrOrderPersistenceFailed)
	assert.Equal(t, 0, f.orderCount(t))
	assert.Equal(t, 10, f.flat(t, necklaceID))
	assert.Empty(t, f.sender.subjects())
	assert.Equal(t, 1, f.logs.FilterMessage("order_persistence_failed").Len())
}

func TestCreateOrderInsufficientStockKeepsOrder(t *testing.T) {
	f := newFixture(t)
	e := necklace(11)
	e.StockCeiling = 12 // stale snapshot

	res, err := f.create.Execute(context.Background(), input("pi_1", e))
	require.NoError(t, err)
	require.Len(t, res.StockIssues, 1)
	assert.Equal(t, domain.IssueFlatDecrement, res.StockIssues[0].Kind)
	assert.Equal(t, domain.IssueReasonRejected, res.StockIssues[0].Reason)

	assert.Equal(t, 10, f.flat(t, necklaceID))
	assert.Equal(t, 1, f.logs.FilterMessage("stock_decrement_rejected").Len())

	issues, err := f.store.StockIssues(context.Background(), res.OrderID)
	require.NoError(t, err)
	assert.Len(t, issues, 1)
}

func TestCreateOrderSizedStockRace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.create.Execute(ctx, input("pi_1", ring(1)))
	require.NoError(t, err)
	assert.Empty(t, first.StockIssues)
	assert.Equal(t, 0, f.sized(t, ringSize7ID))

	second, err := f.create.Execute(ctx, input("pi_2", ring(1)))
	require.NoError(t, err, "order is still created")
	require.Len(t, second.StockIssues, 1)
	assert.Equal(t, domain.IssueSizedDecrement, second.StockIssues[0].Kind)
	assert.Equal(t, 0, f.sized(t, ringSize7ID))
	assert.Equal(t, 2, f.orderCount(t))
}

func TestCreateOrderLineItemFailureIsCompensated(t *testing.T) {
	f := newFixture(t)
	f.faulty.lineErr = errBoom

	res, err := f.create.Execute(context.Background(), input("pi_1", necklace(2)))
	require.NoError(t, err)
	require.Len(t, res.StockIssues, 1)
	assert.Equal(t, domain.IssueLineItemInsert, res.StockIssues[0].Kind)

	o, err := f.store.Get(context.Background(), res.OrderID)
	require.NoError(t, err)
	assert.Empty(t, o.Items)
	assert.Equal(t, 8, f.flat(t, necklaceID), "stock still follows the captured payment")
	assert.Equal(t, 1, f.logs.FilterMessage("order_item_step_failed").Len())
}

func TestCreateOrderPaymentClassification(t *testing.T) {
	t.Run("cash voucher pending offline", func(t *testing.T) {
		f := newFixture(t)
		f.proc.settlement = payment.Settlement{Status: payment.StatusRequiresOfflineAction, MethodType: "oxxo"}
		res, err := f.create.Execute(context.Background(), input("pi_1", necklace(1)))
		require.NoError(t, err)
		assert.Equal(t, payment.MethodCashVoucher, res.PaymentMethod)
	})
	t.Run("unknown method type defaults to card", func(t *testing.T) {
		f := newFixture(t)
		f.proc.settlement = payment.Settlement{Status: payment.StatusSucceeded, MethodType: "link"}
		res, err := f.create.Execute(context.Background(), input("pi_1", necklace(1)))
		require.NoError(t, err)
		assert.Equal(t, payment.MethodCard, res.PaymentMethod)
	})
	t.Run("failed settlement writes nothing", func(t *testing.T) {
		f := newFixture(t)
		f.proc.settlement = payment.Settlement{Status: payment.StatusFailed, FailureReason: "card_declined"}
		_, err := f.create.Execute(context.Background(), input("pi_1", necklace(1)))
		assert.ErrorIs(t, err, apporder.ErrPaymentNotSettled)
		assert.Equal(t, 0, f.orderCount(t))
		assert.Equal(t, 10, f.flat(t, necklaceID))
	})
}

func TestCreateOrderNotificationFailureIsNotPropagated(t *testing.T) {
	f := newFixture(t)
	f.sender.err = errBoom

	res, err := f.create.Execute(context.Background(), input("pi_1", necklace(1)))
	require.NoError(t, err)
	assert.NotZero(t, res.OrderID)
	assert.Equal(t, 2, f.logs.FilterMessage("notification_failed").Len())
}

func TestNotificationsOutliveCallerCancellation(t *testing.T) {
	f := newFixture(t)
	res, err := f.create.Execute(context.Background(), input("pi_1", necklace(1)))
	require.NoError(t, err)
	o, err := f.store.Get(context.Background(), res.OrderID)
	require.NoError(t, err)
	f.sender.sent = nil

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f.notifier.OrderCreated(ctx, o)
	f.notifier.StatusChanged(ctx, o, "Va en camino")

	assert.Equal(t, []string{apporder.TemplateConfirmation, apporder.TemplateAdminAlert, apporder.TemplateStatusUpdate}, f.sender.subjects())
	assert.Equal(t, 0, f.logs.FilterMessage("notification_failed").Len())
}

func TestCreateOrderRequiresSettledPayment(t *testing.T) {
	tests := []struct {
		name string
		set  func(p *stubProcessor)
		logs string
	}{
		{
			name: "pending payment",
			set:  func(p *stubProcessor) { p.settlement = payment.Settlement{Status: payment.StatusPending, MethodType: "card"} },
			logs: "payment_not_settled",
		},
		{
			name: "unknown session",
			set:  func(p *stubProcessor) { p.retrieveErr = errors.New("no such payment_intent: pi_unpaid") },
			logs: "payment_retrieve_failed",
		},
		{
			name: "processor unreachable",
			set:  func(p *stubProcessor) { p.retrieveErr = errBoom },
			logs: "payment_retrieve_failed",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.set(f.proc)

			_, err := f.create.Execute(context.Background(), input("pi_unpaid", necklace(2)))
			require.ErrorIs(t, err, apporder.ErrPaymentNotSettled)
			assert.Equal(t, 0, f.orderCount(t))
			assert.Equal(t, 10, f.flat(t, necklaceID))
			assert.Empty(t, f.sender.subjects())
			assert.Equal(t, 1, f.logs.FilterMessage(tt.logs).Len())

			// the claim is released so the buyer can retry once the payment settles
			f.proc.retrieveErr = nil
			f.proc.settlement = payment.Settlement{Status: payment.StatusSucceeded, MethodType: "card"}
			_, err = f.create.Execute(context.Background(), input("pi_unpaid", necklace(2)))
			require.NoError(t, err)
			assert.Equal(t, 8, f.flat(t, necklaceID))
		})
	}
}
