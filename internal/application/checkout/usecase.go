package checkout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Zhima-Mochi/joyeria/internal/application"
	appshipping "github.com/Zhima-Mochi/joyeria/internal/application/shipping"
	"github.com/Zhima-Mochi/joyeria/internal/domain/cart"
	"github.com/Zhima-Mochi/joyeria/internal/domain/payment"
	"github.com/Zhima-Mochi/joyeria/internal/domain/shipping"
	"github.com/Zhima-Mochi/joyeria/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

const (
	checkoutService    = "checkout-service"
	useCaseOpenSession = "checkout.open_session"
	processorPeer      = "payment_processor"
	processorOpen      = "open_session"
	openTimeout        = 10 * time.Second
)

type OpenSessionInput struct {
	Entries          []cart.Entry
	ShippingOptionID int64
	Currency         string
}

type OpenSessionResult struct {
	SessionID     string
	ClientSecret  string
	Subtotal      int64
	ShippingPrice int64
	Total         int64
	Currency      string
}

// OpenSessionUseCase recomputes the total from the submitted cart and shipping
// option and opens a fresh session for it. The buyer UI calls it on every total change.
type OpenSessionUseCase struct {
	processor       payment.Processor
	shipping        shipping.Repository
	defaultCurrency string
	in              application.Instruments
}

var _ application.UseCase[OpenSessionInput, *OpenSessionResult] = (*OpenSessionUseCase)(nil)

func NewOpenSessionUseCase(processor payment.Processor, options shipping.Repository, currency string, tel observability.Observability) *OpenSessionUseCase {
	return &OpenSessionUseCase{
		processor:       processor,
		shipping:        options,
		defaultCurrency: strings.ToLower(currency),
		in:              application.NewInstruments(tel, checkoutService),
	}
}

func (uc *OpenSessionUseCase) Execute(ctx context.Context, cmd OpenSessionInput) (_ *OpenSessionResult, err error) {
	ctx, run := uc.in.Start(ctx, useCaseOpenSession, "OpenPaymentSession",
		attribute.Int("checkout.entries", len(cmd.Entries)),
		attribute.Int64("checkout.shipping_option_id", cmd.ShippingOptionID),
	)
	defer func() { run.End(err) }()

	if len(cmd.Entries) == 0 {
		run.Fail("EMPTY_CART")
		return nil, ErrEmptyCart
	}
	c, err := cart.FromEntries(cmd.Entries)
	if err != nil {
		run.Fail("CART_INVALID")
		return nil, err
	}
	opt, err := appshipping.Lookup(ctx, uc.shipping, cmd.ShippingOptionID)
	if err != nil {
		run.Fail("SHIPPING_UNAVAILABLE")
		return nil, err
	}

	currency := strings.ToLower(strings.TrimSpace(cmd.Currency))
	if currency == "" {
		currency = uc.defaultCurrency
	}
	subtotal := c.Subtotal()
	total := shipping.Total(subtotal, opt)

	openCtx, cancel := context.WithTimeout(ctx, openTimeout)
	defer cancel()
	start := time.Now()
	s, err := uc.processor.Open(openCtx, total, currency)
	uc.in.External(processorPeer, processorOpen, start, err)
	if err != nil {
		run.Fail("SESSION_OPEN_FAILED")
		return nil, fmt.Errorf("checkout: open session: %w", err)
	}

	run.Span().SetAttributes(attribute.String("payment.session_id", s.ID), attribute.Int64("checkout.total", total))
	run.With("session_id", s.ID)
	run.With("total", total)
	return &OpenSessionResult{
		SessionID:     s.ID,
		ClientSecret:  s.ClientSecret,
		Subtotal:      subtotal,
		ShippingPrice: opt.Price,
		Total:         total,
		Currency:      currency,
	}, nil
}
