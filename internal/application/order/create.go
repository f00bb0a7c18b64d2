package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Zhima-Mochi/joyeria/internal/application"
	appshipping "github.com/Zhima-Mochi/joyeria/internal/application/shipping"
	"github.com/Zhima-Mochi/joyeria/internal/domain/cart"
	"github.com/Zhima-Mochi/joyeria/internal/domain/catalog"
	"github.com/Zhima-Mochi/joyeria/internal/domain/inventory"
	domain "github.com/Zhima-Mochi/joyeria/internal/domain/order"
	"github.com/Zhima-Mochi/joyeria/internal/domain/payment"
	"github.com/Zhima-Mochi/joyeria/internal/domain/shipping"
	"github.com/Zhima-Mochi/joyeria/internal/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	orderService       = "order-service"
	useCaseOrderCreate = "order.create"
	processorPeer      = "payment_processor"
	processorRetrieve  = "retrieve_session"
	retrieveTimeout    = 10 * time.Second
	defaultClaimTTL    = 10 * time.Minute
)

// CreateOrderDeps lists the collaborators of CreateOrderUseCase. Guard and
// Notifier are optional.
type CreateOrderDeps struct {
	Store     Store
	Orders    domain.Reader
	Processor payment.Processor
	Catalog   catalog.Reader
	Shipping  shipping.Repository
	Guard     IdempotencyGuard
	Notifier  *Notifier
	Codes     CodeGenerator
	Policy    inventory.Policy
	Currency  string
	ClaimTTL  time.Duration
	Now       func() time.Time
}

// CreateOrderUseCase turns a settled payment session and its cart into an order.
type CreateOrderUseCase struct {
	deps        CreateOrderDeps
	in          application.Instruments
	stockIssues observability.Counter // stock_issues_total{kind,reason}
}

var _ application.UseCase[CreateOrderInput, *CreateOrderResult] = (*CreateOrderUseCase)(nil)

func NewCreateOrderUseCase(deps CreateOrderDeps, tel observability.Observability) *CreateOrderUseCase {
	if tel == nil {
		tel = observability.Nop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.ClaimTTL <= 0 {
		deps.ClaimTTL = defaultClaimTTL
	}
	if deps.Policy.RingCategory == "" {
		deps.Policy = inventory.NewPolicy("")
	}
	if deps.Codes == nil {
		deps.Codes = domain.NewCodeGenerator(deps.Now, time.Now().UnixNano())
	}
	return &CreateOrderUseCase{
		deps:        deps,
		in:          application.NewInstruments(tel, orderService),
		stockIssues: tel.Metrics().Counter(observability.MStockIssues),
	}
}

type CreateOrderInput struct {
	PaymentSessionID string
	BuyerID          int64
	Entries          []cart.Entry
	ShippingOptionID int64
	Subtotal         int64
	Total            int64
}

type CreateOrderResult struct {
	OrderID       int64
	Code          string
	Status        domain.Status
	PaymentMethod payment.Method
	StockIssues   []domain.StockIssue
}

// Execute validates the checkout, classifies the payment and writes the order in
// one unit of work. Line items and stock decrements run as savepoint sub-steps:
// a failed sub-step is rolled back and recorded as a stock issue while the order
// is kept, because the payment has already been captured.
func (uc *CreateOrderUseCase) Execute(ctx context.Context, cmd CreateOrderInput) (_ *CreateOrderResult, err error) {
	sessionID := strings.TrimSpace(cmd.PaymentSessionID)
	ctx, run := uc.in.Start(ctx, useCaseOrderCreate, "CreateOrder",
		attribute.String("payment.session_id", sessionID),
		attribute.Int64("order.buyer_id", cmd.BuyerID),
		attribute.Int("order.entries", len(cmd.Entries)),
	)
	defer func() { run.End(err) }()
	log := run.Log.With(observability.F("payment_session_id", sessionID))

	// 1. validation, no writes
	switch {
	case sessionID == "":
		run.Fail("SESSION_ID_REQUIRED")
		return nil, incomplete("payment session id is required")
	case cmd.BuyerID <= 0:
		run.Fail("BUYER_ID_REQUIRED")
		return nil, incomplete("buyer id is required")
	case len(cmd.Entries) == 0:
		run.Fail("CART_EMPTY")
		return nil, incomplete("at least one cart entry is required")
	case cmd.ShippingOptionID <= 0:
		run.Fail("SHIPPING_REQUIRED")
		return nil, incomplete("shipping option is required")
	}
	c, err := cart.FromEntries(cmd.Entries)
	if err != nil {
		run.Fail("CART_INVALID")
		return nil, fmt.Errorf("%w: %w", ErrIncompleteOrderData, err)
	}
	opt, err := appshipping.Lookup(ctx, uc.deps.Shipping, cmd.ShippingOptionID)
	if err != nil {
		if errors.Is(err, shipping.ErrOptionUnavailable) {
			run.Fail("SHIPPING_UNAVAILABLE")
			return nil, fmt.Errorf("%w: %w", ErrIncompleteOrderData, err)
		}
		run.Fail("SHIPPING_LOOKUP_FAILED")
		return nil, fmt.Errorf("%w: %w", ErrOrderPersistenceFailed, err)
	}
	subtotal := c.Subtotal()
	total := shipping.Total(subtotal, opt)
	if cmd.Subtotal != subtotal || cmd.Total != total {
		run.Fail("TOTALS_MISMATCH")
		return nil, incomplete("submitted totals %d/%d do not match computed %d/%d", cmd.Subtotal, cmd.Total, subtotal, total)
	}
	if err := ctx.Err(); err != nil {
		run.Fail("CONTEXT_CANCELED")
		return nil, err
	}

	// 2. idempotency on the payment session
	if existing, err := uc.existing(ctx, sessionID); err != nil {
		run.Fail("IDEMPOTENCY_LOOKUP_FAILED")
		return nil, fmt.Errorf("%w: %w", ErrOrderPersistenceFailed, err)
	} else if existing != nil {
		run.Fail("ALREADY_PROCESSED")
		return nil, existing
	}
	claimed := false
	if uc.deps.Guard != nil {
		ok, gerr := uc.deps.Guard.Claim(ctx, sessionID, uc.deps.ClaimTTL)
		switch {
		case gerr != nil:
			log.Warn("idempotency_claim_failed", observability.Err(gerr))
		case !ok:
			run.Fail("ALREADY_PROCESSED")
			return nil, &AlreadyProcessedError{SessionID: sessionID}
		default:
			claimed = true
		}
	}
	defer func() {
		if claimed && err != nil && !errors.Is(err, ErrAlreadyProcessed) {
			if rerr := uc.deps.Guard.Release(context.WithoutCancel(ctx), sessionID); rerr != nil {
				log.Warn("idempotency_release_failed", observability.Err(rerr))
			}
		}
	}()

	// 3. payment classification
	method, err := uc.classify(ctx, sessionID, log)
	if err != nil {
		run.Fail("PAYMENT_NOT_SETTLED")
		return nil, err
	}

	// 4. line item snapshots
	entries := c.Entries()
	items := make([]domain.LineItem, len(entries))
	for i, e := range entries {
		items[i] = domain.NewLineItem(e, uc.category(ctx, e, log))
	}

	// 5. unit of work
	now := uc.deps.Now().UTC()
	o := &domain.Order{
		Code:                uc.deps.Codes.Next(),
		PaymentSessionID:    sessionID,
		BuyerID:             cmd.BuyerID,
		ShippingOptionID:    opt.ID,
		ShippingDescription: opt.Description,
		ShippingPrice:       opt.Price,
		Subtotal:            subtotal,
		Total:               total,
		Currency:            uc.deps.Currency,
		PaymentMethod:       method,
		Status:              domain.StatusProcessing,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	var issues []domain.StockIssue
	txErr := uc.deps.Store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		issues = issues[:0]
		o.Items = o.Items[:0]
		if err := tx.Insert(ctx, o); err != nil {
			return err
		}
		for i := range items {
			li := items[i]
			issues = append(issues, uc.writeItem(ctx, tx, o.ID, &li, log)...)
			if li.ID != 0 {
				o.Items = append(o.Items, li)
			}
		}
		for _, is := range issues {
			if err := tx.Savepoint(ctx, func(ctx context.Context, tx Tx) error {
				return tx.RecordStockIssue(ctx, is)
			}); err != nil {
				log.Error("stock_issue_record_failed",
					observability.F("kind", is.Kind),
					observability.F("product_id", is.ProductID),
					observability.Err(err),
				)
			}
		}
		return nil
	})
	if txErr != nil {
		if errors.Is(txErr, domain.ErrConflict) {
			if existing, lerr := uc.existing(ctx, sessionID); lerr == nil && existing != nil {
				run.Fail("ALREADY_PROCESSED")
				return nil, existing
			}
			run.Fail("ALREADY_PROCESSED")
			return nil, &AlreadyProcessedError{SessionID: sessionID}
		}
		run.Fail("REPO_INSERT_FAILED")
		log.Error("order_persistence_failed",
			observability.F("total", total),
			observability.Err(txErr),
		)
		return nil, fmt.Errorf("%w: %w", ErrOrderPersistenceFailed, txErr)
	}

	for _, is := range issues {
		uc.stockIssues.Add(1, observability.L("kind", is.Kind), observability.L("reason", is.Reason))
	}
	if len(issues) > 0 {
		run.Mark("CREATED_WITH_STOCK_ISSUES")
	}

	run.Span().SetAttributes(
		attribute.Int64("order.id", o.ID),
		attribute.String("order.code", o.Code),
		attribute.String("order.status", string(o.Status)),
	)
	run.Span().AddEvent("order.created", trace.WithAttributes(attribute.Int64("order.id", o.ID)))
	run.With("order_id", o.ID)
	run.With("order_code", o.Code)
	run.With("stock_issues", len(issues))

	// 6. notifications after commit
	uc.deps.Notifier.OrderCreated(ctx, o)

	return &CreateOrderResult{
		OrderID:       o.ID,
		Code:          o.Code,
		Status:        o.Status,
		PaymentMethod: o.PaymentMethod,
		StockIssues:   issues,
	}, nil
}

// existing returns an AlreadyProcessedError when the session already has an order.
func (uc *CreateOrderUseCase) existing(ctx context.Context, sessionID string) (*AlreadyProcessedError, error) {
	o, err := uc.deps.Orders.FindBySession(ctx, sessionID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return nil, nil
	case err != nil:
		return nil, err
	}
	return &AlreadyProcessedError{SessionID: sessionID, OrderID: o.ID, Code: o.Code}, nil
}

// classify asks the processor how the session settled. Only a succeeded or
// offline-action settlement lets the order through; an unknown session, an
// unreachable processor or a pending payment is ErrPaymentNotSettled.
func (uc *CreateOrderUseCase) classify(ctx context.Context, sessionID string, log observability.Logger) (payment.Method, error) {
	rctx, cancel := context.WithTimeout(ctx, retrieveTimeout)
	defer cancel()
	start := time.Now()
	st, err := uc.deps.Processor.Retrieve(rctx, sessionID)
	uc.in.External(processorPeer, processorRetrieve, start, err)
	if err != nil {
		log.Warn("payment_retrieve_failed", observability.Err(err))
		return "", fmt.Errorf("%w: %w", ErrPaymentNotSettled, err)
	}
	if !st.Status.Settled() {
		log.Info("payment_not_settled",
			observability.F("payment_status", string(st.Status)),
			observability.F("failure_reason", st.FailureReason),
		)
		reason := st.FailureReason
		if reason == "" {
			reason = string(st.Status)
		}
		return "", fmt.Errorf("%w: %s", ErrPaymentNotSettled, reason)
	}
	return payment.Classify(st.MethodType), nil
}

// category resolves the line category from the catalog for catalog items.
func (uc *CreateOrderUseCase) category(ctx context.Context, e cart.Entry, log observability.Logger) string {
	if e.Custom || e.ProductID == 0 || uc.deps.Catalog == nil {
		return e.Category
	}
	p, err := uc.deps.Catalog.Product(ctx, e.ProductID)
	if err != nil {
		log.Warn("catalog_lookup_failed",
			observability.F("product_id", e.ProductID),
			observability.Err(err),
		)
		return e.Category
	}
	if p.Category == "" {
		return e.Category
	}
	return p.Category
}

// writeItem inserts one line item and applies its stock decrement, each in its
// own savepoint, and reports the sub-steps that did not apply.
func (uc *CreateOrderUseCase) writeItem(ctx context.Context, tx Tx, orderID int64, li *domain.LineItem, log observability.Logger) []domain.StockIssue {
	var issues []domain.StockIssue
	issue := func(kind, reason string, err error) {
		is := domain.StockIssue{
			OrderID:     orderID,
			ProductID:   li.ProductID,
			SizeStockID: li.SizeStockID,
			Kind:        kind,
			Quantity:    li.Quantity,
			Reason:      reason,
		}
		fields := []observability.Field{
			observability.F("order_id", orderID),
			observability.F("product_id", li.ProductID),
			observability.F("size_stock_id", li.SizeStockID),
			observability.F("quantity", li.Quantity),
			observability.F("kind", kind),
		}
		if err != nil {
			is.Reason = reason + ": " + err.Error()
			log.Error("order_item_step_failed", append(fields, observability.Err(err))...)
		} else {
			log.Warn("stock_decrement_rejected", fields...)
		}
		issues = append(issues, is)
	}

	if err := tx.Savepoint(ctx, func(ctx context.Context, tx Tx) error {
		return tx.InsertLineItem(ctx, orderID, li)
	}); err != nil {
		li.ID = 0
		issue(domain.IssueLineItemInsert, domain.IssueReasonFailed, err)
	}

	kind, decrement := uc.decrementFor(*li)
	if decrement == nil {
		return issues
	}
	var applied bool
	if err := tx.Savepoint(ctx, func(ctx context.Context, tx Tx) error {
		var derr error
		applied, derr = decrement(ctx, tx)
		return derr
	}); err != nil {
		issue(kind, domain.IssueReasonFailed, err)
	} else if !applied {
		issue(kind, domain.IssueReasonRejected, nil)
	}
	return issues
}

type decrementFunc func(ctx context.Context, tx Tx) (bool, error)

// decrementFor picks the inventory representation for a line: sized stock for
// ring lines with a size, flat stock for other catalog lines, none otherwise.
func (uc *CreateOrderUseCase) decrementFor(li domain.LineItem) (string, decrementFunc) {
	if uc.deps.Policy.Sized(li.Category) {
		if li.SizeStockID == 0 {
			return "", nil
		}
		return domain.IssueSizedDecrement, func(ctx context.Context, tx Tx) (bool, error) {
			return tx.DecrementSized(ctx, li.SizeStockID, li.Quantity)
		}
	}
	if li.Custom || li.ProductID == 0 {
		return "", nil
	}
	return domain.IssueFlatDecrement, func(ctx context.Context, tx Tx) (bool, error) {
		return tx.DecrementFlat(ctx, li.ProductID, li.Quantity)
	}
}
