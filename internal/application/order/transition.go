package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Zhima-Mochi/joyeria/internal/application"
	"github.com/Zhima-Mochi/joyeria/internal/domain/inventory"
	domain "github.com/Zhima-Mochi/joyeria/internal/domain/order"
	"github.com/Zhima-Mochi/joyeria/internal/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const useCaseOrderTransition = "order.transition"

type TransitionInput struct {
	OrderID         int64
	Status          string
	Carrier         string
	TrackingNumber  string
	CustomerMessage string
}

type TransitionResult struct {
	Order       *domain.Order
	Restored    int
	StockIssues []domain.StockIssue
}

// TransitionOptions tunes stock compensation on cancellation.
type TransitionOptions struct {
	Policy inventory.Policy
	// RestoreSizedOnCancel also returns ring lines to their sized counter.
	RestoreSizedOnCancel bool
	Now                  func() time.Time
}

// TransitionUseCase drives the admin lifecycle of an order.
type TransitionUseCase struct {
	store       Store
	notifier    *Notifier
	opts        TransitionOptions
	in          application.Instruments
	stockIssues observability.Counter
}

var _ application.UseCase[TransitionInput, *TransitionResult] = (*TransitionUseCase)(nil)

func NewTransitionUseCase(store Store, notifier *Notifier, opts TransitionOptions, tel observability.Observability) *TransitionUseCase {
	if tel == nil {
		tel = observability.Nop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Policy.RingCategory == "" {
		opts.Policy = inventory.NewPolicy("")
	}
	return &TransitionUseCase{
		store:       store,
		notifier:    notifier,
		opts:        opts,
		in:          application.NewInstruments(tel, orderService),
		stockIssues: tel.Metrics().Counter(observability.MStockIssues),
	}
}

// Execute applies the transition under a row lock. Unknown statuses, missing
// orders and disallowed edges leave the order untouched.
func (uc *TransitionUseCase) Execute(ctx context.Context, cmd TransitionInput) (_ *TransitionResult, err error) {
	ctx, run := uc.in.Start(ctx, useCaseOrderTransition, "TransitionOrder",
		attribute.Int64("order.id", cmd.OrderID),
		attribute.String("order.target_status", cmd.Status),
	)
	defer func() { run.End(err) }()
	log := run.Log.With(observability.F("order_id", cmd.OrderID))

	target, err := domain.ParseStatus(cmd.Status)
	if err != nil {
		run.Fail("UNKNOWN_STATUS")
		return nil, fmt.Errorf("%w: %q", ErrInvalidTransition, cmd.Status)
	}

	var (
		o        *domain.Order
		from     domain.Status
		restored int
		issues   []domain.StockIssue
	)
	txErr := uc.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		restored, issues = 0, issues[:0]
		var lerr error
		o, lerr = tx.Lock(ctx, cmd.OrderID)
		if lerr != nil {
			return lerr
		}
		from = o.Status
		if terr := o.Transition(target, domain.Shipment{Carrier: cmd.Carrier, TrackingNumber: cmd.TrackingNumber}, uc.opts.Now()); terr != nil {
			return terr
		}
		if uerr := tx.UpdateStatus(ctx, o); uerr != nil {
			return uerr
		}
		if target != domain.StatusCancelled {
			return nil
		}
		logged, ierr := tx.StockIssues(ctx, o.ID)
		if ierr != nil {
			return ierr
		}
		skip := undecremented(logged)
		for _, li := range o.Items {
			if k := lineKey(li); skip[k] > 0 {
				skip[k]--
				log.Info("stock_restore_skipped",
					observability.F("product_id", li.ProductID),
					observability.F("size_stock_id", li.SizeStockID),
					observability.F("quantity", li.Quantity),
				)
				continue
			}
			ok, is := uc.restore(ctx, tx, o.ID, li, log)
			if ok {
				restored++
			}
			if is != nil {
				issues = append(issues, *is)
			}
		}
		for _, is := range issues {
			if rerr := tx.Savepoint(ctx, func(ctx context.Context, tx Tx) error {
				return tx.RecordStockIssue(ctx, is)
			}); rerr != nil {
				log.Error("stock_issue_record_failed", observability.F("kind", is.Kind), observability.Err(rerr))
			}
		}
		return nil
	})
	switch {
	case txErr == nil:
	case errors.Is(txErr, domain.ErrNotFound):
		run.Fail("ORDER_NOT_FOUND")
		return nil, ErrNotFound
	case errors.Is(txErr, domain.ErrInvalidTransition), errors.Is(txErr, domain.ErrUnknownStatus):
		run.Fail("INVALID_TRANSITION")
		return nil, fmt.Errorf("%w: %w", ErrInvalidTransition, txErr)
	default:
		run.Fail("REPO_UPDATE_FAILED")
		return nil, fmt.Errorf("%w: %w", ErrOrderPersistenceFailed, txErr)
	}

	for _, is := range issues {
		uc.stockIssues.Add(1, observability.L("kind", is.Kind), observability.L("reason", is.Reason))
	}
	run.Span().AddEvent("order.transitioned", trace.WithAttributes(
		attribute.String("order.from", string(from)),
		attribute.String("order.to", string(o.Status)),
	))
	run.With("from", string(from))
	run.With("to", string(o.Status))
	if target == domain.StatusCancelled {
		run.With("restored_lines", restored)
	}

	if msg := strings.TrimSpace(cmd.CustomerMessage); msg != "" {
		uc.notifier.StatusChanged(ctx, o, msg)
	}
	return &TransitionResult{Order: o, Restored: restored, StockIssues: issues}, nil
}

// restore returns one cancelled line to inventory inside a savepoint.
func (uc *TransitionUseCase) restore(ctx context.Context, tx Tx, orderID int64, li domain.LineItem, log observability.Logger) (bool, *domain.StockIssue) {
	var (
		kind string
		fn   func(ctx context.Context, tx Tx) error
	)
	switch {
	case uc.opts.Policy.Sized(li.Category):
		if !uc.opts.RestoreSizedOnCancel || li.SizeStockID == 0 {
			return false, nil
		}
		kind = domain.IssueSizedRestore
		fn = func(ctx context.Context, tx Tx) error { return tx.IncrementSized(ctx, li.SizeStockID, li.Quantity) }
	case li.Custom || li.ProductID == 0:
		return false, nil
	default:
		kind = domain.IssueFlatRestore
		fn = func(ctx context.Context, tx Tx) error { return tx.IncrementFlat(ctx, li.ProductID, li.Quantity) }
	}

	if err := tx.Savepoint(ctx, fn); err != nil {
		log.Error("stock_restore_failed",
			observability.F("kind", kind),
			observability.F("product_id", li.ProductID),
			observability.F("size_stock_id", li.SizeStockID),
			observability.F("quantity", li.Quantity),
			observability.Err(err),
		)
		return false, &domain.StockIssue{
			OrderID:     orderID,
			ProductID:   li.ProductID,
			SizeStockID: li.SizeStockID,
			Kind:        kind,
			Quantity:    li.Quantity,
			Reason:      domain.IssueReasonFailed + ": " + err.Error(),
		}
	}
	return true, nil
}

type stockLine struct {
	productID   int64
	sizeStockID int64
	quantity    int
}

func lineKey(li domain.LineItem) stockLine {
	return stockLine{productID: li.ProductID, sizeStockID: li.SizeStockID, quantity: li.Quantity}
}

// undecremented counts the lines whose creation-time decrement never applied.
// Those lines have nothing to give back on cancel.
func undecremented(issues []domain.StockIssue) map[stockLine]int {
	out := make(map[stockLine]int)
	for _, is := range issues {
		if is.Kind != domain.IssueFlatDecrement && is.Kind != domain.IssueSizedDecrement {
			continue
		}
		out[stockLine{productID: is.ProductID, sizeStockID: is.SizeStockID, quantity: is.Quantity}]++
	}
	return out
}
