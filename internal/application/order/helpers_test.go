package order_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	apporder "github.com/Zhima-Mochi/joyeria/internal/application/order"
	"github.com/Zhima-Mochi/joyeria/internal/domain/cart"
	"github.com/Zhima-Mochi/joyeria/internal/domain/catalog"
	"github.com/Zhima-Mochi/joyeria/internal/domain/customer"
	"github.com/Zhima-Mochi/joyeria/internal/domain/inventory"
	"github.com/Zhima-Mochi/joyeria/internal/domain/notification"
	domain "github.com/Zhima-Mochi/joyeria/internal/domain/order"
	"github.com/Zhima-Mochi/joyeria/internal/domain/payment"
	"github.com/Zhima-Mochi/joyeria/internal/domain/shipping"
	"github.com/Zhima-Mochi/joyeria/internal/infrastructure/memory"
	infraobs "github.com/Zhima-Mochi/joyeria/internal/infrastructure/observability"
	"github.com/Zhima-Mochi/joyeria/internal/infrastructure/observability/zaplogger"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const (
	necklaceID  int64 = 1
	ringID      int64 = 2
	ringSize7ID int64 = 70
	standardID  int64 = 1
	retiredID   int64 = 2
	buyerID     int64 = 1
	adminEmail        = "admin@joyeria.mx"
)

type stubProcessor struct {
	mu          sync.Mutex
	settlement  payment.Settlement
	retrieveErr error
	opened      []int64
}

func (p *stubProcessor) Open(_ context.Context, amount int64, currency string) (payment.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.opened = append(p.opened, amount)
	return payment.Session{ID: "pi_test", ClientSecret: "pi_test_secret", Amount: amount, Currency: currency}, nil
}

func (p *stubProcessor) Retrieve(_ context.Context, id string) (payment.Settlement, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.retrieveErr != nil {
		return payment.Settlement{}, p.retrieveErr
	}
	s := p.settlement
	s.SessionID = id
	return s, nil
}

type recordingSender struct {
	mu   sync.Mutex
	err  error
	sent []notification.Message
}

func (s *recordingSender) Send(ctx context.Context, msg notification.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

func (s *recordingSender) subjects() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.sent))
	for i, m := range s.sent {
		out[i] = m.Subject
	}
	return out
}

type stubComposer struct{}

func (stubComposer) Confirmation(o *domain.Order, b customer.Contact) (notification.Message, error) {
	return notification.Message{To: b.Email, Subject: apporder.TemplateConfirmation, HTMLBody: o.Code}, nil
}

func (stubComposer) AdminAlert(o *domain.Order, _ customer.Contact, to string) (notification.Message, error) {
	return notification.Message{To: to, Subject: apporder.TemplateAdminAlert, HTMLBody: o.Code}, nil
}

func (stubComposer) StatusUpdate(o *domain.Order, b customer.Contact, msg string) (notification.Message, error) {
	return notification.Message{To: b.Email, Subject: apporder.TemplateStatusUpdate, HTMLBody: string(o.Status) + ": " + msg}, nil
}

type fixedCodes string

func (c fixedCodes) Next() string { return string(c) }

type stubGuard struct {
	mu      sync.Mutex
	claimed map[string]bool
}

func (g *stubGuard) Claim(_ context.Context, key string, _ time.Duration) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.claimed[key] {
		return false, nil
	}
	g.claimed[key] = true
	return true, nil
}

func (g *stubGuard) Release(_ context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.claimed, key)
	return nil
}

// faultyStore injects write failures into the memory store's units of work.
type faultyStore struct {
	*memory.Store
	insertErr error
	lineErr   error
}

func (f *faultyStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx apporder.Tx) error) error {
	return f.Store.WithinTx(ctx, func(ctx context.Context, tx apporder.Tx) error {
		return fn(ctx, faultyTx{Tx: tx, f: f})
	})
}

type faultyTx struct {
	apporder.Tx
	f *faultyStore
}

func (t faultyTx) Insert(ctx context.Context, o *domain.Order) error {
	if t.f.insertErr != nil {
		return t.f.insertErr
	}
	return t.Tx.Insert(ctx, o)
}

func (t faultyTx) InsertLineItem(ctx context.Context, orderID int64, li *domain.LineItem) error {
	if t.f.lineErr != nil {
		return t.f.lineErr
	}
	return t.Tx.InsertLineItem(ctx, orderID, li)
}

func (t faultyTx) Savepoint(ctx context.Context, fn func(ctx context.Context, tx apporder.Tx) error) error {
	return t.Tx.Savepoint(ctx, func(ctx context.Context, tx apporder.Tx) error {
		return fn(ctx, faultyTx{Tx: tx, f: t.f})
	})
}

type fixture struct {
	store      *memory.Store
	faulty     *faultyStore
	proc       *stubProcessor
	sender     *recordingSender
	guard      *stubGuard
	logs       *observer.ObservedLogs
	create     *apporder.CreateOrderUseCase
	transition *apporder.TransitionUseCase
	query      *apporder.QueryService
	notifier   *apporder.Notifier
}

type fixtureOption func(*apporder.CreateOrderDeps, *apporder.TransitionOptions)

func withRestoreSized(on bool) fixtureOption {
	return func(_ *apporder.CreateOrderDeps, o *apporder.TransitionOptions) { o.RestoreSizedOnCancel = on }
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()

	store := memory.NewStore()
	store.PutProduct(catalog.Product{ID: necklaceID, Name: "Collar Luna", Category: "collares", Price: 100}, 10)
	store.PutProduct(catalog.Product{ID: ringID, Name: "Anillo Sol", Category: "anillos", Price: 300}, 0)
	store.PutSizedStock(inventory.SizedStock{ID: ringSize7ID, ProductID: ringID, Size: "7", Quantity: 1})
	store.PutShippingOption(shipping.Option{ID: standardID, Description: "Estándar", Price: 50, Active: true})
	store.PutShippingOption(shipping.Option{ID: retiredID, Description: "Express", Price: 150, Active: false})
	store.PutCustomer(customer.Contact{
		ID: buyerID, Name: "Ana López", Email: "ana@example.com", Phone: "5550001111",
		Address: customer.Address{Street: "Av. Reforma 1", City: "CDMX", PostalCode: "06600"},
	})
	store.PutAdmin(adminEmail)

	core, logs := observer.New(zapcore.DebugLevel)
	tel := infraobs.New(nil, zaplogger.Wrap(zap.New(core)), nil, nil)

	f := &fixture{
		store:  store,
		faulty: &faultyStore{Store: store},
		proc:   &stubProcessor{settlement: payment.Settlement{Status: payment.StatusSucceeded, MethodType: "card"}},
		sender: &recordingSender{},
		guard:  &stubGuard{claimed: map[string]bool{}},
		logs:   logs,
	}
	notifier := apporder.NewNotifier(f.sender, stubComposer{}, store, tel)
	f.notifier = notifier

	deps := apporder.CreateOrderDeps{
		Store:     f.faulty,
		Orders:    store,
		Processor: f.proc,
		Catalog:   store,
		Shipping:  store.ShippingOptions(),
		Guard:     f.guard,
		Notifier:  notifier,
		Codes:     fixedCodes("ORD-20261019-001"),
		Policy:    inventory.NewPolicy("anillos"),
		Currency:  "mxn",
	}
	topts := apporder.TransitionOptions{Policy: inventory.NewPolicy("anillos"), RestoreSizedOnCancel: true}
	for _, o := range opts {
		o(&deps, &topts)
	}

	f.create = apporder.NewCreateOrderUseCase(deps, tel)
	f.transition = apporder.NewTransitionUseCase(f.faulty, notifier, topts, tel)
	f.query = apporder.NewQueryService(store)
	return f
}

func necklace(qty int) cart.Entry {
	return cart.Entry{ProductID: necklaceID, Name: "Collar Luna", Category: "collares", UnitPrice: 100, Quantity: qty, StockCeiling: 10}
}

func ring(qty int) cart.Entry {
	return cart.Entry{ProductID: ringID, Name: "Anillo Sol", Category: "anillos", UnitPrice: 300, Quantity: qty,
		StockCeiling: 1, Size: "7", SizeStockID: ringSize7ID}
}

func customPiece() cart.Entry {
	return cart.Entry{Custom: true, Name: "Pulsera a medida", Category: "pulseras", UnitPrice: 250, Quantity: 1, StockCeiling: 5,
		Materials: []cart.Material{{Name: "plata", ImageURL: "plata.png"}, {Name: "cuarzo", ImageURL: "cuarzo.png"}}}
}

func input(session string, entries ...cart.Entry) apporder.CreateOrderInput {
	var subtotal int64
	for _, e := range entries {
		subtotal += e.LineTotal()
	}
	return apporder.CreateOrderInput{
		PaymentSessionID: session,
		BuyerID:          buyerID,
		Entries:          entries,
		ShippingOptionID: standardID,
		Subtotal:         subtotal,
		Total:            subtotal + 50,
	}
}

func (f *fixture) flat(t *testing.T, id int64) int {
	t.Helper()
	q, err := f.store.FlatQuantity(context.Background(), id)
	if err != nil {
		t.Fatalf("flat quantity %d: %v", id, err)
	}
	return q
}

func (f *fixture) sized(t *testing.T, id int64) int {
	t.Helper()
	q, err := f.store.SizedQuantity(context.Background(), id)
	if err != nil {
		t.Fatalf("sized quantity %d: %v", id, err)
	}
	return q
}

func (f *fixture) orderCount(t *testing.T) int {
	t.Helper()
	list, err := f.store.List(context.Background(), domain.ListFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	return len(list)
}

var errBoom = errors.New("boom")

func zapString(k, v string) zapcore.Field { return zap.String(k, v) }
