package httppresentation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/Zhima-Mochi/joyeria/internal/application/checkout"
	apporder "github.com/Zhima-Mochi/joyeria/internal/application/order"
	appshipping "github.com/Zhima-Mochi/joyeria/internal/application/shipping"
	"github.com/Zhima-Mochi/joyeria/internal/domain/catalog"
	"github.com/Zhima-Mochi/joyeria/internal/domain/customer"
	"github.com/Zhima-Mochi/joyeria/internal/domain/inventory"
	domainOrder "github.com/Zhima-Mochi/joyeria/internal/domain/order"
	"github.com/Zhima-Mochi/joyeria/internal/domain/payment"
	"github.com/Zhima-Mochi/joyeria/internal/domain/shipping"
	"github.com/Zhima-Mochi/joyeria/internal/infrastructure/mail"
	"github.com/Zhima-Mochi/joyeria/internal/infrastructure/memory"
	infraobs "github.com/Zhima-Mochi/joyeria/internal/infrastructure/observability"
	"github.com/Zhima-Mochi/joyeria/internal/infrastructure/observability/prometrics"
	"github.com/Zhima-Mochi/joyeria/internal/infrastructure/observability/zaplogger"
	"github.com/Zhima-Mochi/joyeria/internal/infrastructure/simulated"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type server struct {
	store   *memory.Store
	reg     *prometheus.Registry
	handler http.Handler
}

func newServer(t *testing.T, processor payment.Processor, health ...HealthCheck) *server {
	t.Helper()

	store := memory.NewStore()
	store.PutProduct(catalog.Product{ID: 1, Name: "Collar Luna", Category: "collares", Price: 1200}, 5)
	store.PutProduct(catalog.Product{ID: 2, Name: "Anillo Sol", Category: "anillos", Price: 900}, 0)
	store.PutSizedStock(inventory.SizedStock{ID: 70, ProductID: 2, Size: "7", Quantity: 2})
	store.PutShippingOption(shipping.Option{ID: 1, Description: "Estándar", Price: 150, Active: true})
	store.PutShippingOption(shipping.Option{ID: 2, Description: "Express", Price: 300, Active: false})
	store.PutCustomer(customer.Contact{ID: 7, Name: "Lucía", Email: "lucia@example.com"})
	store.PutAdmin("ventas@example.com")

	reg := prometheus.NewRegistry()
	logger := zaplogger.Wrap(zaptest.NewLogger(t))
	tel := infraobs.NewWithRegistry(nil, logger, prometrics.New(reg, "", ""))

	composer, err := mail.NewComposer("Joyería")
	require.NoError(t, err)
	notifier := apporder.NewNotifier(mail.LogSender{}, composer, store, tel)
	if processor == nil {
		processor = simulated.NewProcessor(1)
	}
	options := store.ShippingOptions()
	policy := inventory.NewPolicy("")

	h := NewHandler(Services{
		Shipping:    appshipping.NewService(options, tel),
		OpenSession: checkout.NewOpenSessionUseCase(processor, options, "mxn", tel),
		CreateOrder: apporder.NewCreateOrderUseCase(apporder.CreateOrderDeps{
			Store:     store,
			Orders:    store,
			Processor: processor,
			Catalog:   store,
			Shipping:  options,
			Notifier:  notifier,
			Policy:    policy,
			Currency:  "mxn",
		}, tel),
		Transition: apporder.NewTransitionUseCase(store, notifier, apporder.TransitionOptions{
			Policy:               policy,
			RestoreSizedOnCancel: true,
		}, tel),
		Orders: apporder.NewQueryService(store),
		Health: health,
	}, logger, tel)

	return &server{store: store, reg: reg, handler: h.Router()}
}

func (s *server) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

var cartEntries = []map[string]any{
	{"product_id": 1, "name": "Collar Luna", "category": "collares", "unit_price": 1200, "quantity": 2, "stock_ceiling": 5},
	{"product_id": 2, "name": "Anillo Sol", "category": "anillos", "unit_price": 900, "quantity": 1, "stock_ceiling": 2,
		"size": "7", "size_stock_id": 70},
}

func TestHealth(t *testing.T) {
	s := newServer(t, nil,
		HealthCheck{Name: "postgres", Check: func(context.Context) error { return nil }},
	)
	rec := s.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(headerRequestID))

	degraded := newServer(t, nil,
		HealthCheck{Name: "redis", Check: func(context.Context) error { return errors.New("connection refused") }},
	)
	rec = degraded.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, "degraded", body["status"])
}

func TestRequestIDIsEchoed(t *testing.T) {
	s := newServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(headerRequestID, "req-42")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	assert.Equal(t, "req-42", rec.Header().Get(headerRequestID))
}

func TestListShippingOptions(t *testing.T) {
	s := newServer(t, nil)
	rec := s.do(t, http.MethodGet, "/shipping-options", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	opts := decode[[]shippingOptionDTO](t, rec)
	require.Len(t, opts, 1)
	assert.Equal(t, int64(150), opts[0].Price)
}

func TestCheckoutAndAdminFlow(t *testing.T) {
	s := newServer(t, nil)
	ctx := context.Background()

	rec := s.do(t, http.MethodPost, "/checkout/sessions", map[string]any{
		"entries":            cartEntries,
		"shipping_option_id": 1,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	sess := decode[openSessionResponse](t, rec)
	assert.Equal(t, int64(3300), sess.Subtotal)
	assert.Equal(t, int64(3450), sess.Total)
	assert.Equal(t, "mxn", sess.Currency)

	orderReq := map[string]any{
		"payment_session_id": sess.SessionID,
		"buyer_id":           7,
		"entries":            cartEntries,
		"shipping_option_id": 1,
		"subtotal":           sess.Subtotal,
		"total":              sess.Total,
	}
	rec = s.do(t, http.MethodPost, "/checkout/orders", orderReq)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[createOrderResponse](t, rec)
	assert.Regexp(t, `^ORD-\d{8}-\d{3}$`, created.Code)
	assert.Empty(t, created.StockIssues)

	flat, _ := s.store.FlatQuantity(ctx, 1)
	assert.Equal(t, 3, flat)
	sized, _ := s.store.SizedQuantity(ctx, 70)
	assert.Equal(t, 1, sized)

	rec = s.do(t, http.MethodPost, "/checkout/orders", orderReq)
	require.Equal(t, http.StatusConflict, rec.Code)
	dup := decode[errorBody](t, rec)
	assert.Equal(t, created.Code, dup.OrderCode)
	assert.Equal(t, created.OrderID, dup.OrderID)

	rec = s.do(t, http.MethodGet, "/admin/orders?status=en_proceso", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]orderSummaryDTO](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, "Lucía", list[0].BuyerName)

	path := "/admin/orders/" + strconv.FormatInt(created.OrderID, 10)
	rec = s.do(t, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decode[orderDetailDTO](t, rec)
	assert.Len(t, detail.Items, 2)
	assert.Equal(t, sess.SessionID, detail.PaymentSessionID)

	rec = s.do(t, http.MethodPatch, path+"/status", map[string]any{
		"status": "enviado", "carrier": "DHL", "tracking_number": "MX123",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	moved := decode[transitionResponse](t, rec)
	assert.Equal(t, "DHL", moved.Order.Carrier)

	rec = s.do(t, http.MethodPatch, path+"/status", map[string]any{"status": "en_proceso"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	count, err := testutil.GatherAndCount(s.reg, "http_requests_total")
	require.NoError(t, err)
	assert.Positive(t, count)
}

func TestErrorMapping(t *testing.T) {
	s := newServer(t, nil)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{name: "missing session id", method: http.MethodPost, path: "/checkout/orders",
			body: map[string]any{"buyer_id": 7, "entries": cartEntries, "shipping_option_id": 1, "total": 10}, want: http.StatusBadRequest},
		{name: "unknown field", method: http.MethodPost, path: "/checkout/sessions",
			body: map[string]any{"cart": 1}, want: http.StatusBadRequest},
		{name: "quantity above ceiling", method: http.MethodPost, path: "/checkout/sessions",
			body: map[string]any{"shipping_option_id": 1, "entries": []map[string]any{
				{"product_id": 1, "name": "Collar Luna", "unit_price": 1200, "quantity": 9, "stock_ceiling": 5},
			}}, want: http.StatusBadRequest},
		{name: "inactive shipping", method: http.MethodPost, path: "/checkout/sessions",
			body: map[string]any{"entries": cartEntries, "shipping_option_id": 2}, want: http.StatusUnprocessableEntity},
		{name: "unknown shipping", method: http.MethodPost, path: "/checkout/sessions",
			body: map[string]any{"entries": cartEntries, "shipping_option_id": 99}, want: http.StatusUnprocessableEntity},
		{name: "totals mismatch", method: http.MethodPost, path: "/checkout/orders",
			body: map[string]any{"payment_session_id": "sim_x", "buyer_id": 7, "entries": cartEntries,
				"shipping_option_id": 1, "subtotal": 1, "total": 2}, want: http.StatusBadRequest},
		{name: "bad order id", method: http.MethodGet, path: "/admin/orders/abc", want: http.StatusBadRequest},
		{name: "missing order", method: http.MethodGet, path: "/admin/orders/999", want: http.StatusNotFound},
		{name: "bad status filter", method: http.MethodGet, path: "/admin/orders?status=pagado", want: http.StatusBadRequest},
		{name: "bad limit", method: http.MethodGet, path: "/admin/orders?limit=x", want: http.StatusBadRequest},
		{name: "transition missing order", method: http.MethodPatch, path: "/admin/orders/999/status",
			body: map[string]any{"status": "cancelado"}, want: http.StatusNotFound},
		{name: "transition unknown status", method: http.MethodPatch, path: "/admin/orders/999/status",
			body: map[string]any{"status": "perdido"}, want: http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

type decliningProcessor struct{ payment.Processor }

func (decliningProcessor) Retrieve(_ context.Context, id string) (payment.Settlement, error) {
	return payment.Settlement{SessionID: id, Status: payment.StatusFailed, MethodType: "card", FailureReason: "card_declined"}, nil
}

func TestDeclinedPaymentIsPaymentRequired(t *testing.T) {
	s := newServer(t, decliningProcessor{Processor: simulated.NewProcessor(1)})
	rec := s.do(t, http.MethodPost, "/checkout/orders", map[string]any{
		"payment_session_id": "sim_declined",
		"buyer_id":           7,
		"entries":            cartEntries,
		"shipping_option_id": 1,
		"subtotal":           3300,
		"total":              3450,
	})
	assert.Equal(t, http.StatusPaymentRequired, rec.Code, rec.Body.String())

	flat, _ := s.store.FlatQuantity(context.Background(), 1)
	assert.Equal(t, 5, flat)
}

func TestUnopenedSessionIsPaymentRequired(t *testing.T) {
	s := newServer(t, nil)
	rec := s.do(t, http.MethodPost, "/checkout/orders", map[string]any{
		"payment_session_id": "sim_never_opened",
		"buyer_id":           7,
		"entries":            cartEntries,
		"shipping_option_id": 1,
		"subtotal":           3300,
		"total":              3450,
	})
	assert.Equal(t, http.StatusPaymentRequired, rec.Code, rec.Body.String())

	flat, _ := s.store.FlatQuantity(context.Background(), 1)
	assert.Equal(t, 5, flat)
	list, err := s.store.List(context.Background(), domainOrder.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)
}
