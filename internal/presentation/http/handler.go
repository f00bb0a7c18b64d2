package httppresentation

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/Zhima-Mochi/joyeria/internal/application"
	"github.com/Zhima-Mochi/joyeria/internal/application/checkout"
	apporder "github.com/Zhima-Mochi/joyeria/internal/application/order"
	appshipping "github.com/Zhima-Mochi/joyeria/internal/application/shipping"
	"github.com/Zhima-Mochi/joyeria/internal/observability"
	"github.com/Zhima-Mochi/joyeria/internal/observability/logctx"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
)

const (
	componentHTTPHandler = "http_server"
	headerRequestID      = "X-Request-ID"
	healthTimeout        = 2 * time.Second
)

// HealthCheck is one dependency probed by GET /health.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Services are the application entry points the handler exposes.
type Services struct {
	Shipping    *appshipping.Service
	OpenSession application.UseCase[checkout.OpenSessionInput, *checkout.OpenSessionResult]
	CreateOrder application.UseCase[apporder.CreateOrderInput, *apporder.CreateOrderResult]
	Transition  application.UseCase[apporder.TransitionInput, *apporder.TransitionResult]
	Orders      *apporder.QueryService
	Health      []HealthCheck
}

type Handler struct {
	svc      Services
	validate *validator.Validate
	log      observability.Logger
	tel      observability.Observability
}

func NewHandler(svc Services, logger observability.Logger, tel observability.Observability) *Handler {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Handler{
		svc:      svc,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		log:      logger.With(observability.F("component", componentHTTPHandler)),
		tel:      tel,
	}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	api := r.With(withRoute, withTrace, ObservabilityMiddleware(h.log, h.tel), withAccessLog(h.log))
	api.Get("/health", h.handleHealth)
	api.Get("/shipping-options", h.handleListShipping)
	api.Post("/checkout/sessions", h.handleOpenSession)
	api.Post("/checkout/orders", h.handleCreateOrder)

	api.Get("/admin/orders", h.handleListOrders)
	api.Get("/admin/orders/{id}", h.handleGetOrder)
	api.Patch("/admin/orders/{id}/status", h.handleTransition)
	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	checks := make(map[string]string, len(h.svc.Health))
	healthy := true
	for _, c := range h.svc.Health {
		if err := c.Check(ctx); err != nil {
			healthy = false
			checks[c.Name] = err.Error()
			logctx.FromOr(ctx, h.log).Warn("health_check_failed",
				observability.F("check", c.Name),
				observability.Err(err),
			)
			continue
		}
		checks[c.Name] = "ok"
	}
	status := http.StatusOK
	body := map[string]any{"status": "ok"}
	if !healthy {
		status = http.StatusServiceUnavailable
		body["status"] = "degraded"
	}
	if len(checks) > 0 {
		body["checks"] = checks
	}
	writeJSON(w, status, body)
}

// decodeJSON decodes the body into dst and validates its tags.
func (h *Handler) decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return &requestError{err: err}
	}
	if err := h.validate.Struct(dst); err != nil {
		return &requestError{err: err}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
