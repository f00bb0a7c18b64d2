package httppresentation

import (
	"errors"
	"net/http"

	"github.com/Zhima-Mochi/joyeria/internal/application/checkout"
	apporder "github.com/Zhima-Mochi/joyeria/internal/application/order"
	"github.com/Zhima-Mochi/joyeria/internal/domain/cart"
	domainOrder "github.com/Zhima-Mochi/joyeria/internal/domain/order"
	"github.com/Zhima-Mochi/joyeria/internal/domain/payment"
	"github.com/Zhima-Mochi/joyeria/internal/domain/shipping"
	"github.com/Zhima-Mochi/joyeria/internal/observability"
	"github.com/Zhima-Mochi/joyeria/internal/observability/logctx"
)

// requestError is a malformed or invalid request body, path or query.
type requestError struct {
	err error
	msg string
}

func (e *requestError) Error() string {
	if e.err != nil {
		return e.err.Error()
	}
	return e.msg
}

func (e *requestError) Unwrap() error { return e.err }

type errorBody struct {
	Error     string `json:"error"`
	OrderID   int64  `json:"order_id,omitempty"`
	OrderCode string `json:"order_code,omitempty"`
}

func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		reqErr    *requestError
		processed *apporder.AlreadyProcessedError
	)
	status := http.StatusInternalServerError
	body := errorBody{Error: err.Error()}

	switch {
	case errors.As(err, &reqErr),
		errors.Is(err, apporder.ErrIncompleteOrderData),
		errors.Is(err, checkout.ErrEmptyCart),
		errors.Is(err, cart.ErrInvalidEntry),
		errors.Is(err, cart.ErrStockCeiling),
		errors.Is(err, cart.ErrOutOfStock),
		errors.Is(err, domainOrder.ErrUnknownStatus),
		errors.Is(err, payment.ErrInvalidAmount):
		status = http.StatusBadRequest
	case errors.As(err, &processed):
		status = http.StatusConflict
		body.OrderID, body.OrderCode = processed.OrderID, processed.Code
	case errors.Is(err, apporder.ErrInvalidTransition):
		status = http.StatusConflict
	case errors.Is(err, apporder.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, apporder.ErrPaymentNotSettled):
		status = http.StatusPaymentRequired
	case errors.Is(err, shipping.ErrOptionUnavailable):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, shipping.ErrNoShippingOptions):
		status = http.StatusServiceUnavailable
	}

	if status == http.StatusInternalServerError {
		logctx.FromOr(r.Context(), h.log).Error("http_request_failed",
			observability.F("route", routeFromContext(r.Context())),
			observability.Err(err),
		)
		body.Error = http.StatusText(status)
	}
	writeJSON(w, status, body)
}
