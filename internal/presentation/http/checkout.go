package httppresentation

import (
	"net/http"

	"github.com/Zhima-Mochi/joyeria/internal/application/checkout"
	apporder "github.com/Zhima-Mochi/joyeria/internal/application/order"
	"github.com/Zhima-Mochi/joyeria/internal/domain/cart"
	domainOrder "github.com/Zhima-Mochi/joyeria/internal/domain/order"
	"github.com/Zhima-Mochi/joyeria/internal/domain/payment"
)

type materialDTO struct {
	Name     string `json:"name" validate:"required"`
	ImageURL string `json:"image_url"`
}

type entryDTO struct {
	ProductID    int64         `json:"product_id" validate:"gte=0"`
	Custom       bool          `json:"custom"`
	Name         string        `json:"name" validate:"required"`
	Category     string        `json:"category"`
	ImageURL     string        `json:"image_url"`
	UnitPrice    int64         `json:"unit_price" validate:"gte=0"`
	Quantity     int           `json:"quantity" validate:"gt=0"`
	StockCeiling int           `json:"stock_ceiling" validate:"gtefield=Quantity"`
	Size         string        `json:"size"`
	SizeStockID  int64         `json:"size_stock_id" validate:"gte=0"`
	Materials    []materialDTO `json:"materials" validate:"dive"`
}

func (e entryDTO) entry() cart.Entry {
	out := cart.Entry{
		ProductID:    e.ProductID,
		Custom:       e.Custom,
		Name:         e.Name,
		Category:     e.Category,
		ImageURL:     e.ImageURL,
		UnitPrice:    e.UnitPrice,
		Quantity:     e.Quantity,
		StockCeiling: e.StockCeiling,
		Size:         e.Size,
		SizeStockID:  e.SizeStockID,
	}
	for _, m := range e.Materials {
		out.Materials = append(out.Materials, cart.Material{Name: m.Name, ImageURL: m.ImageURL})
	}
	return out
}

func entries(in []entryDTO) []cart.Entry {
	out := make([]cart.Entry, len(in))
	for i, e := range in {
		out[i] = e.entry()
	}
	return out
}

type shippingOptionDTO struct {
	ID          int64  `json:"id"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
}

func (h *Handler) handleListShipping(w http.ResponseWriter, r *http.Request) {
	opts, err := h.svc.Shipping.ListActive(r.Context())
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	out := make([]shippingOptionDTO, len(opts))
	for i, o := range opts {
		out[i] = shippingOptionDTO{ID: o.ID, Description: o.Description, Price: o.Price}
	}
	writeJSON(w, http.StatusOK, out)
}

type openSessionRequest struct {
	Entries          []entryDTO `json:"entries" validate:"required,min=1,dive"`
	ShippingOptionID int64      `json:"shipping_option_id" validate:"required,gt=0"`
	Currency         string     `json:"currency" validate:"omitempty,len=3"`
}

type openSessionResponse struct {
	SessionID     string `json:"session_id"`
	ClientSecret  string `json:"client_secret"`
	Subtotal      int64  `json:"subtotal"`
	ShippingPrice int64  `json:"shipping_price"`
	Total         int64  `json:"total"`
	Currency      string `json:"currency"`
}

func (h *Handler) handleOpenSession(w http.ResponseWriter, r *http.Request) {
	var req openSessionRequest
	if err := h.decodeJSON(r, &req); err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	res, err := h.svc.OpenSession.Execute(r.Context(), checkout.OpenSessionInput{
		Entries:          entries(req.Entries),
		ShippingOptionID: req.ShippingOptionID,
		Currency:         req.Currency,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, openSessionResponse{
		SessionID:     res.SessionID,
		ClientSecret:  res.ClientSecret,
		Subtotal:      res.Subtotal,
		ShippingPrice: res.ShippingPrice,
		Total:         res.Total,
		Currency:      res.Currency,
	})
}

type createOrderRequest struct {
	PaymentSessionID string     `json:"payment_session_id" validate:"required"`
	BuyerID          int64      `json:"buyer_id" validate:"required,gt=0"`
	Entries          []entryDTO `json:"entries" validate:"required,min=1,dive"`
	ShippingOptionID int64      `json:"shipping_option_id" validate:"required,gt=0"`
	Subtotal         int64      `json:"subtotal" validate:"gte=0"`
	Total            int64      `json:"total" validate:"gt=0"`
}

type stockIssueDTO struct {
	Kind        string `json:"kind"`
	ProductID   int64  `json:"product_id,omitempty"`
	SizeStockID int64  `json:"size_stock_id,omitempty"`
	Quantity    int    `json:"quantity"`
	Reason      string `json:"reason"`
}

func stockIssues(in []domainOrder.StockIssue) []stockIssueDTO {
	out := make([]stockIssueDTO, len(in))
	for i, is := range in {
		out[i] = stockIssueDTO{
			Kind:        is.Kind,
			ProductID:   is.ProductID,
			SizeStockID: is.SizeStockID,
			Quantity:    is.Quantity,
			Reason:      is.Reason,
		}
	}
	return out
}

type createOrderResponse struct {
	OrderID       int64              `json:"order_id"`
	Code          string             `json:"code"`
	Status        domainOrder.Status `json:"status"`
	PaymentMethod payment.Method     `json:"payment_method"`
	StockIssues   []stockIssueDTO    `json:"stock_issues,omitempty"`
}

func (h *Handler) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := h.decodeJSON(r, &req); err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	res, err := h.svc.CreateOrder.Execute(r.Context(), apporder.CreateOrderInput{
		PaymentSessionID: req.PaymentSessionID,
		BuyerID:          req.BuyerID,
		Entries:          entries(req.Entries),
		ShippingOptionID: req.ShippingOptionID,
		Subtotal:         req.Subtotal,
		Total:            req.Total,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, createOrderResponse{
		OrderID:       res.OrderID,
		Code:          res.Code,
		Status:        res.Status,
		PaymentMethod: res.PaymentMethod,
		StockIssues:   stockIssues(res.StockIssues),
	})
}
