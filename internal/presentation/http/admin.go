package httppresentation

import (
	"net/http"
	"strconv"
	"time"

	apporder "github.com/Zhima-Mochi/joyeria/internal/application/order"
	"github.com/Zhima-Mochi/joyeria/internal/domain/cart"
	domainOrder "github.com/Zhima-Mochi/joyeria/internal/domain/order"
	"github.com/Zhima-Mochi/joyeria/internal/domain/payment"
	"github.com/go-chi/chi/v5"
)

type orderSummaryDTO struct {
	ID             int64              `json:"id"`
	Code           string             `json:"code"`
	Status         domainOrder.Status `json:"status"`
	Total          int64              `json:"total"`
	Currency       string             `json:"currency"`
	PaymentMethod  payment.Method     `json:"payment_method"`
	Carrier        string             `json:"carrier,omitempty"`
	TrackingNumber string             `json:"tracking_number,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
	BuyerName      string             `json:"buyer_name"`
	BuyerEmail     string             `json:"buyer_email"`
	BuyerPhone     string             `json:"buyer_phone"`
	BuyerAddress   string             `json:"buyer_address"`
}

type lineItemDTO struct {
	ID          int64           `json:"id"`
	ProductID   int64           `json:"product_id,omitempty"`
	Custom      bool            `json:"custom"`
	Name        string          `json:"name"`
	Category    string          `json:"category"`
	ImageURL    string          `json:"image_url,omitempty"`
	UnitPrice   int64           `json:"unit_price"`
	Quantity    int             `json:"quantity"`
	Subtotal    int64           `json:"subtotal"`
	Size        string          `json:"size,omitempty"`
	SizeStockID int64           `json:"size_stock_id,omitempty"`
	Materials   []cart.Material `json:"materials,omitempty"`
}

type orderDetailDTO struct {
	ID                  int64              `json:"id"`
	Code                string             `json:"code"`
	PaymentSessionID    string             `json:"payment_session_id"`
	PaymentMethod       payment.Method     `json:"payment_method"`
	BuyerID             int64              `json:"buyer_id"`
	Status              domainOrder.Status `json:"status"`
	ShippingOptionID    int64              `json:"shipping_option_id"`
	ShippingDescription string             `json:"shipping_description"`
	ShippingPrice       int64              `json:"shipping_price"`
	Subtotal            int64              `json:"subtotal"`
	Total               int64              `json:"total"`
	Currency            string             `json:"currency"`
	Carrier             string             `json:"carrier,omitempty"`
	TrackingNumber      string             `json:"tracking_number,omitempty"`
	CreatedAt           time.Time          `json:"created_at"`
	UpdatedAt           time.Time          `json:"updated_at"`
	Items               []lineItemDTO      `json:"items"`
	StockIssues         []stockIssueDTO    `json:"stock_issues,omitempty"`
}

func orderDetail(o *domainOrder.Order, issues []domainOrder.StockIssue) orderDetailDTO {
	items := make([]lineItemDTO, len(o.Items))
	for i, li := range o.Items {
		items[i] = lineItemDTO{
			ID:          li.ID,
			ProductID:   li.ProductID,
			Custom:      li.Custom,
			Name:        li.Name,
			Category:    li.Category,
			ImageURL:    li.ImageURL,
			UnitPrice:   li.UnitPrice,
			Quantity:    li.Quantity,
			Subtotal:    li.Subtotal,
			Size:        li.Size,
			SizeStockID: li.SizeStockID,
			Materials:   li.Materials,
		}
	}
	return orderDetailDTO{
		ID:                  o.ID,
		Code:                o.Code,
		PaymentSessionID:    o.PaymentSessionID,
		PaymentMethod:       o.PaymentMethod,
		BuyerID:             o.BuyerID,
		Status:              o.Status,
		ShippingOptionID:    o.ShippingOptionID,
		ShippingDescription: o.ShippingDescription,
		ShippingPrice:       o.ShippingPrice,
		Subtotal:            o.Subtotal,
		Total:               o.Total,
		Currency:            o.Currency,
		Carrier:             o.Carrier,
		TrackingNumber:      o.TrackingNumber,
		CreatedAt:           o.CreatedAt,
		UpdatedAt:           o.UpdatedAt,
		Items:               items,
		StockIssues:         stockIssues(issues),
	}
}

type listOrdersQuery struct {
	Status string `validate:"omitempty,oneof=en_proceso enviado entregado cancelado"`
	Limit  int    `validate:"gte=0,lte=200"`
	Offset int    `validate:"gte=0"`
}

func (h *Handler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var (
		query listOrdersQuery
		err   error
	)
	query.Status = q.Get("status")
	if query.Limit, err = intParam(q.Get("limit")); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	if query.Offset, err = intParam(q.Get("offset")); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	if err := h.validate.Struct(query); err != nil {
		h.writeDomainError(w, r, &requestError{err: err})
		return
	}

	list, err := h.svc.Orders.List(r.Context(), domainOrder.ListFilter{
		Status: domainOrder.Status(query.Status),
		Limit:  query.Limit,
		Offset: query.Offset,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	out := make([]orderSummaryDTO, len(list))
	for i, s := range list {
		out[i] = orderSummaryDTO{
			ID:             s.ID,
			Code:           s.Code,
			Status:         s.Status,
			Total:          s.Total,
			Currency:       s.Currency,
			PaymentMethod:  s.PaymentMethod,
			Carrier:        s.Carrier,
			TrackingNumber: s.TrackingNumber,
			CreatedAt:      s.CreatedAt,
			BuyerName:      s.BuyerName,
			BuyerEmail:     s.BuyerEmail,
			BuyerPhone:     s.BuyerPhone,
			BuyerAddress:   s.BuyerAddress,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := orderID(r)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	d, err := h.svc.Orders.Get(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orderDetail(d.Order, d.StockIssues))
}

type transitionRequest struct {
	Status          string `json:"status" validate:"required"`
	Carrier         string `json:"carrier" validate:"max=100"`
	TrackingNumber  string `json:"tracking_number" validate:"max=100"`
	CustomerMessage string `json:"customer_message" validate:"max=2000"`
}

type transitionResponse struct {
	Order       orderDetailDTO  `json:"order"`
	Restored    int             `json:"restored"`
	StockIssues []stockIssueDTO `json:"stock_issues,omitempty"`
}

func (h *Handler) handleTransition(w http.ResponseWriter, r *http.Request) {
	id, err := orderID(r)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	var req transitionRequest
	if err := h.decodeJSON(r, &req); err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	res, err := h.svc.Transition.Execute(r.Context(), apporder.TransitionInput{
		OrderID:         id,
		Status:          req.Status,
		Carrier:         req.Carrier,
		TrackingNumber:  req.TrackingNumber,
		CustomerMessage: req.CustomerMessage,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, transitionResponse{
		Order:       orderDetail(res.Order, nil),
		Restored:    res.Restored,
		StockIssues: stockIssues(res.StockIssues),
	})
}

func orderID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, &requestError{msg: "order id must be a positive integer"}
	}
	return id, nil
}

func intParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, &requestError{err: err}
	}
	return n, nil
}
