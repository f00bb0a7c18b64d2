package order

import (
	"errors"
	"strings"
	"time"

	"github.com/Zhima-Mochi/joyeria/internal/domain/cart"
	"github.com/Zhima-Mochi/joyeria/internal/domain/payment"
)

var (
	ErrNotFound          = errors.New("order: not found")
	ErrConflict          = errors.New("order: payment session already has an order")
	ErrInvalidTransition = errors.New("order: invalid status transition")
	ErrUnknownStatus     = errors.New("order: unknown status")
)

type Status string

const (
	StatusProcessing Status = "en_proceso"
	StatusShipped    Status = "enviado"
	StatusDelivered  Status = "entregado"
	StatusCancelled  Status = "cancelado"
)

// ParseStatus accepts the persisted status labels only.
func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return st, nil
	default:
		return "", ErrUnknownStatus
	}
}

// Order is the durable header created once per settled payment session.
// Code is a display label; ID is the only identity.
type Order struct {
	ID                  int64
	Code                string
	PaymentSessionID    string
	BuyerID             int64
	ShippingOptionID    int64
	ShippingDescription string
	ShippingPrice       int64
	Subtotal            int64
	Total               int64
	Currency            string
	PaymentMethod       payment.Method
	Status              Status
	Carrier             string
	TrackingNumber      string
	CreatedAt           time.Time
	UpdatedAt           time.Time

	Items []LineItem
}

// LineItem snapshots a cart entry at order time. Later catalog edits never reach it.
type LineItem struct {
	ID          int64
	OrderID     int64
	ProductID   int64
	Custom      bool
	Name        string
	UnitPrice   int64
	Quantity    int
	Subtotal    int64
	Category    string
	ImageURL    string
	Size        string
	SizeStockID int64
	Materials   []cart.Material
}

// NewLineItem snapshots e using the resolved category.
func NewLineItem(e cart.Entry, category string) LineItem {
	li := LineItem{
		ProductID:   e.ProductID,
		Custom:      e.Custom,
		Name:        e.Name,
		UnitPrice:   e.UnitPrice,
		Quantity:    e.Quantity,
		Subtotal:    e.LineTotal(),
		Category:    category,
		ImageURL:    e.ImageURL,
		Size:        e.Size,
		SizeStockID: e.SizeStockID,
	}
	if len(e.Materials) > 0 {
		li.Materials = append([]cart.Material(nil), e.Materials...)
	}
	return li
}

// Shipment carries the optional carrier fields of a transition.
type Shipment struct {
	Carrier        string
	TrackingNumber string
}

// Transition moves the order to target through the state machine.
// Shipping always records carrier and tracking; other targets touch them only when provided.
func (o *Order) Transition(target Status, sh Shipment, now time.Time) error {
	st, err := stateFor(o.Status)
	if err != nil {
		return err
	}
	next, err := st.To(target)
	if err != nil {
		return err
	}
	carrier, tracking := strings.TrimSpace(sh.Carrier), strings.TrimSpace(sh.TrackingNumber)
	if next.Status() == StatusShipped {
		o.Carrier, o.TrackingNumber = carrier, tracking
	} else {
		// other targets only fill in what was provided
		if carrier != "" {
			o.Carrier = carrier
		}
		if tracking != "" {
			o.TrackingNumber = tracking
		}
	}
	o.Status = next.Status()
	o.UpdatedAt = now.UTC()
	return nil
}

func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	c := *o
	if o.Items != nil {
		c.Items = make([]LineItem, len(o.Items))
		for i, it := range o.Items {
			c.Items[i] = it
			if it.Materials != nil {
				c.Items[i].Materials = append([]cart.Material(nil), it.Materials...)
			}
		}
	}
	return &c
}
