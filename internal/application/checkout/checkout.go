package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Zhima-Mochi/joyeria/internal/domain/cart"
	"github.com/Zhima-Mochi/joyeria/internal/domain/payment"
	"github.com/Zhima-Mochi/joyeria/internal/domain/shipping"
)

var ErrEmptyCart = errors.New("checkout: cart is empty")

// Checkout owns one buyer's cart and shipping choice and keeps a payment session
// bound to the current total. A session is never patched: any total change opens
// a new one.
type Checkout struct {
	cart      *cart.Cart
	option    *shipping.Option
	currency  string
	processor payment.Processor
	session   *payment.Session
}

func New(c *cart.Cart, processor payment.Processor, currency string) *Checkout {
	if c == nil {
		c = cart.New()
	}
	return &Checkout{cart: c, processor: processor, currency: strings.ToLower(currency)}
}

func (c *Checkout) Cart() *cart.Cart { return c.cart }

func (c *Checkout) Subtotal() int64 { return c.cart.Subtotal() }

// Total is the subtotal plus the selected shipping price, if any.
func (c *Checkout) Total() int64 {
	if c.option == nil {
		return c.cart.Subtotal()
	}
	return shipping.Total(c.cart.Subtotal(), *c.option)
}

func (c *Checkout) Shipping() (shipping.Option, bool) {
	if c.option == nil {
		return shipping.Option{}, false
	}
	return *c.option, true
}

// Session returns the session bound to the current total.
func (c *Checkout) Session() (payment.Session, bool) {
	if c.session == nil {
		return payment.Session{}, false
	}
	return *c.session, true
}

func (c *Checkout) Add(ctx context.Context, e cart.Entry) error {
	if err := c.cart.Add(e); err != nil {
		return err
	}
	return c.Refresh(ctx)
}

func (c *Checkout) SetQuantity(ctx context.Context, key string, n int) (int, error) {
	q, err := c.cart.SetQuantity(key, n)
	if err != nil {
		return 0, err
	}
	return q, c.Refresh(ctx)
}

func (c *Checkout) Remove(ctx context.Context, key string) error {
	if err := c.cart.Remove(key); err != nil {
		return err
	}
	return c.Refresh(ctx)
}

// SelectShipping changes the total but never the subtotal.
func (c *Checkout) SelectShipping(ctx context.Context, o shipping.Option) error {
	if !o.Active {
		return shipping.ErrOptionUnavailable
	}
	c.option = &o
	return c.Refresh(ctx)
}

// Refresh opens a new session when the total differs from the current session's
// amount. Without shipping or items there is no payable total and the session is dropped.
func (c *Checkout) Refresh(ctx context.Context) error {
	if c.cart.Len() == 0 || c.option == nil {
		c.session = nil
		return nil
	}
	total := c.Total()
	if c.session != nil && c.session.Amount == total {
		return nil
	}
	s, err := c.processor.Open(ctx, total, c.currency)
	if err != nil {
		c.session = nil
		return fmt.Errorf("checkout: open session: %w", err)
	}
	c.session = &s
	return nil
}
