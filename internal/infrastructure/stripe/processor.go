package stripe

import (
	"context"
	"fmt"
	"strings"

	"github.com/Zhima-Mochi/joyeria/internal/domain/payment"
	stripego "github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
)

// intents is the slice of the PaymentIntents client the processor uses.
type intents interface {
	New(params *stripego.PaymentIntentParams) (*stripego.PaymentIntent, error)
	Get(id string, params *stripego.PaymentIntentParams) (*stripego.PaymentIntent, error)
}

// Processor opens and inspects Stripe PaymentIntents. Sessions accept card and
// OXXO cash vouchers.
type Processor struct {
	intents     intents
	methodTypes []string
}

func NewProcessor(secretKey string) *Processor {
	sc := client.New(secretKey, nil)
	return &Processor{intents: sc.PaymentIntents, methodTypes: []string{"card", "oxxo"}}
}

func (p *Processor) Open(ctx context.Context, amount int64, currency string) (payment.Session, error) {
	if amount <= 0 {
		return payment.Session{}, payment.ErrInvalidAmount
	}
	params := &stripego.PaymentIntentParams{
		Amount:             stripego.Int64(amount),
		Currency:           stripego.String(strings.ToLower(currency)),
		PaymentMethodTypes: stripego.StringSlice(p.methodTypes),
	}
	params.Context = ctx

	pi, err := p.intents.New(params)
	if err != nil {
		return payment.Session{}, fmt.Errorf("stripe: create payment intent: %w", err)
	}
	return payment.Session{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
	}, nil
}

func (p *Processor) Retrieve(ctx context.Context, id string) (payment.Settlement, error) {
	if strings.TrimSpace(id) == "" {
		return payment.Settlement{}, payment.ErrInvalidSession
	}
	params := &stripego.PaymentIntentParams{}
	params.Context = ctx
	params.AddExpand("payment_method")

	pi, err := p.intents.Get(id, params)
	if err != nil {
		return payment.Settlement{}, fmt.Errorf("stripe: retrieve payment intent %s: %w", id, err)
	}
	return settlementFrom(pi), nil
}

// settlementFrom maps a PaymentIntent onto the settlement vocabulary. An OXXO
// intent waiting on its voucher is an offline-action settlement, not a failure.
func settlementFrom(pi *stripego.PaymentIntent) payment.Settlement {
	st := payment.Settlement{SessionID: pi.ID, MethodType: methodType(pi)}
	switch pi.Status {
	case stripego.PaymentIntentStatusSucceeded:
		st.Status = payment.StatusSucceeded
	case stripego.PaymentIntentStatusRequiresAction:
		if pi.NextAction != nil && pi.NextAction.OXXODisplayDetails != nil {
			st.Status = payment.StatusRequiresOfflineAction
		} else {
			st.Status = payment.StatusPending
		}
	case stripego.PaymentIntentStatusCanceled:
		st.Status = payment.StatusFailed
		st.FailureReason = "canceled"
		if pi.CancellationReason != "" {
			st.FailureReason = string(pi.CancellationReason)
		}
	case stripego.PaymentIntentStatusRequiresPaymentMethod:
		if pi.LastPaymentError != nil {
			st.Status = payment.StatusFailed
			st.FailureReason = pi.LastPaymentError.Msg
		} else {
			st.Status = payment.StatusPending
		}
	default:
		st.Status = payment.StatusPending
	}
	return st
}

func methodType(pi *stripego.PaymentIntent) string {
	if pi.PaymentMethod != nil && pi.PaymentMethod.Type != "" {
		return string(pi.PaymentMethod.Type)
	}
	if pi.NextAction != nil && pi.NextAction.OXXODisplayDetails != nil {
		return "oxxo"
	}
	if len(pi.PaymentMethodTypes) == 1 {
		return pi.PaymentMethodTypes[0]
	}
	return ""
}
