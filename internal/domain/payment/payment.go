package payment

import (
	"errors"
	"strings"
)

var (
	ErrInvalidAmount  = errors.New("payment: amount must be greater than zero")
	ErrInvalidSession = errors.New("payment: session id is required")
)

type Status string

const (
	StatusSucceeded             Status = "succeeded"
	StatusRequiresOfflineAction Status = "requires_offline_action"
	StatusPending               Status = "pending"
	StatusFailed                Status = "failed"
)

// Settled reports whether the status lets an order be created. An offline-action
// status (cash voucher) is a valid settlement path completed outside this system.
func (s Status) Settled() bool {
	return s == StatusSucceeded || s == StatusRequiresOfflineAction
}

type Method string

const (
	MethodCard        Method = "card"
	MethodCashVoucher Method = "cash_voucher"
)

// Session is an open payment session. ClientSecret is handed to the buyer UI.
type Session struct {
	ID           string
	ClientSecret string
	Amount       int64
	Currency     string
}

// Settlement is what the processor reports about a session.
type Settlement struct {
	SessionID     string
	Status        Status
	MethodType    string
	FailureReason string
}

// Classify maps the processor's payment-method type to a Method. Unknown types default to card.
func Classify(methodType string) Method {
	switch strings.ToLower(strings.TrimSpace(methodType)) {
	case "oxxo", "cash", "cash_voucher", "voucher":
		return MethodCashVoucher
	default:
		return MethodCard
	}
}
