package order

import (
	"errors"
	"fmt"

	domain "github.com/Zhima-Mochi/joyeria/internal/domain/order"
)

var (
	ErrIncompleteOrderData    = errors.New("order: incomplete order data")
	ErrOrderPersistenceFailed = errors.New("order: persistence failed")
	ErrAlreadyProcessed       = errors.New("order: payment session already processed")
	ErrPaymentNotSettled      = errors.New("order: payment not settled")
	ErrInvalidTransition      = domain.ErrInvalidTransition
	ErrNotFound               = domain.ErrNotFound
)

// AlreadyProcessedError carries the order that already exists for a payment
// session. OrderID is zero while the first attempt is still in flight.
type AlreadyProcessedError struct {
	SessionID string
	OrderID   int64
	Code      string
}

func (e *AlreadyProcessedError) Error() string {
	if e.OrderID == 0 {
		return fmt.Sprintf("%s: session %s is being processed", ErrAlreadyProcessed, e.SessionID)
	}
	return fmt.Sprintf("%s: session %s created order %s", ErrAlreadyProcessed, e.SessionID, e.Code)
}

func (e *AlreadyProcessedError) Is(target error) bool { return target == ErrAlreadyProcessed }

func incomplete(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrIncompleteOrderData, fmt.Sprintf(format, args...))
}
