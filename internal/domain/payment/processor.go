package payment

import "context"

// Processor is the external payment processor. Sessions are bound to the amount
// they were opened with.
type Processor interface {
	Open(ctx context.Context, amount int64, currency string) (Session, error)
	Retrieve(ctx context.Context, sessionID string) (Settlement, error)
}
