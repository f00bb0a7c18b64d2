package notification

import "context"

// Message is a rendered e-mail.
type Message struct {
	To       string
	Subject  string
	HTMLBody string
}

// Sender delivers messages. Callers treat it as fire-and-forget: errors are logged, never propagated.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}
