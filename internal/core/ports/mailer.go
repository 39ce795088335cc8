package ports

import "context"

// Message is a plain-text email.
type Message struct {
	Subject string
	Body    string
	From    string
	To      []string
}

// Mailer delivers a message with a single attempt; it never retries.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}
