// Package email implements the notification core's EmailSender port.
package email

import "context"

// Message is the EmailSender port's send() argument shape.
type Message struct {
	To      []string
	Subject string
	HTML    string
	Text    string
}

// Result is what a send attempt reports back.
type Result struct {
	Success bool
	EmailID string
	Error   string
}

// Sender is the pluggable EmailSender port. Implementations include a direct
// SMTP send or delegation to an external mail API; both are interchangeable
// behind this interface.
type Sender interface {
	Ready() bool
	Send(ctx context.Context, msg Message) (Result, error)
}
