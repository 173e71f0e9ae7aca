// Package email defines the interface for transactional email delivery,
// provides Resend and SES implementations, renders the embedded message
// templates, and parses Resend delivery webhooks.
package email

import (
	"context"
	"errors"
)

// ErrNoRecipient is returned by a Sender when Message.To is empty.
var ErrNoRecipient = errors.New("email: message has no recipient")

// Message is one fully rendered email.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
	ReplyTo string // optional
}

// Sender is the interface the notification dispatcher uses to send email.
// Tests inject a stub that records calls without hitting the network.
type Sender interface {
	// Send delivers m and returns the provider's message id, which delivery
	// webhooks later refer back to.
	Send(ctx context.Context, m Message) (string, error)
}
