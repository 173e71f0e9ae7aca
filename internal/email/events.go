package email

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	svix "github.com/svix/svix-webhooks/go"
)

// DeliveryType is a provider-neutral delivery outcome. The values match the
// email_event_type enum.
type DeliveryType string

const (
	DeliveryDelivered DeliveryType = "delivered"
	DeliveryOpened    DeliveryType = "opened"
	DeliveryClicked   DeliveryType = "clicked"
	DeliveryBounced   DeliveryType = "bounced"
	DeliveryComplaint DeliveryType = "complaint"
)

// Suppresses reports whether this outcome permanently ends marketing sends to
// the recipient.
func (t DeliveryType) Suppresses() bool {
	return t == DeliveryBounced || t == DeliveryComplaint
}

// DeliveryEvent is one asynchronous delivery callback.
type DeliveryEvent struct {
	Type       DeliveryType
	To         []string
	MessageID  string
	OccurredAt time.Time
	Detail     string // bounce reason or clicked link, when the provider sends one
}

// ErrInvalidSignature is returned by WebhookVerifier.Verify for a payload that
// was not signed with the configured secret.
var ErrInvalidSignature = errors.New("email: invalid webhook signature")

// WebhookVerifier checks the Svix signature headers Resend attaches to every
// webhook delivery.
type WebhookVerifier struct {
	wh *svix.Webhook
}

// NewWebhookVerifier builds a verifier from the "whsec_..." signing secret.
func NewWebhookVerifier(secret string) (*WebhookVerifier, error) {
	wh, err := svix.NewWebhook(secret)
	if err != nil {
		return nil, fmt.Errorf("email: webhook secret: %w", err)
	}
	return &WebhookVerifier{wh: wh}, nil
}

// Verify checks payload against the svix-id, svix-timestamp and
// svix-signature headers. payload must be the raw request body.
func (v *WebhookVerifier) Verify(payload []byte, headers http.Header) error {
	if err := v.wh.Verify(payload, headers); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return nil
}

var resendTypes = map[string]DeliveryType{
	"email.delivered":  DeliveryDelivered,
	"email.opened":     DeliveryOpened,
	"email.clicked":    DeliveryClicked,
	"email.bounced":    DeliveryBounced,
	"email.complained": DeliveryComplaint,
}

type resendWebhook struct {
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
	Data      struct {
		EmailID string   `json:"email_id"`
		To      []string `json:"to"`
		Bounce  *struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		} `json:"bounce"`
		Click *struct {
			Link string `json:"link"`
		} `json:"click"`
	} `json:"data"`
}

// ParseResendEvent decodes a verified Resend webhook body. ok is false for
// event types that carry no delivery outcome we record (email.sent,
// email.delivery_delayed, contact events); callers ack and drop those.
func ParseResendEvent(payload []byte) (event DeliveryEvent, ok bool, err error) {
	var w resendWebhook
	if err := json.Unmarshal(payload, &w); err != nil {
		return DeliveryEvent{}, false, fmt.Errorf("email: unmarshal resend webhook: %w", err)
	}

	t, known := resendTypes[w.Type]
	if !known {
		return DeliveryEvent{}, false, nil
	}

	to := make([]string, 0, len(w.Data.To))
	for _, addr := range w.Data.To {
		if addr = strings.ToLower(strings.TrimSpace(addr)); addr != "" {
			to = append(to, addr)
		}
	}
	if len(to) == 0 {
		return DeliveryEvent{}, false, fmt.Errorf("email: resend %s webhook has no recipient", w.Type)
	}

	event = DeliveryEvent{
		Type:       t,
		To:         to,
		MessageID:  w.Data.EmailID,
		OccurredAt: w.CreatedAt,
	}
	switch {
	case w.Data.Bounce != nil:
		event.Detail = strings.TrimSpace(w.Data.Bounce.Type + " " + w.Data.Bounce.Message)
	case w.Data.Click != nil:
		event.Detail = w.Data.Click.Link
	}
	return event, true, nil
}
