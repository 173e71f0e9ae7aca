// Package stripe defines the interface for Stripe API calls and webhook
// verification, and provides helpers used by the registration and api
// packages.
package stripe

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/nyashahama/retreat-registration-backend/internal/db"
)

// Checkout events that create or update a registration. Card payments settle
// inside checkout.session.completed; delayed methods (bank debits, vouchers)
// complete unpaid and settle with one of the async events later.
const (
	EventCheckoutSessionCompleted      = "checkout.session.completed"
	EventCheckoutAsyncPaymentSucceeded = "checkout.session.async_payment_succeeded"
	EventCheckoutAsyncPaymentFailed    = "checkout.session.async_payment_failed"
)

// Checkout payment statuses. PaymentStatusFailed is ours: Stripe leaves a
// failed async session as unpaid.
const (
	PaymentStatusPaid              = "paid"
	PaymentStatusUnpaid            = "unpaid"
	PaymentStatusNoPaymentRequired = "no_payment_required"
	PaymentStatusFailed            = "failed"
)

// IsCheckoutEvent reports whether eventType carries a checkout session the
// registration processor handles.
func IsCheckoutEvent(eventType string) bool {
	switch eventType {
	case EventCheckoutSessionCompleted, EventCheckoutAsyncPaymentSucceeded, EventCheckoutAsyncPaymentFailed:
		return true
	}
	return false
}

// PaymentSettled reports whether a registration with this payment status has
// been paid for and is owed a confirmation.
func PaymentSettled(status string) bool {
	return status == PaymentStatusPaid || status == PaymentStatusNoPaymentRequired
}

// ─── TYPES ────────────────────────────────────────────────────────────────────

// LineItem is one priced row on a hosted Checkout page.
type LineItem struct {
	Name        string
	Description string
	AmountCents int64
}

// CreateCheckoutSessionParams holds the inputs for creating a Checkout Session.
type CreateCheckoutSessionParams struct {
	Currency   string
	Email      string
	LineItems  []LineItem
	Metadata   map[string]string
	SuccessURL string
	CancelURL  string
}

// CheckoutSession is the subset of a Stripe Checkout Session callers need.
type CheckoutSession struct {
	ID  string
	URL string
}

// Event is a parsed Stripe webhook event. DataRaw contains the raw JSON of the
// event's data.object so handlers can unmarshal only what they need.
type Event struct {
	ID      string
	Type    string
	Created time.Time
	DataRaw json.RawMessage
}

// ─── CLIENT INTERFACE ─────────────────────────────────────────────────────────

// Client is the interface the api and registration packages use for all
// Stripe calls. The concrete implementation wraps the official stripe-go SDK.
// Tests inject a stub.
type Client interface {
	// CreateCheckoutSession creates a hosted payment page for one
	// registration intent and returns its redirect URL.
	CreateCheckoutSession(ctx context.Context, p CreateCheckoutSessionParams) (CheckoutSession, error)

	// VerifyWebhook validates the Stripe-Signature header and returns the
	// parsed event. Returns an error if the signature is invalid or expired.
	VerifyWebhook(payload []byte, sigHeader string, secret string) (Event, error)
}

// ─── LEDGER HELPERS ───────────────────────────────────────────────────────────

// ToUpsertParams converts a parsed Event and its raw payload into the params
// needed by db.Querier.UpsertStripeEvent.
func ToUpsertParams(event Event, rawPayload []byte) db.UpsertStripeEventParams {
	return db.UpsertStripeEventParams{
		StripeEventID: event.ID,
		Type:          event.Type,
		Payload:       json.RawMessage(rawPayload),
	}
}

// ToMarkFailedParams builds the params for db.Querier.MarkStripeEventFailed.
func ToMarkFailedParams(eventID string, err error) db.MarkStripeEventFailedParams {
	return db.MarkStripeEventFailedParams{
		StripeEventID: eventID,
		Error:         sql.NullString{String: err.Error(), Valid: true},
	}
}
