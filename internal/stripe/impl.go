package stripe

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/webhook"
)

// stripeClient is the concrete implementation of Client backed by the
// official stripe-go SDK. Construct it with NewClient.
type stripeClient struct {
	secretKey string
}

// NewClient returns a Client backed by the Stripe SDK.
// secretKey is your STRIPE_SECRET_KEY env var.
func NewClient(secretKey string) Client {
	return &stripeClient{secretKey: secretKey}
}

// CreateCheckoutSession creates a one-off payment Checkout Session. Every
// line item uses inline price_data so no Stripe Products need to exist.
func (c *stripeClient) CreateCheckoutSession(ctx context.Context, p CreateCheckoutSessionParams) (CheckoutSession, error) {
	stripe.Key = c.secretKey

	currency := strings.ToLower(p.Currency)
	items := make([]*stripe.CheckoutSessionLineItemParams, 0, len(p.LineItems))
	for _, li := range p.LineItems {
		if li.AmountCents <= 0 {
			continue
		}
		product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(li.Name),
		}
		if li.Description != "" {
			product.Description = stripe.String(li.Description)
		}
		items = append(items, &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(1),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(currency),
				UnitAmount:  stripe.Int64(li.AmountCents),
				ProductData: product,
			},
		})
	}
	if len(items) == 0 {
		return CheckoutSession{}, fmt.Errorf("stripe: checkout session needs at least one priced line item")
	}

	// Copy so the SDK never shares the caller's map.
	meta := make(map[string]string, len(p.Metadata))
	for k, v := range p.Metadata {
		meta[k] = v
	}

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems:  items,
		SuccessURL: stripe.String(p.SuccessURL),
		CancelURL:  stripe.String(p.CancelURL),
		Metadata:   meta,
		PhoneNumberCollection: &stripe.CheckoutSessionPhoneNumberCollectionParams{
			Enabled: stripe.Bool(true),
		},
		BillingAddressCollection: stripe.String(string(stripe.CheckoutSessionBillingAddressCollectionRequired)),
	}
	if p.Email != "" {
		params.CustomerEmail = stripe.String(p.Email)
	}
	// Propagate context deadline to the Stripe HTTP call.
	params.Context = ctx

	s, err := session.New(params)
	if err != nil {
		return CheckoutSession{}, fmt.Errorf("stripe: create checkout session: %w", err)
	}

	return CheckoutSession{ID: s.ID, URL: s.URL}, nil
}

// VerifyWebhook validates the Stripe-Signature header and returns the parsed
// event. Returns an error if the signature is invalid or the tolerance window
// (300 seconds by default in the Stripe SDK) has expired.
func (c *stripeClient) VerifyWebhook(payload []byte, sigHeader string, secret string) (Event, error) {
	stripeEvent, err := webhook.ConstructEvent(payload, sigHeader, secret)
	if err != nil {
		return Event{}, fmt.Errorf("stripe: webhook verification failed: %w", err)
	}

	return Event{
		ID:      stripeEvent.ID,
		Type:    string(stripeEvent.Type),
		Created: time.Unix(stripeEvent.Created, 0).UTC(),
		DataRaw: stripeEvent.Data.Raw,
	}, nil
}
