// Package registration turns verified Stripe checkout events into durable
// registrations. Processing is two-phase: the registration row is persisted
// before anything else happens, and confirmation email is handed to the
// worker afterwards so a provider outage can never lose a paid registration.
package registration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nyashahama/retreat-registration-backend/internal/db"
	"github.com/nyashahama/retreat-registration-backend/internal/pricing"
	stripeinternal "github.com/nyashahama/retreat-registration-backend/internal/stripe"
	"github.com/nyashahama/retreat-registration-backend/internal/worker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ─── ERRORS ──────────────────────────────────────────────────────────────────

// ErrUnverified means the Stripe-Signature check failed. Nothing was written.
var ErrUnverified = errors.New("registration: webhook signature verification failed")

// ErrMalformed means a verified checkout event could not identify its session.
// Nothing was written to registrations.
var ErrMalformed = errors.New("registration: malformed checkout event")

// ─── STATE ───────────────────────────────────────────────────────────────────

// State is a step in the life of one webhook delivery:
//
//	Received → Verified → {Duplicate | NewRegistration} → Persisted → Notified → Acked
//
// Events of other types go Received → Verified → Acked. A session whose
// payment has not settled stops at Persisted and is confirmed when the async
// payment succeeds.
type State string

const (
	StateReceived        State = "received"
	StateVerified        State = "verified"
	StateDuplicate       State = "duplicate"
	StateNewRegistration State = "new_registration"
	StatePersisted       State = "persisted"
	StateNotified        State = "notified"
	StateAcked           State = "acked"
)

// Outcome describes how far a delivery got. State is the last state reached;
// on error it is where processing stopped.
type Outcome struct {
	State State
	Path  []State

	EventID   string
	EventType string
	SessionID string

	RegistrationID  uuid.UUID
	PaymentStatus   string
	Inserted        bool
	Ignored         bool
	AmountMismatch  bool
	AwaitingPayment bool
}

func (o *Outcome) advance(s State) {
	o.State = s
	o.Path = append(o.Path, s)
}

// ─── PROCESSOR ───────────────────────────────────────────────────────────────

// Recorder persists a completed checkout atomically. *store.Store implements
// it.
type Recorder interface {
	RecordCheckoutCompleted(ctx context.Context, stripeEventID string, p db.UpsertRegistrationParams) (db.UpsertRegistrationRow, error)
}

// Config holds the processor's tunables.
type Config struct {
	// WebhookSecret is the signing secret from the Stripe dashboard.
	WebhookSecret string

	// StoreTimeout bounds each database call. Default: 10s.
	StoreTimeout time.Duration

	// DefaultRetreatSlug is stored when the session metadata names no retreat.
	DefaultRetreatSlug string
}

// Processor is the payment webhook state machine.
type Processor struct {
	q        db.Querier
	rec      Recorder
	stripe   stripeinternal.Client
	resolver *pricing.Resolver
	worker   worker.Enqueuer
	cfg      Config
	logger   *slog.Logger
	tracer   trace.Tracer
}

// NewProcessor wires a Processor. q is used only for the stripe_events ledger.
func NewProcessor(
	q db.Querier,
	rec Recorder,
	stripeClient stripeinternal.Client,
	resolver *pricing.Resolver,
	enqueuer worker.Enqueuer,
	cfg Config,
	logger *slog.Logger,
) *Processor {
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = 10 * time.Second
	}
	return &Processor{
		q:        q,
		rec:      rec,
		stripe:   stripeClient,
		resolver: resolver,
		worker:   enqueuer,
		cfg:      cfg,
		logger:   logger,
		tracer:   otel.Tracer("github.com/nyashahama/retreat-registration-backend/internal/registration"),
	}
}

// Process handles one raw webhook delivery. payload must be the unparsed
// request body.
//
// The returned error decides the HTTP status: ErrUnverified and ErrMalformed
// are client errors, anything else means the registration was not durably
// stored and Stripe should retry. A nil error means ack, whatever happened to
// email.
func (p *Processor) Process(ctx context.Context, payload []byte, signature string) (Outcome, error) {
	ctx, span := p.tracer.Start(ctx, "registration.Process")
	defer span.End()

	out := Outcome{}
	out.advance(StateReceived)

	// ── 1. Verify ─────────────────────────────────────────────────────────────
	event, err := p.stripe.VerifyWebhook(payload, signature, p.cfg.WebhookSecret)
	if err != nil {
		span.SetStatus(codes.Error, "unverified")
		return out, fmt.Errorf("%w: %v", ErrUnverified, err)
	}
	out.advance(StateVerified)
	out.EventID, out.EventType = event.ID, event.Type
	span.SetAttributes(
		attribute.String("stripe.event_id", event.ID),
		attribute.String("stripe.event_type", event.Type),
	)
	log := p.logger.With("event_id", event.ID, "type", event.Type)

	// ── 2. Ledger ─────────────────────────────────────────────────────────────
	// Audit only: a replayed event still goes through the upsert below so the
	// registration's updated_at reflects the latest delivery.
	p.ledger(ctx, log, "record", func(ctx context.Context) error {
		ev, err := p.q.UpsertStripeEvent(ctx, stripeinternal.ToUpsertParams(event, payload))
		if err == nil && ev.DeliveryCount > 1 {
			log.Info("registration: stripe event redelivered", "delivery_count", ev.DeliveryCount)
		}
		return err
	})

	// ── 3. Filter ─────────────────────────────────────────────────────────────
	if !stripeinternal.IsCheckoutEvent(event.Type) {
		log.Debug("registration: ignoring event type")
		p.ledger(ctx, log, "mark ignored", func(ctx context.Context) error {
			_, err := p.q.MarkStripeEventIgnored(ctx, event.ID)
			return err
		})
		out.Ignored = true
		out.advance(StateAcked)
		return out, nil
	}

	// ── 4. Extract ────────────────────────────────────────────────────────────
	profile, err := stripeinternal.ExtractCheckoutProfile(event)
	if err != nil {
		log.Error("registration: malformed checkout event", "error", err)
		p.markFailed(ctx, log, event.ID, err)
		span.SetStatus(codes.Error, "malformed")
		return out, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	out.SessionID = profile.SessionID
	log = log.With("session_id", profile.SessionID)

	params, mismatch := p.buildParams(profile, event)
	out.AmountMismatch = mismatch
	if mismatch {
		log.Warn("registration: charged amount does not match price table",
			"charged_cents", params.AmountPaidCents,
			"expected_cents", params.ExpectedAmountCents.Int64,
			"currency", params.Currency,
		)
	}

	// ── 5. Persist ────────────────────────────────────────────────────────────
	storeCtx, cancel := context.WithTimeout(ctx, p.cfg.StoreTimeout)
	row, err := p.rec.RecordCheckoutCompleted(storeCtx, event.ID, params)
	cancel()
	if err != nil {
		p.markFailed(ctx, log, event.ID, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist")
		return out, fmt.Errorf("registration: persist session %s: %w", profile.SessionID, err)
	}

	out.RegistrationID = row.ID
	out.PaymentStatus = row.PaymentStatus
	out.Inserted = row.Inserted
	if row.Inserted {
		out.advance(StateNewRegistration)
	} else {
		out.advance(StateDuplicate)
	}
	out.advance(StatePersisted)
	log.Info("registration: persisted",
		"registration_id", row.ID,
		"inserted", row.Inserted,
		"payment_status", row.PaymentStatus,
	)

	// ── 6. Notify ─────────────────────────────────────────────────────────────
	if !stripeinternal.PaymentSettled(row.PaymentStatus) {
		out.AwaitingPayment = true
		log.Info("registration: payment not settled, confirmation deferred",
			"registration_id", row.ID,
			"payment_status", row.PaymentStatus,
		)
		out.advance(StateAcked)
		return out, nil
	}

	// The confirmation job checks the email log per template, so enqueueing a
	// duplicate never produces a second email.
	if err := p.worker.Enqueue(ctx, row.ID); err != nil {
		log.Warn("registration: enqueue failed, will be picked up by poller",
			"registration_id", row.ID,
			"error", err,
		)
	} else {
		out.advance(StateNotified)
	}

	out.advance(StateAcked)
	return out, nil
}

// buildParams maps a profile to upsert params and re-derives the expected
// charge from the price table.
func (p *Processor) buildParams(profile stripeinternal.CheckoutProfile, event stripeinternal.Event) (db.UpsertRegistrationParams, bool) {
	quotedAt := profile.QuotedAt
	if quotedAt.IsZero() {
		quotedAt = profile.SessionCreated
	}
	if quotedAt.IsZero() {
		quotedAt = event.Created
	}
	option, err := pricing.ParsePaymentOption(profile.PaymentOption)
	if err != nil {
		option = pricing.PaymentFull
	}
	quote := p.resolver.Quote(quotedAt, profile.BringOwnCamera, option)

	currency := profile.Currency
	if currency == "" {
		currency = quote.DueToday.Currency().Code
	}
	mismatch := !quote.Matches(profile.AmountTotalCents, currency)

	paymentOption := profile.PaymentOption
	if paymentOption == "" {
		paymentOption = string(quote.PaymentOption)
	}
	planLabel := profile.PlanLabel
	if planLabel == "" {
		planLabel = quote.Tier.Name
	}
	slug := profile.RetreatSlug
	if slug == "" {
		slug = p.cfg.DefaultRetreatSlug
	}
	paymentStatus := profile.PaymentStatus
	switch {
	case event.Type == stripeinternal.EventCheckoutAsyncPaymentFailed:
		paymentStatus = stripeinternal.PaymentStatusFailed
	case paymentStatus == "":
		paymentStatus = stripeinternal.PaymentStatusPaid
	}

	return db.UpsertRegistrationParams{
		StripeSessionID:       profile.SessionID,
		FirstName:             profile.FirstName,
		LastName:              profile.LastName,
		Email:                 profile.Email,
		Phone:                 profile.Phone,
		AddressLine1:          profile.Address.Line1,
		AddressLine2:          profile.Address.Line2,
		City:                  profile.Address.City,
		State:                 profile.Address.State,
		PostalCode:            profile.Address.PostalCode,
		Country:               profile.Address.Country,
		EmergencyContactName:  profile.EmergencyContactName,
		EmergencyContactPhone: profile.EmergencyContactPhone,
		ExperienceLevel:       profile.ExperienceLevel,
		BringOwnCamera:        profile.BringOwnCamera,
		CameraModel:           profile.CameraModel,
		DietaryNotes:          profile.DietaryNotes,
		MedicalNotes:          profile.MedicalNotes,
		PlanLabel:             planLabel,
		PaymentOption:         paymentOption,
		AmountPaidCents:       profile.AmountTotalCents,
		Currency:              currency,
		ExpectedAmountCents:   sql.NullInt64{Int64: quote.DueToday.Amount(), Valid: true},
		AmountMismatch:        mismatch,
		RetreatSlug:           slug,
		PaymentStatus:         paymentStatus,
	}, mismatch
}

// ledger runs a best-effort stripe_events write. Failures are logged only;
// the ledger never decides whether a delivery succeeds.
func (p *Processor) ledger(ctx context.Context, log *slog.Logger, what string, fn func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.StoreTimeout)
	defer cancel()
	if err := fn(ctx); err != nil && !errors.Is(err, sql.ErrNoRows) {
		log.Warn("registration: stripe event ledger "+what+" failed", "error", err)
	}
}

func (p *Processor) markFailed(ctx context.Context, log *slog.Logger, eventID string, cause error) {
	p.ledger(ctx, log, "mark failed", func(ctx context.Context) error {
		_, err := p.q.MarkStripeEventFailed(ctx, stripeinternal.ToMarkFailedParams(eventID, cause))
		return err
	})
}
