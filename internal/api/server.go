// Package api implements the HTTP layer for retreat registration.
// Handlers are methods on *Server. Each handler file is responsible for one
// resource group and only uses the dependencies it actually needs.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/nyashahama/retreat-registration-backend/internal/db"
	"github.com/nyashahama/retreat-registration-backend/internal/email"
	"github.com/nyashahama/retreat-registration-backend/internal/pricing"
	"github.com/nyashahama/retreat-registration-backend/internal/registration"
	"github.com/nyashahama/retreat-registration-backend/internal/sequence"
	stripeinternal "github.com/nyashahama/retreat-registration-backend/internal/stripe"
)

// Config holds values read from environment variables at startup.
type Config struct {
	// Env is "production", "staging", or "development".
	Env string

	// AllowedOrigins are the frontend origins CORS responses allow.
	AllowedOrigins []string

	// CheckoutSuccessURL and CheckoutCancelURL are where Stripe Checkout
	// sends the browser afterwards.
	CheckoutSuccessURL string
	CheckoutCancelURL  string

	// RetreatName labels checkout line items; RetreatSlug is stored with each
	// registration.
	RetreatName string
	RetreatSlug string

	// CronSecret guards the internal sequencer trigger. Empty disables it.
	CronSecret string

	// RequestTimeout bounds every request except the sequencer trigger.
	// Default: 30s.
	RequestTimeout time.Duration

	// SequenceTimeout bounds one sequencer pass run over HTTP. Default: 10m.
	SequenceTimeout time.Duration
}

// ─── DEPENDENCY INTERFACES ────────────────────────────────────────────────────

// WebhookProcessor handles a verified-or-not Stripe delivery end to end.
// *registration.Processor implements it.
type WebhookProcessor interface {
	Process(ctx context.Context, payload []byte, signature string) (registration.Outcome, error)
}

// LeadSubscriber records marketing opt-ins. *store.Store implements it.
type LeadSubscriber interface {
	SubscribeLead(ctx context.Context, email, firstName, source string) (db.Lead, error)
}

// DeliveryHandler records email provider callbacks. *notify.Dispatcher
// implements it.
type DeliveryHandler interface {
	HandleDeliveryEvent(ctx context.Context, ev email.DeliveryEvent) error
}

// SignatureVerifier checks email webhook signatures. *email.WebhookVerifier
// implements it.
type SignatureVerifier interface {
	Verify(payload []byte, headers http.Header) error
}

// SequenceRunner runs one email sequence pass. *sequence.Sequencer
// implements it.
type SequenceRunner interface {
	Run(ctx context.Context, now time.Time) (sequence.RunStats, error)
}

// Deps are the collaborators a Server routes requests to. EmailVerifier and
// Sequencer may be nil; their endpoints then fail closed.
type Deps struct {
	Queries       db.Querier
	Leads         LeadSubscriber
	Stripe        stripeinternal.Client
	Resolver      *pricing.Resolver
	Processor     WebhookProcessor
	Deliveries    DeliveryHandler
	EmailVerifier SignatureVerifier
	Sequencer     SequenceRunner
}

// Server holds all shared dependencies. Each handler file attaches methods to
// this type and uses only the fields it needs.
type Server struct {
	// q handles single-query reads. Injected directly, no repo wrapper.
	q db.Querier

	leads      LeadSubscriber
	stripe     stripeinternal.Client
	resolver   *pricing.Resolver
	processor  WebhookProcessor
	deliveries DeliveryHandler
	verifier   SignatureVerifier
	sequencer  SequenceRunner

	// now is time.Now outside tests.
	now func() time.Time

	cfg    Config
	logger *slog.Logger
}

// NewServer constructs the Server and wires the chi router. The returned
// http.Handler is ready to pass to http.ListenAndServe.
func NewServer(deps Deps, cfg Config, logger *slog.Logger) http.Handler {
	return newServer(deps, cfg, logger).routes()
}

func newServer(deps Deps, cfg Config, logger *slog.Logger) *Server {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.SequenceTimeout <= 0 {
		cfg.SequenceTimeout = 10 * time.Minute
	}
	return &Server{
		q:          deps.Queries,
		leads:      deps.Leads,
		stripe:     deps.Stripe,
		resolver:   deps.Resolver,
		processor:  deps.Processor,
		deliveries: deps.Deliveries,
		verifier:   deps.EmailVerifier,
		sequencer:  deps.Sequencer,
		now:        time.Now,
		cfg:        cfg,
		logger:     logger,
	}
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	// ── Global middleware ─────────────────────────────────────────────────────
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggerMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(s.corsMiddleware)

	// ── Health ────────────────────────────────────────────────────────────────
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// ── API ───────────────────────────────────────────────────────────────────
	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(s.cfg.RequestTimeout))

			// Public, no auth.
			r.Get("/quote", s.handleGetQuote)
			r.Post("/checkout", s.handleCreateCheckout)
			r.Post("/leads", s.handleSubscribeLead)
			r.Get("/registrations/{sessionID}", s.handleGetRegistration)

			// Webhooks, no auth (signature verification inside handler).
			r.Post("/webhooks/stripe", s.handleStripeWebhook)
			r.Post("/webhooks/email", s.handleEmailWebhook)
		})

		// Scheduler trigger, bearer secret. A full pass outlives RequestTimeout.
		r.With(s.requireCronSecret, middleware.Timeout(s.cfg.SequenceTimeout)).
			Post("/internal/sequence/run", s.handleRunSequence)
	})

	return r
}
