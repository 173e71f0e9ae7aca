package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nyashahama/retreat-registration-backend/internal/db"
	"github.com/nyashahama/retreat-registration-backend/internal/email"
	"github.com/nyashahama/retreat-registration-backend/internal/pricing"
	"github.com/nyashahama/retreat-registration-backend/internal/registration"
	"github.com/nyashahama/retreat-registration-backend/internal/sequence"
	"github.com/nyashahama/retreat-registration-backend/internal/store"
	stripeinternal "github.com/nyashahama/retreat-registration-backend/internal/stripe"
)

// ─── STUBS ────────────────────────────────────────────────────────────────────

// stubQuerier satisfies db.Querier with in-memory state.
type stubQuerier struct {
	db.Querier    // embedded to panic on unimplemented methods
	registrations map[string]db.Registration
	getErr        error
}

func (q *stubQuerier) GetRegistrationBySessionID(_ context.Context, id string) (db.Registration, error) {
	if q.getErr != nil {
		return db.Registration{}, q.getErr
	}
	r, ok := q.registrations[id]
	if !ok {
		return db.Registration{}, sql.ErrNoRows
	}
	return r, nil
}

// stubLeads mimics store.SubscribeLead, including the one-way suppression.
type stubLeads struct {
	suppressed map[string]bool
	calls      []string
	err        error
}

func (l *stubLeads) SubscribeLead(_ context.Context, addr, firstName, source string) (db.Lead, error) {
	l.calls = append(l.calls, addr+"|"+firstName+"|"+source)
	if l.err != nil {
		return db.Lead{}, l.err
	}
	addr = store.NormalizeEmail(addr)
	if !strings.Contains(addr, "@") {
		return db.Lead{}, fmt.Errorf("%w: %q", store.ErrInvalidEmail, addr)
	}
	return db.Lead{ID: uuid.New(), Email: addr, FirstName: firstName, ConsentMarketing: !l.suppressed[addr]}, nil
}

// stubStripe is a controllable Stripe client.
type stubStripe struct {
	stripeinternal.Client
	params    []stripeinternal.CreateCheckoutSessionParams
	createErr error
}

func (s *stubStripe) CreateCheckoutSession(_ context.Context, p stripeinternal.CreateCheckoutSessionParams) (stripeinternal.CheckoutSession, error) {
	s.params = append(s.params, p)
	if s.createErr != nil {
		return stripeinternal.CheckoutSession{}, s.createErr
	}
	return stripeinternal.CheckoutSession{ID: "cs_test_123", URL: "https://checkout.stripe.test/c/cs_test_123"}, nil
}

// stubProcessor records what the webhook handler passed through.
type stubProcessor struct {
	payloads   [][]byte
	signatures []string
	out        registration.Outcome
	err        error
}

func (p *stubProcessor) Process(_ context.Context, payload []byte, sig string) (registration.Outcome, error) {
	p.payloads = append(p.payloads, payload)
	p.signatures = append(p.signatures, sig)
	return p.out, p.err
}

type stubDeliveries struct {
	events []email.DeliveryEvent
	err    error
}

func (d *stubDeliveries) HandleDeliveryEvent(_ context.Context, ev email.DeliveryEvent) error {
	d.events = append(d.events, ev)
	return d.err
}

type stubVerifier struct{ err error }

func (v stubVerifier) Verify([]byte, http.Header) error { return v.err }

type stubSequencer struct {
	stats    sequence.RunStats
	err      error
	runs     int
	deadline time.Time
}

func (s *stubSequencer) Run(ctx context.Context, _ time.Time) (sequence.RunStats, error) {
	s.runs++
	s.deadline, _ = ctx.Deadline()
	return s.stats, s.err
}

// ─── HELPERS ─────────────────────────────────────────────────────────────────

type testDeps struct {
	q          *stubQuerier
	leads      *stubLeads
	stripe     *stubStripe
	processor  *stubProcessor
	deliveries *stubDeliveries
	sequencer  *stubSequencer
	server     *Server
	handler    http.Handler
}

// standardDay falls inside the default Standard tier, before the deadline.
var standardDay = time.Date(2027, 2, 10, 15, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, overrides ...func(*Deps, *Config)) *testDeps {
	t.Helper()

	pcfg, err := pricing.DefaultConfig()
	if err != nil {
		t.Fatalf("default pricing: %v", err)
	}
	resolver, err := pricing.NewResolver(pcfg)
	if err != nil {
		t.Fatalf("resolver: %v", err)
	}

	d := &testDeps{
		q:          &stubQuerier{registrations: make(map[string]db.Registration)},
		leads:      &stubLeads{suppressed: make(map[string]bool)},
		stripe:     &stubStripe{},
		processor:  &stubProcessor{},
		deliveries: &stubDeliveries{},
		sequencer:  &stubSequencer{},
	}
	deps := Deps{
		Queries:       d.q,
		Leads:         d.leads,
		Stripe:        d.stripe,
		Resolver:      resolver,
		Processor:     d.processor,
		Deliveries:    d.deliveries,
		EmailVerifier: stubVerifier{},
		Sequencer:     d.sequencer,
	}
	cfg := Config{
		Env:                "development",
		CheckoutSuccessURL: "https://retreat.example/register/success",
		CheckoutCancelURL:  "https://retreat.example/register",
		RetreatName:        "Coastal Photo Retreat",
		RetreatSlug:        "coastal-2027",
		CronSecret:         "cron_test",
	}
	for _, fn := range overrides {
		fn(&deps, &cfg)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	d.server = newServer(deps, cfg, logger)
	d.server.now = func() time.Time { return standardDay }
	d.handler = d.server.routes()
	return d
}

func doRequest(t *testing.T, handler http.Handler, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var bodyReader io.Reader
	switch b := body.(type) {
	case nil:
	case []byte:
		bodyReader = bytes.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		bodyReader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, bodyReader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(dst); err != nil {
		t.Fatalf("decode response body: %v (raw: %s)", err, rr.Body.String())
	}
}

func errorMessage(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	decodeJSON(t, rr, &body)
	return body["error"]
}

// ─── GET /healthz ─────────────────────────────────────────────────────────────

func TestHealthz(t *testing.T) {
	deps := newTestServer(t)
	rr := doRequest(t, deps.handler, http.MethodGet, "/healthz", nil, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

// ─── GET /api/quote ───────────────────────────────────────────────────────────

func TestGetQuote_DepositWithCamera(t *testing.T) {
	deps := newTestServer(t)
	rr := doRequest(t, deps.handler, http.MethodGet, "/api/quote?bring_own_camera=true&payment_option=deposit", nil, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var q quoteResponse
	decodeJSON(t, rr, &q)

	if q.Tier != "Standard" {
		t.Errorf("tier: got %q", q.Tier)
	}
	if q.PaymentOption != "deposit" || q.DeadlineCoerced {
		t.Errorf("option: got %q coerced=%v", q.PaymentOption, q.DeadlineCoerced)
	}
	if q.DueToday.Cents != 80300 {
		t.Errorf("due today: got %d, want 80300", q.DueToday.Cents)
	}
	if q.Tax.Cents != 5300 {
		t.Errorf("tax: got %d, want 5300", q.Tax.Cents)
	}
	if q.RemainingBalance.Cents != 490000 {
		t.Errorf("remaining: got %d, want 490000", q.RemainingBalance.Cents)
	}
	if q.BalanceDueDate != "2027-06-01" {
		t.Errorf("balance due: got %q", q.BalanceDueDate)
	}
	if q.DueToday.Display != "$803.00" {
		t.Errorf("display: got %q", q.DueToday.Display)
	}
}

func TestGetQuote_DeadlineCoercesDeposit(t *testing.T) {
	deps := newTestServer(t)
	deps.server.now = func() time.Time { return time.Date(2027, 6, 1, 12, 0, 0, 0, time.UTC) }

	rr := doRequest(t, deps.handler, http.MethodGet, "/api/quote?payment_option=deposit", nil, nil)
	var q quoteResponse
	decodeJSON(t, rr, &q)

	if q.PaymentOption != "full" || !q.DeadlineCoerced || q.RequestedPaymentOption != "deposit" {
		t.Errorf("expected coerced full payment, got %+v", q)
	}
	if q.RemainingBalance.Cents != 0 || q.BalanceDueDate != "" {
		t.Errorf("full payment should carry no balance, got %+v", q.RemainingBalance)
	}
}

func TestGetQuote_RejectsBadParams(t *testing.T) {
	deps := newTestServer(t)
	for _, path := range []string{
		"/api/quote?bring_own_camera=maybe",
		"/api/quote?payment_option=installments",
	} {
		rr := doRequest(t, deps.handler, http.MethodGet, path, nil, nil)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", path, rr.Code)
		}
	}
}

// ─── POST /api/checkout ───────────────────────────────────────────────────────

func validIntent() map[string]any {
	return map[string]any{
		"first_name":       "Ada",
		"last_name":        "Lovelace",
		"email":            " Ada@Example.com ",
		"phone":            "+44 20 0000 0000",
		"address_line1":    "1 Analytical Way",
		"city":             "London",
		"country":          "GB",
		"bring_own_camera": true,
		"camera_model":     "Leica M6",
		"payment_option":   "deposit",
	}
}

func TestCreateCheckout_CreatesSessionFromQuote(t *testing.T) {
	deps := newTestServer(t)
	rr := doRequest(t, deps.handler, http.MethodPost, "/api/checkout", validIntent(), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp createCheckoutResponse
	decodeJSON(t, rr, &resp)
	if resp.SessionID != "cs_test_123" || resp.CheckoutURL == "" {
		t.Errorf("unexpected response: %+v", resp)
	}
	if resp.Quote.DueToday.Cents != 80300 {
		t.Errorf("quote due today: got %d", resp.Quote.DueToday.Cents)
	}

	if len(deps.stripe.params) != 1 {
		t.Fatalf("expected one Stripe call, got %d", len(deps.stripe.params))
	}
	p := deps.stripe.params[0]

	var total int64
	for _, li := range p.LineItems {
		total += li.AmountCents
	}
	if total != 80300 {
		t.Errorf("line items sum to %d, want 80300", total)
	}
	if p.Currency != "usd" {
		t.Errorf("currency: got %q", p.Currency)
	}
	if p.Email != "ada@example.com" {
		t.Errorf("email should be normalised, got %q", p.Email)
	}
	if p.SuccessURL != "https://retreat.example/register/success" {
		t.Errorf("success url: got %q", p.SuccessURL)
	}

	want := map[string]string{
		stripeinternal.MetaFirstName:      "Ada",
		stripeinternal.MetaEmail:          "ada@example.com",
		stripeinternal.MetaBringOwnCamera: "true",
		stripeinternal.MetaCameraModel:    "Leica M6",
		stripeinternal.MetaPlanLabel:      "Standard",
		stripeinternal.MetaPaymentOption:  "deposit",
		stripeinternal.MetaRetreatSlug:    "coastal-2027",
		stripeinternal.MetaQuotedAt:       "2027-02-10T15:00:00Z",
	}
	for k, v := range want {
		if p.Metadata[k] != v {
			t.Errorf("metadata[%s]: got %q, want %q", k, p.Metadata[k], v)
		}
	}
	if _, ok := p.Metadata[stripeinternal.MetaDietaryNotes]; ok {
		t.Error("empty fields should not be sent as metadata")
	}
}

func TestCreateCheckout_RecordsEffectiveOptionAfterDeadline(t *testing.T) {
	deps := newTestServer(t)
	deps.server.now = func() time.Time { return time.Date(2027, 7, 1, 12, 0, 0, 0, time.UTC) }

	rr := doRequest(t, deps.handler, http.MethodPost, "/api/checkout", validIntent(), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	p := deps.stripe.params[0]
	if got := p.Metadata[stripeinternal.MetaPaymentOption]; got != "full" {
		t.Errorf("payment_option metadata: got %q, want full", got)
	}
	if len(p.LineItems) != 2 || strings.Contains(p.LineItems[0].Name, "deposit") {
		t.Errorf("expected full-price item plus tax, got %+v", p.LineItems)
	}
}

func TestCreateCheckout_TruncatesLongMetadata(t *testing.T) {
	deps := newTestServer(t)
	intent := validIntent()
	intent["medical_notes"] = strings.Repeat("é", 400) // 800 bytes

	rr := doRequest(t, deps.handler, http.MethodPost, "/api/checkout", intent, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	got := deps.stripe.params[0].Metadata[stripeinternal.MetaMedicalNotes]
	if len(got) > maxMetadataValue {
		t.Errorf("metadata value is %d bytes, limit %d", len(got), maxMetadataValue)
	}
	if got != strings.Repeat("é", 250) {
		t.Errorf("truncation split a rune or cut too much: %d bytes", len(got))
	}
}

func TestCreateCheckout_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(map[string]any)
		want   string
	}{
		{"missing names", func(m map[string]any) { delete(m, "first_name"); m["last_name"] = " " }, "missing required fields: first_name, last_name"},
		{"missing email", func(m map[string]any) { delete(m, "email") }, "missing required fields: email"},
		{"bad email", func(m map[string]any) { m["email"] = "not-an-address" }, "invalid email address"},
		{"bad option", func(m map[string]any) { m["payment_option"] = "layaway" }, "payment_option must be deposit or full"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			deps := newTestServer(t)
			intent := validIntent()
			tc.mutate(intent)

			rr := doRequest(t, deps.handler, http.MethodPost, "/api/checkout", intent, nil)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rr.Code)
			}
			if got := errorMessage(t, rr); got != tc.want {
				t.Errorf("error: got %q, want %q", got, tc.want)
			}
			if len(deps.stripe.params) != 0 {
				t.Error("Stripe must not be called for an invalid intent")
			}
		})
	}
}

func TestCreateCheckout_StripeFailureDoesNotLeak(t *testing.T) {
	deps := newTestServer(t)
	deps.stripe.createErr = errors.New("stripe: api key sk_live_secret rejected")

	rr := doRequest(t, deps.handler, http.MethodPost, "/api/checkout", validIntent(), nil)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	if strings.Contains(rr.Body.String(), "sk_live") {
		t.Error("internal error details leaked to client")
	}
}

// ─── POST /api/leads ──────────────────────────────────────────────────────────

func TestSubscribeLead(t *testing.T) {
	deps := newTestServer(t)
	rr := doRequest(t, deps.handler, http.MethodPost, "/api/leads",
		map[string]string{"email": "sam@example.com", "first_name": "Sam"}, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp subscribeLeadResponse
	decodeJSON(t, rr, &resp)
	if !resp.Subscribed {
		t.Error("new lead should be subscribed")
	}
	if deps.leads.calls[0] != "sam@example.com|Sam|website" {
		t.Errorf("unexpected call: %q", deps.leads.calls[0])
	}
}

func TestSubscribeLead_SuppressedStaysSuppressed(t *testing.T) {
	deps := newTestServer(t)
	deps.leads.suppressed["sam@example.com"] = true

	rr := doRequest(t, deps.handler, http.MethodPost, "/api/leads",
		map[string]string{"email": "sam@example.com", "source": "footer"}, nil)
	var resp subscribeLeadResponse
	decodeJSON(t, rr, &resp)
	if resp.Subscribed {
		t.Error("a bounced address must not be re-subscribed")
	}
}

func TestSubscribeLead_InvalidEmail(t *testing.T) {
	deps := newTestServer(t)
	rr := doRequest(t, deps.handler, http.MethodPost, "/api/leads", map[string]string{"email": "nope"}, nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

// ─── GET /api/registrations/:sessionID ───────────────────────────────────────

func TestGetRegistration(t *testing.T) {
	deps := newTestServer(t)
	deps.q.registrations["cs_test_123"] = db.Registration{
		ID:              uuid.New(),
		StripeSessionID: "cs_test_123",
		FirstName:       "Ada",
		MedicalNotes:    "private",
		PlanLabel:       "Standard",
		PaymentOption:   "deposit",
		AmountPaidCents: 80300,
		Currency:        "usd",
		PaymentStatus:   "paid",
		CreatedAt:       standardDay,
	}

	rr := doRequest(t, deps.handler, http.MethodGet, "/api/registrations/cs_test_123", nil, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if strings.Contains(rr.Body.String(), "private") {
		t.Error("medical notes must not be exposed")
	}
	var resp registrationResponse
	decodeJSON(t, rr, &resp)
	if resp.Status != "confirmed" || resp.AmountPaid.Display != "$803.00" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestGetRegistration_DelayedPayment(t *testing.T) {
	deps := newTestServer(t)
	deps.q.registrations["cs_test_ach"] = db.Registration{
		ID:              uuid.New(),
		StripeSessionID: "cs_test_ach",
		AmountPaidCents: 80300,
		Currency:        "usd",
		PaymentStatus:   "unpaid",
		CreatedAt:       standardDay,
	}
	deps.q.registrations["cs_test_failed"] = db.Registration{
		ID:              uuid.New(),
		StripeSessionID: "cs_test_failed",
		AmountPaidCents: 80300,
		Currency:        "usd",
		PaymentStatus:   "failed",
		CreatedAt:       standardDay,
	}

	rr := doRequest(t, deps.handler, http.MethodGet, "/api/registrations/cs_test_ach", nil, nil)
	if rr.Code != http.StatusAccepted {
		t.Errorf("unsettled payment: expected 202, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "awaiting_payment") {
		t.Errorf("unsettled payment: unexpected body %s", rr.Body.String())
	}

	rr = doRequest(t, deps.handler, http.MethodGet, "/api/registrations/cs_test_failed", nil, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("failed payment: expected 200, got %d", rr.Code)
	}
	var resp registrationResponse
	decodeJSON(t, rr, &resp)
	if resp.Status != "payment_failed" {
		t.Errorf("failed payment: status %q", resp.Status)
	}
}

func TestGetRegistration_PendingAndInvalid(t *testing.T) {
	deps := newTestServer(t)

	rr := doRequest(t, deps.handler, http.MethodGet, "/api/registrations/cs_test_unknown", nil, nil)
	if rr.Code != http.StatusAccepted {
		t.Errorf("unknown session: expected 202, got %d", rr.Code)
	}

	rr = doRequest(t, deps.handler, http.MethodGet, "/api/registrations/pi_123", nil, nil)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("non-checkout id: expected 400, got %d", rr.Code)
	}
}

// ─── POST /api/webhooks/stripe ────────────────────────────────────────────────

func TestStripeWebhook_PassesRawBodyAndSignature(t *testing.T) {
	deps := newTestServer(t)
	raw := []byte(`{"id":"evt_1",  "type":"checkout.session.completed"}`)

	rr := doRequest(t, deps.handler, http.MethodPost, "/api/webhooks/stripe", raw,
		map[string]string{"Stripe-Signature": "t=1,v1=abc"})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !bytes.Equal(deps.processor.payloads[0], raw) {
		t.Error("payload must reach the processor byte-for-byte")
	}
	if deps.processor.signatures[0] != "t=1,v1=abc" {
		t.Errorf("signature: got %q", deps.processor.signatures[0])
	}
}

func TestStripeWebhook_StatusMapping(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"unverified", fmt.Errorf("%w: bad sig", registration.ErrUnverified), http.StatusBadRequest, "invalid webhook signature"},
		{"malformed", fmt.Errorf("%w: no id", registration.ErrMalformed), http.StatusBadRequest, "malformed event payload"},
		{"persistence", errors.New("registration: record checkout: connection refused"), http.StatusInternalServerError, "webhook handler failed"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			deps := newTestServer(t)
			deps.processor.err = tc.err

			rr := doRequest(t, deps.handler, http.MethodPost, "/api/webhooks/stripe", []byte(`{}`), nil)
			if rr.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rr.Code)
			}
			if got := errorMessage(t, rr); got != tc.message {
				t.Errorf("error: got %q, want %q", got, tc.message)
			}
		})
	}
}

func TestStripeWebhook_DuplicateIsAcked(t *testing.T) {
	deps := newTestServer(t)
	deps.processor.out = registration.Outcome{State: registration.StateAcked, EventID: "evt_1", Inserted: false}

	rr := doRequest(t, deps.handler, http.MethodPost, "/api/webhooks/stripe", []byte(`{}`), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

// ─── POST /api/webhooks/email ─────────────────────────────────────────────────

const bounceBody = `{"type":"email.bounced","created_at":"2027-02-11T10:00:00Z","data":{"email_id":"msg_1","to":["Sam@Example.com"],"bounce":{"type":"Permanent","message":"mailbox does not exist"}}}`

func TestEmailWebhook_RecordsBounce(t *testing.T) {
	deps := newTestServer(t)

	rr := doRequest(t, deps.handler, http.MethodPost, "/api/webhooks/email", []byte(bounceBody), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if len(deps.deliveries.events) != 1 {
		t.Fatalf("expected one delivery event, got %d", len(deps.deliveries.events))
	}
	ev := deps.deliveries.events[0]
	if ev.Type != email.DeliveryBounced || ev.To[0] != "sam@example.com" || ev.MessageID != "msg_1" {
		t.Errorf("unexpected event: %+v", ev)
	}
}

func TestEmailWebhook_RejectsUnverified(t *testing.T) {
	for name, override := range map[string]func(*Deps, *Config){
		"bad signature": func(d *Deps, _ *Config) { d.EmailVerifier = stubVerifier{err: email.ErrInvalidSignature} },
		"no secret":     func(d *Deps, _ *Config) { d.EmailVerifier = nil },
	} {
		t.Run(name, func(t *testing.T) {
			deps := newTestServer(t, override)
			rr := doRequest(t, deps.handler, http.MethodPost, "/api/webhooks/email", []byte(bounceBody), nil)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rr.Code)
			}
			if len(deps.deliveries.events) != 0 {
				t.Error("unverified callbacks must not be recorded")
			}
		})
	}
}

func TestEmailWebhook_IgnoresUntrackedTypes(t *testing.T) {
	deps := newTestServer(t)
	body := []byte(`{"type":"email.sent","data":{"email_id":"msg_1","to":["sam@example.com"]}}`)

	rr := doRequest(t, deps.handler, http.MethodPost, "/api/webhooks/email", body, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if len(deps.deliveries.events) != 0 {
		t.Error("email.sent should be dropped")
	}
}

func TestEmailWebhook_Failures(t *testing.T) {
	deps := newTestServer(t)
	rr := doRequest(t, deps.handler, http.MethodPost, "/api/webhooks/email", []byte(`{not json`), nil)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("malformed: expected 400, got %d", rr.Code)
	}

	deps.deliveries.err = errors.New("db down")
	rr = doRequest(t, deps.handler, http.MethodPost, "/api/webhooks/email", []byte(bounceBody), nil)
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("record failure: expected 500, got %d", rr.Code)
	}
}

// ─── POST /api/internal/sequence/run ─────────────────────────────────────────

func TestRunSequence_RequiresSecret(t *testing.T) {
	deps := newTestServer(t)
	for _, auth := range []string{"", "Bearer wrong", "cron_test"} {
		rr := doRequest(t, deps.handler, http.MethodPost, "/api/internal/sequence/run", nil,
			map[string]string{"Authorization": auth})
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("auth %q: expected 401, got %d", auth, rr.Code)
		}
	}
	if deps.sequencer.runs != 0 {
		t.Error("sequencer must not run without the secret")
	}
}

func TestRunSequence_DisabledWithoutSecret(t *testing.T) {
	deps := newTestServer(t, func(_ *Deps, c *Config) { c.CronSecret = "" })
	rr := doRequest(t, deps.handler, http.MethodPost, "/api/internal/sequence/run", nil,
		map[string]string{"Authorization": "Bearer "})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestRunSequence_ReturnsStats(t *testing.T) {
	deps := newTestServer(t)
	deps.sequencer.stats = sequence.RunStats{Leads: 3, Sent: 2, Suppressed: 1}

	rr := doRequest(t, deps.handler, http.MethodPost, "/api/internal/sequence/run", nil,
		map[string]string{"Authorization": "Bearer cron_test"})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp runSequenceResponse
	decodeJSON(t, rr, &resp)
	if resp.Sent != 2 || resp.Suppressed != 1 || resp.Locked {
		t.Errorf("unexpected stats: %+v", resp)
	}
}

func TestRunSequence_OutlivesRequestTimeout(t *testing.T) {
	deps := newTestServer(t, func(_ *Deps, c *Config) {
		c.RequestTimeout = time.Second
		c.SequenceTimeout = 5 * time.Minute
	})

	start := time.Now()
	rr := doRequest(t, deps.handler, http.MethodPost, "/api/internal/sequence/run", nil,
		map[string]string{"Authorization": "Bearer cron_test"})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if deps.sequencer.deadline.IsZero() {
		t.Fatal("expected the pass to run under a deadline")
	}
	if got := deps.sequencer.deadline.Sub(start); got < 4*time.Minute {
		t.Errorf("pass deadline %s is bound by the request timeout", got)
	}
}

func TestRunSequence_ErrorIs500(t *testing.T) {
	deps := newTestServer(t)
	deps.sequencer.err = errors.New("list leads: timeout")

	rr := doRequest(t, deps.handler, http.MethodPost, "/api/internal/sequence/run", nil,
		map[string]string{"Authorization": "Bearer cron_test"})
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
}

// ─── CORS ─────────────────────────────────────────────────────────────────────

func TestCORS_ProductionAllowList(t *testing.T) {
	deps := newTestServer(t, func(_ *Deps, c *Config) {
		c.Env = "production"
		c.AllowedOrigins = []string{"https://retreat.example"}
	})

	rr := doRequest(t, deps.handler, http.MethodOptions, "/api/checkout", nil,
		map[string]string{"Origin": "https://retreat.example"})
	if rr.Code != http.StatusNoContent {
		t.Errorf("preflight: expected 204, got %d", rr.Code)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://retreat.example" {
		t.Errorf("allowed origin: got %q", got)
	}

	rr = doRequest(t, deps.handler, http.MethodGet, "/healthz", nil,
		map[string]string{"Origin": "https://evil.example"})
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("unknown origin should get no CORS header, got %q", got)
	}
}
