package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/nyashahama/retreat-registration-backend/internal/email"
	"github.com/nyashahama/retreat-registration-backend/internal/registration"
)

// Both providers sign the exact bytes they send; bodies are read raw and never
// decoded before verification.
const maxWebhookBody = 65536 // 64 KB, generous for any Stripe or Resend event

// ─── POST /api/webhooks/stripe ────────────────────────────────────────────────

// handleStripeWebhook is the entry point for all Stripe webhook deliveries.
//
// Stripe delivers events at-least-once and may retry on non-2xx responses.
// The processor is idempotent, so the only job here is mapping its outcome to
// a status code:
//   - bad signature or malformed payload → 400 (retrying will not help)
//   - persistence failure                 → 500 (Stripe retries)
//   - anything else, duplicates included  → 200
func (s *Server) handleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBody)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		respondErr(w, http.StatusBadRequest, "could not read request body")
		return
	}

	out, err := s.processor.Process(r.Context(), payload, r.Header.Get("Stripe-Signature"))
	switch {
	case errors.Is(err, registration.ErrUnverified):
		respondErr(w, http.StatusBadRequest, "invalid webhook signature")
		return
	case errors.Is(err, registration.ErrMalformed):
		respondErr(w, http.StatusBadRequest, "malformed event payload")
		return
	case err != nil:
		s.logger.Error("webhook: processing failed",
			"event_id", out.EventID,
			"state", out.State,
			"error", err,
			logField(r),
		)
		respondErr(w, http.StatusInternalServerError, "webhook handler failed")
		return
	}

	s.logger.Debug("webhook: acked",
		"event_id", out.EventID,
		"type", out.EventType,
		"registration_id", out.RegistrationID,
		"inserted", out.Inserted,
		logField(r),
	)
	w.WriteHeader(http.StatusOK)
}

// ─── POST /api/webhooks/email ─────────────────────────────────────────────────

// handleEmailWebhook records Resend delivery callbacks. Bounces and complaints
// revoke the address's marketing consent inside the dispatcher. Event types
// we do not track are acked and dropped.
func (s *Server) handleEmailWebhook(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBody)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		respondErr(w, http.StatusBadRequest, "could not read request body")
		return
	}

	// No secret configured means nothing can be trusted.
	if s.verifier == nil {
		s.logger.Warn("email webhook: no signing secret configured, rejecting", logField(r))
		respondErr(w, http.StatusBadRequest, "invalid webhook signature")
		return
	}
	if err := s.verifier.Verify(payload, r.Header); err != nil {
		s.logger.Warn("email webhook: invalid signature", "error", err, logField(r))
		respondErr(w, http.StatusBadRequest, "invalid webhook signature")
		return
	}

	ev, ok, err := email.ParseResendEvent(payload)
	if err != nil {
		s.logger.Error("email webhook: malformed payload", "error", err, logField(r))
		respondErr(w, http.StatusBadRequest, "malformed event payload")
		return
	}
	if !ok {
		w.WriteHeader(http.StatusOK)
		return
	}

	if err := s.deliveries.HandleDeliveryEvent(r.Context(), ev); err != nil {
		s.logger.Error("email webhook: record failed",
			"type", ev.Type,
			"message_id", ev.MessageID,
			"error", err,
			logField(r),
		)
		respondErr(w, http.StatusInternalServerError, "webhook handler failed")
		return
	}
	w.WriteHeader(http.StatusOK)
}
