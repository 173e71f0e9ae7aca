package api

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/go-chi/chi/v5"
	stripeinternal "github.com/nyashahama/retreat-registration-backend/internal/stripe"
)

// ─── GET /api/registrations/:sessionID ───────────────────────────────────────

type registrationResponse struct {
	Status         string         `json:"status"`
	RegistrationID string         `json:"registration_id"`
	FirstName      string         `json:"first_name"`
	PlanLabel      string         `json:"plan_label"`
	PaymentOption  string         `json:"payment_option"`
	AmountPaid     amountResponse `json:"amount_paid"`
	RegisteredAt   string         `json:"registered_at"`
}

// handleGetRegistration backs the checkout success page. The Stripe session
// id in the URL is the only credential, so the response carries no contact
// or medical details.
//
// Returns 202 Accepted while the webhook has not arrived yet, or while a
// delayed payment method has not settled, so the frontend can keep polling.
func (s *Server) handleGetRegistration(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if !strings.HasPrefix(sessionID, "cs_") {
		respondErr(w, http.StatusBadRequest, "invalid session id")
		return
	}

	reg, err := s.q.GetRegistrationBySessionID(r.Context(), sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		respond(w, http.StatusAccepted, map[string]string{
			"status":  "pending",
			"message": "payment is being confirmed, please check back shortly",
		})
		return
	}
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("get registration: %w", err))
		return
	}

	status := "confirmed"
	switch {
	case reg.PaymentStatus == stripeinternal.PaymentStatusFailed:
		status = "payment_failed"
	case !stripeinternal.PaymentSettled(reg.PaymentStatus):
		respond(w, http.StatusAccepted, map[string]string{
			"status":  "awaiting_payment",
			"message": "your payment is still processing, we will email you once it clears",
		})
		return
	}

	respond(w, http.StatusOK, registrationResponse{
		Status:         status,
		RegistrationID: reg.ID.String(),
		FirstName:      reg.FirstName,
		PlanLabel:      reg.PlanLabel,
		PaymentOption:  reg.PaymentOption,
		AmountPaid:     amountOf(money.New(reg.AmountPaidCents, strings.ToUpper(reg.Currency))),
		RegisteredAt:   reg.CreatedAt.UTC().Format(time.RFC3339),
	})
}
