package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/nyashahama/retreat-registration-backend/internal/store"
)

// ─── POST /api/leads ──────────────────────────────────────────────────────────

type subscribeLeadRequest struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	Source    string `json:"source"`
}

type subscribeLeadResponse struct {
	LeadID     string `json:"lead_id"`
	Subscribed bool   `json:"subscribed"`
}

// handleSubscribeLead records a marketing opt-in. Subscribing again refreshes
// the name only: an address suppressed after a bounce or complaint stays
// suppressed and the response says so.
func (s *Server) handleSubscribeLead(w http.ResponseWriter, r *http.Request) {
	var req subscribeLeadRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Source == "" {
		req.Source = "website"
	}

	lead, err := s.leads.SubscribeLead(r.Context(), req.Email, req.FirstName, req.Source)
	if errors.Is(err, store.ErrInvalidEmail) {
		respondErr(w, http.StatusBadRequest, "invalid email address")
		return
	}
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("subscribe lead: %w", err))
		return
	}

	s.logger.Info("leads: subscribed",
		"lead_id", lead.ID,
		"consent", lead.ConsentMarketing,
		"source", req.Source,
		logField(r),
	)
	respond(w, http.StatusOK, subscribeLeadResponse{
		LeadID:     lead.ID.String(),
		Subscribed: lead.ConsentMarketing,
	})
}
