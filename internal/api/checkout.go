package api

import (
	"fmt"
	"net/http"
	"net/mail"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/nyashahama/retreat-registration-backend/internal/pricing"
	"github.com/nyashahama/retreat-registration-backend/internal/store"
	stripeinternal "github.com/nyashahama/retreat-registration-backend/internal/stripe"
)

// ─── POST /api/checkout ───────────────────────────────────────────────────────

// Stripe rejects metadata values longer than this.
const maxMetadataValue = 500

type createCheckoutRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`

	AddressLine1 string `json:"address_line1"`
	AddressLine2 string `json:"address_line2"`
	City         string `json:"city"`
	State        string `json:"state"`
	PostalCode   string `json:"postal_code"`
	Country      string `json:"country"`

	EmergencyContactName  string `json:"emergency_contact_name"`
	EmergencyContactPhone string `json:"emergency_contact_phone"`

	ExperienceLevel string `json:"experience_level"`
	BringOwnCamera  bool   `json:"bring_own_camera"`
	CameraModel     string `json:"camera_model"`
	DietaryNotes    string `json:"dietary_notes"`
	MedicalNotes    string `json:"medical_notes"`

	PaymentOption string `json:"payment_option"`
}

type createCheckoutResponse struct {
	CheckoutURL string        `json:"checkout_url"`
	SessionID   string        `json:"session_id"`
	Quote       quoteResponse `json:"quote"`
}

// handleCreateCheckout prices the registration intent and opens a Stripe
// Checkout Session for the amount due today. Nothing is persisted here: the
// intent travels in session metadata and becomes a registration only when
// checkout.session.completed arrives.
func (s *Server) handleCreateCheckout(w http.ResponseWriter, r *http.Request) {
	var req createCheckoutRequest
	if !decode(w, r, &req) {
		return
	}

	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.Email = store.NormalizeEmail(req.Email)

	var missing []string
	if req.FirstName == "" {
		missing = append(missing, "first_name")
	}
	if req.LastName == "" {
		missing = append(missing, "last_name")
	}
	if req.Email == "" {
		missing = append(missing, "email")
	}
	if len(missing) > 0 {
		respondErr(w, http.StatusBadRequest, "missing required fields: "+strings.Join(missing, ", "))
		return
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		respondErr(w, http.StatusBadRequest, "invalid email address")
		return
	}

	opt, ok := parsePaymentOption(req.PaymentOption)
	if !ok {
		respondErr(w, http.StatusBadRequest, "payment_option must be deposit or full")
		return
	}

	now := s.now()
	quote := s.resolver.Quote(now, req.BringOwnCamera, opt)

	session, err := s.stripe.CreateCheckoutSession(r.Context(), stripeinternal.CreateCheckoutSessionParams{
		Currency:   strings.ToLower(quote.DueToday.Currency().Code),
		Email:      req.Email,
		LineItems:  s.lineItems(quote),
		Metadata:   s.checkoutMetadata(req, quote, now),
		SuccessURL: s.cfg.CheckoutSuccessURL,
		CancelURL:  s.cfg.CheckoutCancelURL,
	})
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("create checkout session: %w", err))
		return
	}

	s.logger.Info("checkout: session created",
		"session_id", session.ID,
		"tier", quote.Tier.Name,
		"payment_option", quote.PaymentOption,
		"due_today_cents", quote.DueToday.Amount(),
		logField(r),
	)

	respond(w, http.StatusOK, createCheckoutResponse{
		CheckoutURL: session.URL,
		SessionID:   session.ID,
		Quote:       toQuoteResponse(quote),
	})
}

// lineItems splits the amount due today into the priced item and its tax, so
// the Stripe receipt shows both and they sum to quote.DueToday.
func (s *Server) lineItems(q pricing.Quote) []stripeinternal.LineItem {
	name := s.cfg.RetreatName
	if name == "" {
		name = "Retreat registration"
	}

	var items []stripeinternal.LineItem
	if q.PaymentOption == pricing.PaymentDeposit {
		items = append(items, stripeinternal.LineItem{
			Name:        fmt.Sprintf("%s deposit (%s)", name, q.Tier.Name),
			Description: fmt.Sprintf("Remaining %s due by %s", q.RemainingBalance.Display(), q.BalanceDueDate.Format("January 2, 2006")),
			AmountCents: q.Deposit.Amount(),
		})
	} else {
		desc := q.Tier.Description
		if q.CameraDiscount.IsPositive() {
			desc = strings.TrimSpace(desc + " Includes " + q.CameraDiscount.Display() + " bring-your-own-camera discount.")
		}
		items = append(items, stripeinternal.LineItem{
			Name:        fmt.Sprintf("%s (%s)", name, q.Tier.Name),
			Description: desc,
			AmountCents: q.Subtotal.Amount(),
		})
	}
	if q.Tax.IsPositive() {
		items = append(items, stripeinternal.LineItem{Name: "Tax", AmountCents: q.Tax.Amount()})
	}
	return items
}

// checkoutMetadata carries the registration intent through Stripe. The
// payment option recorded is the effective one after deadline coercion.
func (s *Server) checkoutMetadata(req createCheckoutRequest, q pricing.Quote, now time.Time) map[string]string {
	md := map[string]string{
		stripeinternal.MetaFirstName:             req.FirstName,
		stripeinternal.MetaLastName:              req.LastName,
		stripeinternal.MetaEmail:                 req.Email,
		stripeinternal.MetaPhone:                 req.Phone,
		stripeinternal.MetaAddressLine1:          req.AddressLine1,
		stripeinternal.MetaAddressLine2:          req.AddressLine2,
		stripeinternal.MetaCity:                  req.City,
		stripeinternal.MetaState:                 req.State,
		stripeinternal.MetaPostalCode:            req.PostalCode,
		stripeinternal.MetaCountry:               req.Country,
		stripeinternal.MetaEmergencyContactName:  req.EmergencyContactName,
		stripeinternal.MetaEmergencyContactPhone: req.EmergencyContactPhone,
		stripeinternal.MetaExperienceLevel:       req.ExperienceLevel,
		stripeinternal.MetaBringOwnCamera:        strconv.FormatBool(req.BringOwnCamera),
		stripeinternal.MetaCameraModel:           req.CameraModel,
		stripeinternal.MetaDietaryNotes:          req.DietaryNotes,
		stripeinternal.MetaMedicalNotes:          req.MedicalNotes,
		stripeinternal.MetaPlanLabel:             q.Tier.Name,
		stripeinternal.MetaPaymentOption:         string(q.PaymentOption),
		stripeinternal.MetaRetreatSlug:           s.cfg.RetreatSlug,
		stripeinternal.MetaQuotedAt:              now.UTC().Format(time.RFC3339),
	}
	for k, v := range md {
		v = strings.TrimSpace(v)
		if v == "" {
			delete(md, k)
			continue
		}
		md[k] = truncate(v, maxMetadataValue)
	}
	return md
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	s = s[:n]
	for len(s) > 0 && !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}
