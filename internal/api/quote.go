package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/nyashahama/retreat-registration-backend/internal/pricing"
)

// ─── GET /api/quote ───────────────────────────────────────────────────────────

type amountResponse struct {
	Cents   int64  `json:"cents"`
	Display string `json:"display"`
}

func amountOf(m *money.Money) amountResponse {
	if m == nil {
		return amountResponse{}
	}
	return amountResponse{Cents: m.Amount(), Display: m.Display()}
}

type quoteResponse struct {
	Tier            string `json:"tier"`
	TierDescription string `json:"tier_description,omitempty"`
	Currency        string `json:"currency"`

	RequestedPaymentOption string `json:"requested_payment_option"`
	PaymentOption          string `json:"payment_option"`
	// DeadlineCoerced is true when a deposit was asked for past the
	// full-payment deadline and the quote is for full payment instead.
	DeadlineCoerced bool `json:"deadline_coerced"`

	BasePrice        amountResponse `json:"base_price"`
	CameraDiscount   amountResponse `json:"camera_discount"`
	Subtotal         amountResponse `json:"subtotal"`
	Deposit          amountResponse `json:"deposit"`
	Tax              amountResponse `json:"tax"`
	DueToday         amountResponse `json:"due_today"`
	RemainingBalance amountResponse `json:"remaining_balance"`
	BalanceDueDate   string         `json:"balance_due_date,omitempty"` // YYYY-MM-DD
}

func toQuoteResponse(q pricing.Quote) quoteResponse {
	resp := quoteResponse{
		Tier:                   q.Tier.Name,
		TierDescription:        q.Tier.Description,
		Currency:               q.DueToday.Currency().Code,
		RequestedPaymentOption: string(q.RequestedOption),
		PaymentOption:          string(q.PaymentOption),
		DeadlineCoerced:        q.DeadlineCoerced,
		BasePrice:              amountOf(q.BasePrice),
		CameraDiscount:         amountOf(q.CameraDiscount),
		Subtotal:               amountOf(q.Subtotal),
		Deposit:                amountOf(q.Deposit),
		Tax:                    amountOf(q.Tax),
		DueToday:               amountOf(q.DueToday),
		RemainingBalance:       amountOf(q.RemainingBalance),
	}
	if !q.BalanceDueDate.IsZero() {
		resp.BalanceDueDate = q.BalanceDueDate.Format("2006-01-02")
	}
	return resp
}

// parsePaymentOption treats an empty value as full payment. Anything else
// must name a known option.
func parsePaymentOption(raw string) (pricing.PaymentOption, bool) {
	if strings.TrimSpace(raw) == "" {
		return pricing.PaymentFull, true
	}
	opt, err := pricing.ParsePaymentOption(raw)
	return opt, err == nil
}

// handleGetQuote prices a registration as of now.
// Query: bring_own_camera=true|false, payment_option=deposit|full.
func (s *Server) handleGetQuote(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()

	camera := false
	if raw := qs.Get("bring_own_camera"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			respondErr(w, http.StatusBadRequest, "bring_own_camera must be true or false")
			return
		}
		camera = v
	}

	opt, ok := parsePaymentOption(qs.Get("payment_option"))
	if !ok {
		respondErr(w, http.StatusBadRequest, "payment_option must be deposit or full")
		return
	}

	respond(w, http.StatusOK, toQuoteResponse(s.resolver.Quote(s.now(), camera, opt)))
}
