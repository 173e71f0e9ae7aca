package pricing

import (
	"fmt"
	"strings"
	"time"

	"github.com/Rhymond/go-money"
)

// PaymentOption is how much of the retreat price the registrant pays today.
type PaymentOption string

const (
	PaymentDeposit PaymentOption = "deposit"
	PaymentFull    PaymentOption = "full"
)

// ParsePaymentOption accepts "deposit" or "full" (case-insensitive). Anything
// else, including the empty string, is an error.
func ParsePaymentOption(s string) (PaymentOption, error) {
	switch PaymentOption(strings.ToLower(strings.TrimSpace(s))) {
	case PaymentDeposit:
		return PaymentDeposit, nil
	case PaymentFull:
		return PaymentFull, nil
	default:
		return "", fmt.Errorf("pricing: unknown payment option %q", s)
	}
}

// Quote is the full price breakdown for one candidate registration. Deposit,
// RemainingBalance and BalanceDueDate are zero for a full payment.
type Quote struct {
	Tier            Tier
	RequestedOption PaymentOption
	PaymentOption   PaymentOption
	// DeadlineCoerced is true when a deposit was requested on or after the
	// full-payment deadline and the quote was switched to full payment.
	DeadlineCoerced bool

	BasePrice        *money.Money
	CameraDiscount   *money.Money
	Subtotal         *money.Money
	Deposit          *money.Money
	TaxableAmount    *money.Money
	Tax              *money.Money
	DueToday         *money.Money
	RemainingBalance *money.Money
	BalanceDueDate   time.Time
}

// Matches reports whether a charged amount (in cents) and currency equal what
// this quote says is due today.
func (q Quote) Matches(amountCents int64, currency string) bool {
	return q.DueToday.Amount() == amountCents &&
		strings.EqualFold(q.DueToday.Currency().Code, currency)
}

// Resolver computes quotes from an immutable Config.
type Resolver struct {
	cfg Config
}

// NewResolver validates cfg and returns a Resolver over it.
func NewResolver(cfg Config) (*Resolver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	tiers := make([]Tier, len(cfg.Tiers))
	copy(tiers, cfg.Tiers)
	cfg.Tiers = tiers
	return &Resolver{cfg: cfg}, nil
}

// Config returns a copy of the constants the resolver was built with.
func (r *Resolver) Config() Config {
	cfg := r.cfg
	cfg.Tiers = append([]Tier(nil), r.cfg.Tiers...)
	return cfg
}

// TierAt returns the tier whose window contains now. Outside every window it
// falls back instead of failing: before the first tier → first tier, after the
// last → last tier, inside a gap → the tier that most recently ended.
func (r *Resolver) TierAt(now time.Time) Tier {
	tiers := r.cfg.Tiers
	if now.Before(tiers[0].Start) {
		return tiers[0]
	}
	current := tiers[0]
	for _, t := range tiers {
		if t.contains(now) {
			return t
		}
		if !now.Before(t.Start) {
			current = t
		}
	}
	return current
}

// Quote prices a registration on day now. It never fails: tier lookup falls
// back to a boundary tier and a deposit requested on or after the full-payment
// deadline is silently converted to a full payment.
func (r *Resolver) Quote(now time.Time, bringOwnCamera bool, option PaymentOption) Quote {
	tier := r.TierAt(now)

	requested := option
	if option != PaymentDeposit {
		option = PaymentFull
	}
	coerced := false
	if option == PaymentDeposit && !now.Before(r.cfg.FullPaymentDeadline) {
		option = PaymentFull
		coerced = true
	}

	var discount int64
	if bringOwnCamera {
		discount = r.cfg.CameraDiscount
	}
	subtotal := tier.BasePrice - discount

	var deposit, taxable, remaining int64
	var dueDate time.Time
	switch option {
	case PaymentDeposit:
		deposit = r.cfg.Deposit
		taxable = deposit
		remaining = subtotal - deposit
		dueDate = r.cfg.FullPaymentDeadline
	default:
		taxable = subtotal
	}
	tax := roundedTax(taxable, r.cfg.TaxRateBps, r.cfg.TaxRoundingUnit)

	m := func(cents int64) *money.Money { return money.New(cents, r.cfg.Currency) }

	return Quote{
		Tier:             tier,
		RequestedOption:  requested,
		PaymentOption:    option,
		DeadlineCoerced:  coerced,
		BasePrice:        m(tier.BasePrice),
		CameraDiscount:   m(discount),
		Subtotal:         m(subtotal),
		Deposit:          m(deposit),
		TaxableAmount:    m(taxable),
		Tax:              m(tax),
		DueToday:         m(taxable + tax),
		RemainingBalance: m(remaining),
		BalanceDueDate:   dueDate,
	}
}

// roundedTax computes base × bps / 10000 rounded half-up to a multiple of unit
// cents, using integer arithmetic only.
func roundedTax(base, bps, unit int64) int64 {
	if base <= 0 || bps == 0 {
		return 0
	}
	den := 10000 * unit
	return (base*bps + den/2) / den * unit
}
