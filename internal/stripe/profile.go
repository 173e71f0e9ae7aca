package stripe

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrMissingSessionID is returned by ExtractCheckoutProfile when the event has
// no checkout session id. Such an event cannot be stored idempotently.
var ErrMissingSessionID = errors.New("stripe: checkout session id is empty")

// Metadata keys written by the checkout handler and read back here.
const (
	MetaFirstName             = "first_name"
	MetaLastName              = "last_name"
	MetaName                  = "name"
	MetaEmail                 = "email"
	MetaPhone                 = "phone"
	MetaAddressLine1          = "address_line1"
	MetaAddressLine2          = "address_line2"
	MetaCity                  = "city"
	MetaState                 = "state"
	MetaPostalCode            = "postal_code"
	MetaCountry               = "country"
	MetaEmergencyContactName  = "emergency_contact_name"
	MetaEmergencyContactPhone = "emergency_contact_phone"
	MetaExperienceLevel       = "experience_level"
	MetaBringOwnCamera        = "bring_own_camera"
	MetaCameraModel           = "camera_model"
	MetaDietaryNotes          = "dietary_notes"
	MetaMedicalNotes          = "medical_notes"
	MetaPlanLabel             = "plan_label"
	MetaPaymentOption         = "payment_option"
	MetaRetreatSlug           = "retreat_slug"
	MetaQuotedAt              = "quoted_at"
)

// Address is a postal address. Empty fields are "".
type Address struct {
	Line1      string
	Line2      string
	City       string
	State      string
	PostalCode string
	Country    string
}

func (a Address) empty() bool {
	return a == Address{}
}

// CheckoutProfile is everything a completed Checkout Session tells us about
// the registrant. Every field has a zero-value default, never nil.
type CheckoutProfile struct {
	SessionID      string
	PaymentStatus  string
	SessionCreated time.Time

	Email     string
	FirstName string
	LastName  string
	Phone     string
	Address   Address

	EmergencyContactName  string
	EmergencyContactPhone string

	ExperienceLevel string
	BringOwnCamera  bool
	CameraModel     string
	DietaryNotes    string
	MedicalNotes    string

	PlanLabel     string
	PaymentOption string
	RetreatSlug   string

	AmountTotalCents int64
	Currency         string

	// QuotedAt is when the registrant saw the price, if the checkout handler
	// recorded it. Zero otherwise.
	QuotedAt time.Time
}

// FullName joins first and last name with a single space.
func (p CheckoutProfile) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// checkoutSessionObject mirrors the parts of a Checkout Session JSON object we
// read. Pointers distinguish absent objects from empty ones.
type checkoutSessionObject struct {
	ID              string            `json:"id"`
	Created         int64             `json:"created"`
	PaymentStatus   string            `json:"payment_status"`
	AmountTotal     int64             `json:"amount_total"`
	Currency        string            `json:"currency"`
	CustomerEmail   string            `json:"customer_email"`
	Metadata        map[string]string `json:"metadata"`
	CustomerDetails *struct {
		Email   string `json:"email"`
		Name    string `json:"name"`
		Phone   string `json:"phone"`
		Address *struct {
			Line1      string `json:"line1"`
			Line2      string `json:"line2"`
			City       string `json:"city"`
			State      string `json:"state"`
			PostalCode string `json:"postal_code"`
			Country    string `json:"country"`
		} `json:"address"`
	} `json:"customer_details"`
}

// ExtractCheckoutProfile builds a CheckoutProfile from a
// checkout.session.completed event. Precedence, first non-empty wins:
//
//	email      customer_details.email, customer_email, metadata.email
//	first/last metadata.first_name/last_name when either is set, else a split
//	           of customer_details.name, else a split of metadata.name
//	phone      customer_details.phone, metadata.phone
//	address    customer_details.address when any line is set, else metadata
//
// Booleans accept "true", "1", "yes" and "on".
func ExtractCheckoutProfile(event Event) (CheckoutProfile, error) {
	var obj checkoutSessionObject
	if err := json.Unmarshal(event.DataRaw, &obj); err != nil {
		return CheckoutProfile{}, fmt.Errorf("stripe: unmarshal checkout session: %w", err)
	}
	if strings.TrimSpace(obj.ID) == "" {
		return CheckoutProfile{}, fmt.Errorf("%w (event %s)", ErrMissingSessionID, event.ID)
	}

	meta := func(key string) string { return strings.TrimSpace(obj.Metadata[key]) }

	var detailsEmail, detailsName, detailsPhone string
	var detailsAddr Address
	if cd := obj.CustomerDetails; cd != nil {
		detailsEmail = cd.Email
		detailsName = cd.Name
		detailsPhone = cd.Phone
		if a := cd.Address; a != nil {
			detailsAddr = Address{
				Line1:      strings.TrimSpace(a.Line1),
				Line2:      strings.TrimSpace(a.Line2),
				City:       strings.TrimSpace(a.City),
				State:      strings.TrimSpace(a.State),
				PostalCode: strings.TrimSpace(a.PostalCode),
				Country:    strings.TrimSpace(a.Country),
			}
		}
	}

	p := CheckoutProfile{
		SessionID:             obj.ID,
		PaymentStatus:         obj.PaymentStatus,
		Email:                 strings.ToLower(firstNonEmpty(detailsEmail, obj.CustomerEmail, meta(MetaEmail))),
		Phone:                 firstNonEmpty(detailsPhone, meta(MetaPhone)),
		EmergencyContactName:  meta(MetaEmergencyContactName),
		EmergencyContactPhone: meta(MetaEmergencyContactPhone),
		ExperienceLevel:       meta(MetaExperienceLevel),
		BringOwnCamera:        parseBool(meta(MetaBringOwnCamera)),
		CameraModel:           meta(MetaCameraModel),
		DietaryNotes:          meta(MetaDietaryNotes),
		MedicalNotes:          meta(MetaMedicalNotes),
		PlanLabel:             meta(MetaPlanLabel),
		PaymentOption:         strings.ToLower(meta(MetaPaymentOption)),
		RetreatSlug:           meta(MetaRetreatSlug),
		AmountTotalCents:      obj.AmountTotal,
		Currency:              strings.ToUpper(obj.Currency),
	}
	if obj.Created > 0 {
		p.SessionCreated = time.Unix(obj.Created, 0).UTC()
	}
	if ts := meta(MetaQuotedAt); ts != "" {
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			p.QuotedAt = t
		}
	}

	if first, last := meta(MetaFirstName), meta(MetaLastName); first != "" || last != "" {
		p.FirstName, p.LastName = first, last
	} else if name := strings.TrimSpace(detailsName); name != "" {
		p.FirstName, p.LastName = splitName(name)
	} else {
		p.FirstName, p.LastName = splitName(meta(MetaName))
	}

	if !detailsAddr.empty() {
		p.Address = detailsAddr
	} else {
		p.Address = Address{
			Line1:      meta(MetaAddressLine1),
			Line2:      meta(MetaAddressLine2),
			City:       meta(MetaCity),
			State:      meta(MetaState),
			PostalCode: meta(MetaPostalCode),
			Country:    meta(MetaCountry),
		}
	}

	return p, nil
}

// splitName returns the first whitespace-separated token and the remainder.
func splitName(name string) (first, last string) {
	fields := strings.Fields(name)
	switch len(fields) {
	case 0:
		return "", ""
	case 1:
		return fields[0], ""
	default:
		return fields[0], strings.Join(fields[1:], " ")
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "on":
		return true
	}
	return false
}
