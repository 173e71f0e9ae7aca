package email

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/Rhymond/go-money"
)

//go:embed templates
var templates embed.FS

// Template ids. They are recorded on every email event, so renaming one
// breaks the sent-before check for messages already in the log.
const (
	TemplateRegistrationConfirmation = "registration_confirmation"
	TemplateAdminNewRegistration     = "admin_new_registration"

	TemplateSequenceWelcome   = "sequence_welcome"
	TemplateSequenceStory     = "sequence_story"
	TemplateSequenceGear      = "sequence_gear"
	TemplateSequenceItinerary = "sequence_itinerary"
	TemplateSequenceLastCall  = "sequence_last_call"
)

// Rendered is a template expanded into a ready-to-send subject and bodies.
type Rendered struct {
	Subject string
	HTML    string
	Text    string
}

// Message addresses a Rendered to a recipient.
func (r Rendered) Message(to, replyTo string) Message {
	return Message{To: to, Subject: r.Subject, HTML: r.HTML, Text: r.Text, ReplyTo: replyTo}
}

// RegistrationData feeds the confirmation and admin templates.
type RegistrationData struct {
	RegistrationID string
	SessionID      string
	RetreatName    string
	SiteURL        string

	FirstName string
	LastName  string
	Email     string
	Phone     string
	Address   string

	EmergencyContactName  string
	EmergencyContactPhone string

	ExperienceLevel string
	BringOwnCamera  bool
	CameraModel     string
	DietaryNotes    string
	MedicalNotes    string

	PlanLabel        string
	PaymentOption    string
	AmountPaid       *money.Money
	RemainingBalance *money.Money // nil or zero when paid in full
	BalanceDueDate   time.Time

	AmountMismatch bool
	ExpectedAmount *money.Money
}

// SequenceData feeds the nurture sequence templates.
type SequenceData struct {
	FirstName      string
	RetreatName    string
	SiteURL        string
	UnsubscribeURL string
	Stage          int
}

var funcs = map[string]any{
	"money": func(m *money.Money) string {
		if m == nil {
			return ""
		}
		return m.Display()
	},
	"date": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("January 2, 2006")
	},
	"owing": func(m *money.Money) bool {
		return m != nil && m.IsPositive()
	},
	"orDefault": func(def, s string) string {
		if strings.TrimSpace(s) == "" {
			return def
		}
		return s
	},
}

// Render expands templates/<name>.txt.tmpl (which defines "subject") and
// templates/<name>.html.tmpl with data.
func Render(name string, data any) (Rendered, error) {
	textName := name + ".txt.tmpl"
	textTmpl, err := texttemplate.New(textName).Funcs(funcs).ParseFS(templates, "templates/"+textName)
	if err != nil {
		return Rendered{}, fmt.Errorf("email: failed to parse text template %s: %w", name, err)
	}

	htmlName := name + ".html.tmpl"
	htmlTmpl, err := htmltemplate.New(htmlName).Funcs(funcs).ParseFS(templates, "templates/"+htmlName)
	if err != nil {
		return Rendered{}, fmt.Errorf("email: failed to parse html template %s: %w", name, err)
	}

	var subject, text, html bytes.Buffer
	if err := textTmpl.ExecuteTemplate(&subject, "subject", data); err != nil {
		return Rendered{}, fmt.Errorf("email: failed to execute subject of %s: %w", name, err)
	}
	if err := textTmpl.Execute(&text, data); err != nil {
		return Rendered{}, fmt.Errorf("email: failed to execute text template %s: %w", name, err)
	}
	if err := htmlTmpl.Execute(&html, data); err != nil {
		return Rendered{}, fmt.Errorf("email: failed to execute html template %s: %w", name, err)
	}

	return Rendered{
		Subject: strings.TrimSpace(subject.String()),
		HTML:    html.String(),
		Text:    strings.TrimSpace(text.String()) + "\n",
	}, nil
}
