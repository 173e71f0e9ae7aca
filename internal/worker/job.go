package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/google/uuid"
	"github.com/nyashahama/retreat-registration-backend/internal/db"
	"github.com/nyashahama/retreat-registration-backend/internal/email"
	"github.com/nyashahama/retreat-registration-backend/internal/notify"
	"github.com/nyashahama/retreat-registration-backend/internal/pricing"
	"github.com/nyashahama/retreat-registration-backend/internal/store"
	stripeinternal "github.com/nyashahama/retreat-registration-backend/internal/stripe"
)

// DefaultMaxFailures caps how many send_failed rows one template may collect
// before the poller stops retrying it.
const DefaultMaxFailures int32 = 5

// Locker runs fn while holding a cross-process lock. *store.Store implements
// it; store.ErrLocked means another process holds the key.
type Locker interface {
	WithAdvisoryLock(ctx context.Context, key int64, fn func(ctx context.Context) error) error
}

// Notifier sends one message and records the outcome in the email event log.
// *notify.Dispatcher implements it.
type Notifier interface {
	Send(ctx context.Context, m notify.Message) notify.DeliveryResult
}

// JobConfig carries the addressing and branding used by confirmation emails.
type JobConfig struct {
	AdminEmail  string
	ReplyTo     string
	RetreatName string
	SiteURL     string
	MaxFailures int32
}

// Job holds the dependencies for the confirmation pipeline: one customer
// confirmation and one admin notification per registration.
type Job struct {
	q        db.Querier
	locker   Locker
	notifier Notifier
	resolver *pricing.Resolver
	cfg      JobConfig
	logger   *slog.Logger
}

// NewJob constructs a Job with all required dependencies.
func NewJob(
	q db.Querier,
	locker Locker,
	notifier Notifier,
	resolver *pricing.Resolver,
	cfg JobConfig,
	logger *slog.Logger,
) *Job {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = DefaultMaxFailures
	}
	return &Job{
		q:        q,
		locker:   locker,
		notifier: notifier,
		resolver: resolver,
		cfg:      cfg,
		logger:   logger,
	}
}

// MaxFailures is the per-template failure cap the poller filters on.
func (j *Job) MaxFailures() int32 { return j.cfg.MaxFailures }

// confirmation is one email the job owes a registration.
type confirmation struct {
	template string
	to       string
	replyTo  string
}

// Run sends whichever confirmation emails the event log does not already
// show as sent:
//
//  1. Take the per-registration advisory lock (another holder → store.ErrLocked).
//  2. Load the registration.
//  3. Read the sent / send_failed outcomes per template.
//  4. Render and send each template still owed, skipping any that reached
//     the failure cap.
//
// Each send is logged by the Notifier, so a second Run after success sends
// nothing. Any failed send is returned to the Runner, which retries.
func (j *Job) Run(ctx context.Context, registrationID uuid.UUID) error {
	return j.locker.WithAdvisoryLock(ctx, store.RegistrationLockKey(registrationID), func(ctx context.Context) error {
		return j.confirm(ctx, registrationID)
	})
}

func (j *Job) confirm(ctx context.Context, registrationID uuid.UUID) error {
	log := j.logger.With("registration_id", registrationID)

	// ── 1. Load the registration ──────────────────────────────────────────────
	reg, err := j.q.GetRegistrationByID(ctx, registrationID)
	if err != nil {
		return fmt.Errorf("job: get registration: %w", err)
	}
	if !stripeinternal.PaymentSettled(reg.PaymentStatus) {
		log.Info("job: payment not settled, nothing to confirm", "payment_status", reg.PaymentStatus)
		return nil
	}

	// ── 2. What has already gone out ──────────────────────────────────────────
	outcomes, err := j.q.ListTemplateOutcomes(ctx, uuid.NullUUID{UUID: registrationID, Valid: true})
	if err != nil {
		return fmt.Errorf("job: list template outcomes: %w", err)
	}
	sent := make(map[string]bool, len(outcomes))
	failures := make(map[string]int32, len(outcomes))
	for _, o := range outcomes {
		switch o.EventType {
		case db.EmailEventTypeSent:
			sent[o.TemplateID] = true
		case db.EmailEventTypeSendFailed:
			failures[o.TemplateID]++
		}
	}

	// ── 3. Decide what is owed ────────────────────────────────────────────────
	var owed []confirmation
	if reg.Email != "" {
		owed = append(owed, confirmation{template: email.TemplateRegistrationConfirmation, to: reg.Email, replyTo: j.cfg.ReplyTo})
	} else {
		log.Warn("job: registration has no email address, skipping customer confirmation")
	}
	if j.cfg.AdminEmail != "" {
		owed = append(owed, confirmation{template: email.TemplateAdminNewRegistration, to: j.cfg.AdminEmail, replyTo: reg.Email})
	}

	data := j.registrationData(reg)

	// ── 4. Send ───────────────────────────────────────────────────────────────
	var errs []error
	for _, c := range owed {
		if sent[c.template] {
			log.Debug("job: already sent", "template", c.template)
			continue
		}
		if failures[c.template] >= j.cfg.MaxFailures {
			log.Warn("job: template reached failure cap, not retrying",
				"template", c.template,
				"failures", failures[c.template],
			)
			continue
		}

		rendered, err := email.Render(c.template, data)
		if err != nil {
			errs = append(errs, fmt.Errorf("job: render %s: %w", c.template, err))
			continue
		}

		res := j.notifier.Send(ctx, notify.Message{
			Message:        rendered.Message(c.to, c.replyTo),
			TemplateID:     c.template,
			RegistrationID: &reg.ID,
		})
		if !res.OK() {
			errs = append(errs, fmt.Errorf("job: send %s: %w", c.template, res.Err))
			continue
		}
		// A log write failure after a successful send is not retried here;
		// retrying would send the same email again.
		log.Info("job: sent", "template", c.template, "message_id", res.MessageID)
	}

	return errors.Join(errs...)
}

// registrationData maps the stored row onto the template fields. The
// remaining balance comes from re-quoting at the registration's creation
// time with the stored payment option.
func (j *Job) registrationData(reg db.Registration) email.RegistrationData {
	data := email.RegistrationData{
		RegistrationID:        reg.ID.String(),
		SessionID:             reg.StripeSessionID,
		RetreatName:           j.cfg.RetreatName,
		SiteURL:               j.cfg.SiteURL,
		FirstName:             reg.FirstName,
		LastName:              reg.LastName,
		Email:                 reg.Email,
		Phone:                 reg.Phone,
		Address:               formatAddress(reg),
		EmergencyContactName:  reg.EmergencyContactName,
		EmergencyContactPhone: reg.EmergencyContactPhone,
		ExperienceLevel:       reg.ExperienceLevel,
		BringOwnCamera:        reg.BringOwnCamera,
		CameraModel:           reg.CameraModel,
		DietaryNotes:          reg.DietaryNotes,
		MedicalNotes:          reg.MedicalNotes,
		PlanLabel:             reg.PlanLabel,
		PaymentOption:         reg.PaymentOption,
		AmountPaid:            money.New(reg.AmountPaidCents, strings.ToUpper(reg.Currency)),
		AmountMismatch:        reg.AmountMismatch,
	}
	if reg.ExpectedAmountCents.Valid {
		data.ExpectedAmount = money.New(reg.ExpectedAmountCents.Int64, strings.ToUpper(reg.Currency))
	}

	if j.resolver != nil && reg.PaymentOption == string(pricing.PaymentDeposit) {
		q := j.resolver.Quote(reg.CreatedAt, reg.BringOwnCamera, pricing.PaymentDeposit)
		if q.PaymentOption == pricing.PaymentDeposit {
			data.RemainingBalance = q.RemainingBalance
			data.BalanceDueDate = q.BalanceDueDate
		}
	}
	return data
}

func formatAddress(reg db.Registration) string {
	cityLine := strings.TrimSpace(strings.Join(nonEmpty(reg.City, strings.TrimSpace(reg.State+" "+reg.PostalCode)), ", "))
	return strings.Join(nonEmpty(reg.AddressLine1, reg.AddressLine2, cityLine, reg.Country), ", ")
}

func nonEmpty(parts ...string) []string {
	var out []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
