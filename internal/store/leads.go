package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/nyashahama/retreat-registration-backend/internal/db"
)

// ErrInvalidEmail is returned by SubscribeLead for an address that does not
// parse.
var ErrInvalidEmail = errors.New("store: invalid email address")

// NormalizeEmail lower-cases and trims an address so lookups are
// case-insensitive.
func NormalizeEmail(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

// SubscribeLead creates a consenting lead, or refreshes the name on an
// existing one. It never re-enables consent on a suppressed lead.
func (s *Store) SubscribeLead(ctx context.Context, email, firstName, source string) (db.Lead, error) {
	addr := NormalizeEmail(email)
	if _, err := mail.ParseAddress(addr); err != nil || addr == "" {
		return db.Lead{}, fmt.Errorf("%w: %q", ErrInvalidEmail, email)
	}

	lead, err := s.queries.UpsertLead(ctx, db.UpsertLeadParams{
		Email:     addr,
		FirstName: strings.TrimSpace(firstName),
		Source:    strings.TrimSpace(source),
	})
	if err != nil {
		return db.Lead{}, fmt.Errorf("store: upsert lead: %w", err)
	}
	return lead, nil
}

// RecordDeliveryEvent appends a provider callback to the email event log and,
// when suppress is true, revokes marketing consent for the address in the same
// transaction. The returned lead is nil when no lead exists for the address
// or suppress is false.
//
// Revocation is one-way: RevokeLeadConsent only ever writes FALSE, and keeps
// the first suppressed_at.
func (s *Store) RecordDeliveryEvent(ctx context.Context, p db.InsertEmailEventParams, suppress bool) (db.EmailEvent, *db.Lead, error) {
	var (
		event   db.EmailEvent
		revoked *db.Lead
	)

	err := s.inTx(ctx, func(ctx context.Context, q db.Querier) error {
		var err error
		event, err = q.InsertEmailEvent(ctx, p)
		if err != nil {
			return fmt.Errorf("RecordDeliveryEvent: insert event: %w", err)
		}

		if !suppress {
			return nil
		}
		lead, err := q.RevokeLeadConsent(ctx, NormalizeEmail(p.EmailAddress))
		if errors.Is(err, sql.ErrNoRows) {
			// Transactional recipient with no marketing lead; nothing to revoke.
			return nil
		}
		if err != nil {
			return fmt.Errorf("RecordDeliveryEvent: revoke consent: %w", err)
		}
		revoked = &lead
		return nil
	})
	if err != nil {
		return db.EmailEvent{}, nil, err
	}

	return event, revoked, nil
}
