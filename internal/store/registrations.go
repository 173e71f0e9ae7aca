package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/nyashahama/retreat-registration-backend/internal/db"
)

// RecordCheckoutCompleted is called by the payment webhook processor on
// checkout.session.completed. It atomically:
//
//  1. Upserts the registration keyed by stripe_session_id.
//  2. Marks the Stripe event processed in the ledger.
//
// A duplicate delivery is not an error: the upsert overwrites the row with the
// same data, bumps updated_at, and returns Inserted=false. Two concurrent
// deliveries of the same session can never produce two rows because the
// conflict is resolved by the unique index, not by a prior read.
//
// If the ledger update fails the whole transaction rolls back, so Stripe's
// retry redoes both steps.
func (s *Store) RecordCheckoutCompleted(ctx context.Context, stripeEventID string, p db.UpsertRegistrationParams) (db.UpsertRegistrationRow, error) {
	var row db.UpsertRegistrationRow

	err := s.inTx(ctx, func(ctx context.Context, q db.Querier) error {
		var err error
		row, err = q.UpsertRegistration(ctx, p)
		if err != nil {
			return fmt.Errorf("RecordCheckoutCompleted: upsert registration: %w", err)
		}

		if stripeEventID == "" {
			return nil
		}
		// No ledger row means the event was never recorded (ledger write
		// failed earlier); the registration itself is what matters.
		if _, err := q.MarkStripeEventProcessed(ctx, stripeEventID); err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("RecordCheckoutCompleted: mark event processed: %w", err)
		}
		return nil
	})
	if err != nil {
		return db.UpsertRegistrationRow{}, err
	}

	return row, nil
}
