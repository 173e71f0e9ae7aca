// Package notify sends rendered email through the configured provider and
// keeps the append-only email event log: one row per send attempt and one per
// provider delivery callback. Bounce and complaint callbacks revoke the
// recipient's marketing consent; nothing else in the system does.
package notify

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nyashahama/retreat-registration-backend/internal/db"
	"github.com/nyashahama/retreat-registration-backend/internal/email"
	"github.com/sqlc-dev/pqtype"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultSendTimeout bounds one provider call.
	DefaultSendTimeout = 10 * time.Second

	// logTimeout bounds the event-log write after a send. It runs detached
	// from the caller's context so a send that used up the deadline is still
	// recorded.
	logTimeout = 5 * time.Second
)

// Message is an email plus the ids recorded on its event row.
type Message struct {
	email.Message

	TemplateID     string
	LeadID         *uuid.UUID
	RegistrationID *uuid.UUID
	SequenceStage  *int
}

// DeliveryResult reports what happened to one Send. Err is the provider
// failure, LogErr a failure to write the event row; either may be set alone.
type DeliveryResult struct {
	MessageID string
	Event     db.EmailEvent
	Err       error
	LogErr    error

	// Duplicate is true when the log already held a 'sent' row for this lead
	// and sequence stage, so no new row was written.
	Duplicate bool
}

// OK reports whether the provider accepted the message.
func (r DeliveryResult) OK() bool { return r.Err == nil }

// DeliveryRecorder appends a callback event and optionally revokes consent in
// one transaction. *store.Store implements it.
type DeliveryRecorder interface {
	RecordDeliveryEvent(ctx context.Context, p db.InsertEmailEventParams, suppress bool) (db.EmailEvent, *db.Lead, error)
}

// Dispatcher is the only component that talks to the email provider.
type Dispatcher struct {
	q       db.Querier
	rec     DeliveryRecorder
	sender  email.Sender
	timeout time.Duration
	logger  *slog.Logger
	tracer  trace.Tracer
}

// New returns a Dispatcher. A zero timeout uses DefaultSendTimeout.
func New(q db.Querier, rec DeliveryRecorder, sender email.Sender, timeout time.Duration, logger *slog.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultSendTimeout
	}
	return &Dispatcher{
		q:       q,
		rec:     rec,
		sender:  sender,
		timeout: timeout,
		logger:  logger,
		tracer:  otel.Tracer("github.com/nyashahama/retreat-registration-backend/internal/notify"),
	}
}

// Send delivers m and logs a 'sent' or 'send_failed' event. It never panics
// on provider errors and never returns them as a Go error; the caller reads
// DeliveryResult and decides whether the failure matters to its own flow.
func (d *Dispatcher) Send(ctx context.Context, m Message) DeliveryResult {
	ctx, span := d.tracer.Start(ctx, "notify.Send", trace.WithAttributes(
		attribute.String("email.template", m.TemplateID),
	))
	defer span.End()

	sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
	id, sendErr := d.sender.Send(sendCtx, m.Message)
	cancel()

	params := db.InsertEmailEventParams{
		LeadID:         nullUUID(m.LeadID),
		RegistrationID: nullUUID(m.RegistrationID),
		EmailAddress:   m.To,
		TemplateID:     nullString(m.TemplateID),
	}
	if m.SequenceStage != nil {
		params.SequenceStage = sql.NullInt32{Int32: int32(*m.SequenceStage), Valid: true}
	}

	res := DeliveryResult{MessageID: id, Err: sendErr}
	if sendErr != nil {
		span.RecordError(sendErr)
		span.SetStatus(codes.Error, "send failed")
		params.EventType = db.EmailEventTypeSendFailed
		params.Metadata = jsonMetadata(map[string]string{"error": sendErr.Error()})
		d.logger.Warn("notify: send failed",
			"template", m.TemplateID,
			"to", m.To,
			"error", sendErr,
		)
	} else {
		params.EventType = db.EmailEventTypeSent
		params.MessageID = nullString(id)
	}

	logCtx, cancelLog := context.WithTimeout(context.WithoutCancel(ctx), logTimeout)
	defer cancelLog()

	event, err := d.q.InsertEmailEvent(logCtx, params)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// Only sequence sends can conflict: another run already logged this
		// lead + stage as sent.
		res.Duplicate = true
		d.logger.Warn("notify: sequence stage already logged as sent",
			"lead_id", params.LeadID.UUID,
			"stage", params.SequenceStage.Int32,
			"message_id", id,
		)
	case err != nil:
		res.LogErr = fmt.Errorf("notify: log %s event: %w", params.EventType, err)
		d.logger.Error("notify: event log write failed",
			"template", m.TemplateID,
			"event_type", params.EventType,
			"message_id", id,
			"error", err,
		)
	default:
		res.Event = event
	}

	return res
}

// HandleDeliveryEvent records a provider callback for every recipient on it.
// Lead, registration, stage and template are copied from the original 'sent'
// row when the message id matches one; otherwise the lead is looked up by
// address. Bounces and complaints revoke the lead's marketing consent.
func (d *Dispatcher) HandleDeliveryEvent(ctx context.Context, ev email.DeliveryEvent) error {
	ctx, span := d.tracer.Start(ctx, "notify.HandleDeliveryEvent", trace.WithAttributes(
		attribute.String("email.delivery_type", string(ev.Type)),
	))
	defer span.End()

	var original *db.EmailEvent
	if ev.MessageID != "" {
		sent, err := d.q.GetSentEventByMessageID(ctx, nullString(ev.MessageID))
		switch {
		case err == nil:
			original = &sent
		case !errors.Is(err, sql.ErrNoRows):
			span.RecordError(err)
			return fmt.Errorf("notify: look up message %s: %w", ev.MessageID, err)
		}
	}

	meta := map[string]string{}
	if !ev.OccurredAt.IsZero() {
		meta["occurred_at"] = ev.OccurredAt.UTC().Format(time.RFC3339)
	}
	if ev.Detail != "" {
		meta["detail"] = ev.Detail
	}

	var errs []error
	for _, addr := range ev.To {
		params := db.InsertEmailEventParams{
			EmailAddress: addr,
			EventType:    db.EmailEventType(ev.Type),
			MessageID:    nullString(ev.MessageID),
		}
		if len(meta) > 0 {
			params.Metadata = jsonMetadata(meta)
		}
		if original != nil {
			params.LeadID = original.LeadID
			params.RegistrationID = original.RegistrationID
			params.SequenceStage = original.SequenceStage
			params.TemplateID = original.TemplateID
		}
		if !params.LeadID.Valid {
			lead, err := d.q.GetLeadByEmail(ctx, addr)
			switch {
			case err == nil:
				params.LeadID = uuid.NullUUID{UUID: lead.ID, Valid: true}
			case !errors.Is(err, sql.ErrNoRows):
				errs = append(errs, fmt.Errorf("notify: look up lead %s: %w", addr, err))
				continue
			}
		}

		_, revoked, err := d.rec.RecordDeliveryEvent(ctx, params, ev.Type.Suppresses())
		if err != nil {
			errs = append(errs, fmt.Errorf("notify: record %s for %s: %w", ev.Type, addr, err))
			continue
		}
		if revoked != nil {
			d.logger.Info("notify: marketing consent revoked",
				"lead_id", revoked.ID,
				"reason", ev.Type,
				"message_id", ev.MessageID,
			)
		}
	}

	if err := errors.Join(errs...); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "record delivery event")
		return err
	}
	return nil
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func jsonMetadata(v map[string]string) pqtype.NullRawMessage {
	raw, err := json.Marshal(v)
	if err != nil {
		return pqtype.NullRawMessage{}
	}
	return pqtype.NullRawMessage{RawMessage: raw, Valid: true}
}
