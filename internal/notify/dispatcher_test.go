package notify_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nyashahama/retreat-registration-backend/internal/db"
	"github.com/nyashahama/retreat-registration-backend/internal/email"
	"github.com/nyashahama/retreat-registration-backend/internal/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ─── STUBS ────────────────────────────────────────────────────────────────────

// eventLog is an in-memory email_events table with the partial unique index
// on (lead_id, sequence_stage) for 'sent' rows.
type eventLog struct {
	db.Querier
	mu      sync.Mutex
	events  []db.EmailEvent
	leads   map[string]db.Lead
	failErr error
}

func newEventLog() *eventLog { return &eventLog{leads: map[string]db.Lead{}} }

func (l *eventLog) InsertEmailEvent(_ context.Context, p db.InsertEmailEventParams) (db.EmailEvent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failErr != nil {
		return db.EmailEvent{}, l.failErr
	}
	if p.EventType == db.EmailEventTypeSent && p.SequenceStage.Valid {
		for _, e := range l.events {
			if e.EventType == db.EmailEventTypeSent && e.LeadID == p.LeadID && e.SequenceStage == p.SequenceStage {
				return db.EmailEvent{}, sql.ErrNoRows
			}
		}
	}
	e := db.EmailEvent{
		ID:             int64(len(l.events) + 1),
		LeadID:         p.LeadID,
		RegistrationID: p.RegistrationID,
		EmailAddress:   p.EmailAddress,
		EventType:      p.EventType,
		SequenceStage:  p.SequenceStage,
		TemplateID:     p.TemplateID,
		MessageID:      p.MessageID,
		Metadata:       p.Metadata,
		CreatedAt:      time.Now(),
	}
	l.events = append(l.events, e)
	return e, nil
}

func (l *eventLog) GetSentEventByMessageID(_ context.Context, id sql.NullString) (db.EmailEvent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.events {
		if e.EventType == db.EmailEventTypeSent && e.MessageID == id {
			return e, nil
		}
	}
	return db.EmailEvent{}, sql.ErrNoRows
}

func (l *eventLog) GetLeadByEmail(_ context.Context, addr string) (db.Lead, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	lead, ok := l.leads[addr]
	if !ok {
		return db.Lead{}, sql.ErrNoRows
	}
	return lead, nil
}

// RecordDeliveryEvent mimics store.Store: insert then revoke.
func (l *eventLog) RecordDeliveryEvent(ctx context.Context, p db.InsertEmailEventParams, suppress bool) (db.EmailEvent, *db.Lead, error) {
	e, err := l.InsertEmailEvent(ctx, p)
	if err != nil {
		return db.EmailEvent{}, nil, err
	}
	if !suppress {
		return e, nil, nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	lead, ok := l.leads[p.EmailAddress]
	if !ok {
		return e, nil, nil
	}
	lead.ConsentMarketing = false
	l.leads[p.EmailAddress] = lead
	return e, &lead, nil
}

type stubSender struct {
	id    string
	err   error
	delay time.Duration
	sent  []email.Message
}

func (s *stubSender) Send(ctx context.Context, m email.Message) (string, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	s.sent = append(s.sent, m)
	return s.id, s.err
}

func newDispatcher(log *eventLog, sender email.Sender, timeout time.Duration) *notify.Dispatcher {
	return notify.New(log, log, sender, timeout, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// ─── Send ─────────────────────────────────────────────────────────────────────

func TestSend_SuccessLogsSent(t *testing.T) {
	log := newEventLog()
	regID := uuid.New()
	d := newDispatcher(log, &stubSender{id: "msg_1"}, 0)

	res := d.Send(context.Background(), notify.Message{
		Message:        email.Message{To: "ada@example.com", Subject: "Hi", HTML: "<p>Hi</p>"},
		TemplateID:     email.TemplateRegistrationConfirmation,
		RegistrationID: &regID,
	})

	require.True(t, res.OK())
	require.NoError(t, res.LogErr)
	assert.Equal(t, "msg_1", res.MessageID)
	require.Len(t, log.events, 1)
	e := log.events[0]
	assert.Equal(t, db.EmailEventTypeSent, e.EventType)
	assert.Equal(t, "msg_1", e.MessageID.String)
	assert.Equal(t, regID, e.RegistrationID.UUID)
	assert.Equal(t, email.TemplateRegistrationConfirmation, e.TemplateID.String)
	assert.False(t, e.SequenceStage.Valid)
}

func TestSend_FailureLogsSendFailedWithoutPanicking(t *testing.T) {
	log := newEventLog()
	d := newDispatcher(log, &stubSender{err: errors.New("provider down")}, 0)

	res := d.Send(context.Background(), notify.Message{
		Message:    email.Message{To: "ada@example.com"},
		TemplateID: "t",
	})

	require.False(t, res.OK())
	assert.EqualError(t, res.Err, "provider down")
	require.Len(t, log.events, 1)
	e := log.events[0]
	assert.Equal(t, db.EmailEventTypeSendFailed, e.EventType)
	assert.False(t, e.MessageID.Valid)

	var meta map[string]string
	require.NoError(t, json.Unmarshal(e.Metadata.RawMessage, &meta))
	assert.Equal(t, "provider down", meta["error"])
}

func TestSend_TimeoutIsBounded(t *testing.T) {
	log := newEventLog()
	d := newDispatcher(log, &stubSender{id: "late", delay: time.Second}, 20*time.Millisecond)

	start := time.Now()
	res := d.Send(context.Background(), notify.Message{Message: email.Message{To: "a@example.com"}})

	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.ErrorIs(t, res.Err, context.DeadlineExceeded)
	require.Len(t, log.events, 1)
	assert.Equal(t, db.EmailEventTypeSendFailed, log.events[0].EventType)
}

func TestSend_LogFailureIsReported(t *testing.T) {
	log := newEventLog()
	log.failErr = errors.New("db gone")
	d := newDispatcher(log, &stubSender{id: "msg"}, 0)

	res := d.Send(context.Background(), notify.Message{Message: email.Message{To: "a@example.com"}})
	assert.True(t, res.OK())
	assert.Error(t, res.LogErr)
}

func TestSend_DuplicateSequenceStage(t *testing.T) {
	log := newEventLog()
	leadID := uuid.New()
	stage := 1
	d := newDispatcher(log, &stubSender{id: "msg"}, 0)

	m := notify.Message{
		Message:       email.Message{To: "a@example.com"},
		LeadID:        &leadID,
		SequenceStage: &stage,
	}
	first := d.Send(context.Background(), m)
	second := d.Send(context.Background(), m)

	assert.False(t, first.Duplicate)
	assert.True(t, second.Duplicate)
	assert.NoError(t, second.LogErr)
	assert.Len(t, log.events, 1)
}

// ─── HandleDeliveryEvent ──────────────────────────────────────────────────────

func TestHandleDeliveryEvent_BounceRevokesConsent(t *testing.T) {
	log := newEventLog()
	leadID := uuid.New()
	log.leads["ada@example.com"] = db.Lead{ID: leadID, Email: "ada@example.com", ConsentMarketing: true}
	d := newDispatcher(log, &stubSender{id: "msg_9"}, 0)

	stage := 2
	d.Send(context.Background(), notify.Message{
		Message:       email.Message{To: "ada@example.com"},
		TemplateID:    email.TemplateSequenceGear,
		LeadID:        &leadID,
		SequenceStage: &stage,
	})

	err := d.HandleDeliveryEvent(context.Background(), email.DeliveryEvent{
		Type:      email.DeliveryBounced,
		To:        []string{"ada@example.com"},
		MessageID: "msg_9",
		Detail:    "Permanent",
	})
	require.NoError(t, err)

	assert.False(t, log.leads["ada@example.com"].ConsentMarketing)
	require.Len(t, log.events, 2)
	bounce := log.events[1]
	assert.Equal(t, db.EmailEventTypeBounced, bounce.EventType)
	assert.Equal(t, leadID, bounce.LeadID.UUID)
	assert.Equal(t, int32(2), bounce.SequenceStage.Int32)
	assert.Equal(t, email.TemplateSequenceGear, bounce.TemplateID.String)
}

func TestHandleDeliveryEvent_DeliveredKeepsConsent(t *testing.T) {
	log := newEventLog()
	log.leads["ada@example.com"] = db.Lead{ID: uuid.New(), Email: "ada@example.com", ConsentMarketing: true}
	d := newDispatcher(log, &stubSender{}, 0)

	err := d.HandleDeliveryEvent(context.Background(), email.DeliveryEvent{
		Type: email.DeliveryDelivered,
		To:   []string{"ada@example.com"},
	})
	require.NoError(t, err)
	assert.True(t, log.leads["ada@example.com"].ConsentMarketing)
	require.Len(t, log.events, 1)
	assert.True(t, log.events[0].LeadID.Valid, "lead resolved by address")
}

func TestHandleDeliveryEvent_ComplaintForUnknownAddress(t *testing.T) {
	log := newEventLog()
	d := newDispatcher(log, &stubSender{}, 0)

	err := d.HandleDeliveryEvent(context.Background(), email.DeliveryEvent{
		Type: email.DeliveryComplaint,
		To:   []string{"stranger@example.com"},
	})
	require.NoError(t, err)
	require.Len(t, log.events, 1)
	assert.False(t, log.events[0].LeadID.Valid)
}
