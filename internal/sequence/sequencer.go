package sequence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/nyashahama/retreat-registration-backend/internal/db"
	"github.com/nyashahama/retreat-registration-backend/internal/email"
	"github.com/nyashahama/retreat-registration-backend/internal/notify"
	"github.com/nyashahama/retreat-registration-backend/internal/store"
)

// DefaultBatchSize is how many consenting leads one page loads.
const DefaultBatchSize int32 = 500

// DefaultMaxFailures is how many failed sends a stage gets before the lead
// moves past it.
const DefaultMaxFailures int32 = 5

// Locker runs fn while holding a cross-process lock; *store.Store implements it.
type Locker interface {
	WithAdvisoryLock(ctx context.Context, key int64, fn func(ctx context.Context) error) error
}

// Notifier sends and logs one message; *notify.Dispatcher implements it.
type Notifier interface {
	Send(ctx context.Context, m notify.Message) notify.DeliveryResult
}

// Config carries branding and limits for a Sequencer.
type Config struct {
	RetreatName    string
	SiteURL        string
	ReplyTo        string
	UnsubscribeURL string
	BatchSize      int32
	MaxFailures    int32
	Cadence        Cadence
}

// RunStats summarises one pass.
type RunStats struct {
	// Locked is true when another run held the lock and nothing was done.
	Locked     bool
	Leads      int
	Sent       int
	NotDue     int
	Completed  int
	Suppressed int
	Duplicates int
	Failed     int
}

// Sequencer sends at most one due stage per consenting lead per run.
type Sequencer struct {
	q        db.Querier
	locker   Locker
	notifier Notifier
	cfg      Config
	logger   *slog.Logger
	tracer   trace.Tracer
}

// New constructs a Sequencer. A zero Cadence means DefaultCadence.
func New(q db.Querier, locker Locker, notifier Notifier, cfg Config, logger *slog.Logger) (*Sequencer, error) {
	if cfg.Cadence == nil {
		cfg.Cadence = DefaultCadence
	}
	if err := cfg.Cadence.Validate(); err != nil {
		return nil, err
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = DefaultMaxFailures
	}
	return &Sequencer{
		q:        q,
		locker:   locker,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger,
		tracer:   otel.Tracer("github.com/nyashahama/retreat-registration-backend/internal/sequence"),
	}, nil
}

type leadOutcome int

const (
	outcomeSent leadOutcome = iota
	outcomeNotDue
	outcomeCompleted
	outcomeSuppressed
	outcomeDuplicate
)

// Run performs one pass over every consenting lead still owed a stage,
// paging through them in enrollment order. If another process is
// mid-run the pass is skipped and RunStats.Locked is set. Per-lead errors are
// logged and counted in RunStats.Failed; only a failure to take the lock or
// to list leads is returned.
func (s *Sequencer) Run(ctx context.Context, now time.Time) (RunStats, error) {
	ctx, span := s.tracer.Start(ctx, "sequence.Run")
	defer span.End()

	var stats RunStats
	err := s.locker.WithAdvisoryLock(ctx, store.SequenceLockKey, func(ctx context.Context) error {
		var err error
		stats, err = s.run(ctx, now)
		return err
	})
	if errors.Is(err, store.ErrLocked) {
		s.logger.Info("sequence: another run holds the lock, skipping")
		span.SetAttributes(attribute.Bool("sequence.locked", true))
		return RunStats{Locked: true}, nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "run failed")
		return stats, err
	}

	span.SetAttributes(
		attribute.Int("sequence.leads", stats.Leads),
		attribute.Int("sequence.sent", stats.Sent),
		attribute.Int("sequence.failed", stats.Failed),
	)
	s.logger.Info("sequence: run complete",
		"leads", stats.Leads,
		"sent", stats.Sent,
		"not_due", stats.NotDue,
		"completed", stats.Completed,
		"suppressed", stats.Suppressed,
		"duplicates", stats.Duplicates,
		"failed", stats.Failed,
	)
	return stats, nil
}

func (s *Sequencer) run(ctx context.Context, now time.Time) (RunStats, error) {
	var stats RunStats
	params := db.ListConsentingLeadsParams{
		StageCount:  int32(len(s.cfg.Cadence)),
		MaxFailures: s.cfg.MaxFailures,
		RowLimit:    s.cfg.BatchSize,
	}
	for {
		leads, err := s.q.ListConsentingLeads(ctx, params)
		if err != nil {
			return stats, fmt.Errorf("sequence: list consenting leads: %w", err)
		}
		stats.Leads += len(leads)

		for _, lead := range leads {
			if ctx.Err() != nil {
				return stats, ctx.Err()
			}
			outcome, err := s.advance(ctx, lead, now)
			if err != nil {
				stats.Failed++
				s.logger.Error("sequence: lead failed", "lead_id", lead.ID, "error", err)
				continue
			}
			switch outcome {
			case outcomeSent:
				stats.Sent++
			case outcomeNotDue:
				stats.NotDue++
			case outcomeCompleted:
				stats.Completed++
			case outcomeSuppressed:
				stats.Suppressed++
			case outcomeDuplicate:
				stats.Duplicates++
			}
		}

		if int32(len(leads)) < s.cfg.BatchSize {
			return stats, nil
		}
		last := leads[len(leads)-1]
		params.AfterEnrolledAt, params.AfterID = last.EnrolledAt, last.ID
	}
}

// advance sends the earliest unsettled stage for lead if it is due. A stage
// is settled once sent or after MaxFailures failed sends.
func (s *Sequencer) advance(ctx context.Context, lead db.Lead, now time.Time) (leadOutcome, error) {
	log := s.logger.With("lead_id", lead.ID)

	outcomes, err := s.q.ListStageOutcomes(ctx, uuid.NullUUID{UUID: lead.ID, Valid: true})
	if err != nil {
		return 0, fmt.Errorf("list stage outcomes: %w", err)
	}
	settled := make(map[int]bool, len(outcomes))
	for _, o := range outcomes {
		if o.Sent {
			settled[int(o.Stage)] = true
			continue
		}
		if o.Failures >= s.cfg.MaxFailures {
			settled[int(o.Stage)] = true
			log.Debug("sequence: stage exhausted, moving on", "stage", o.Stage, "failures", o.Failures)
		}
	}

	stage := -1
	for i := range s.cfg.Cadence {
		if !settled[i] {
			stage = i
			break
		}
	}
	if stage < 0 {
		return outcomeCompleted, nil
	}

	due, err := s.cfg.Cadence.NextSendTime(stage, lead.EnrolledAt)
	if err != nil {
		return 0, err
	}
	if due.After(now) {
		return outcomeNotDue, nil
	}

	// Consent may have been revoked by a bounce since the list was read.
	fresh, err := s.q.GetLeadByID(ctx, lead.ID)
	if err != nil {
		return 0, fmt.Errorf("reload lead: %w", err)
	}
	if !fresh.ConsentMarketing {
		log.Info("sequence: consent revoked, skipping", "stage", stage)
		return outcomeSuppressed, nil
	}

	tpl, err := s.cfg.Cadence.TemplateFor(stage)
	if err != nil {
		return 0, err
	}
	rendered, err := email.Render(string(tpl), email.SequenceData{
		FirstName:      fresh.FirstName,
		RetreatName:    s.cfg.RetreatName,
		SiteURL:        s.cfg.SiteURL,
		UnsubscribeURL: s.cfg.UnsubscribeURL,
		Stage:          stage,
	})
	if err != nil {
		return 0, fmt.Errorf("render %s: %w", tpl, err)
	}

	res := s.notifier.Send(ctx, notify.Message{
		Message:       rendered.Message(fresh.Email, s.cfg.ReplyTo),
		TemplateID:    string(tpl),
		LeadID:        &fresh.ID,
		SequenceStage: &stage,
	})
	if res.Duplicate {
		log.Warn("sequence: stage already logged as sent", "stage", stage)
		return outcomeDuplicate, nil
	}
	if !res.OK() {
		return 0, fmt.Errorf("send stage %d: %w", stage, res.Err)
	}
	log.Info("sequence: sent", "stage", stage, "template", tpl, "message_id", res.MessageID)
	return outcomeSent, nil
}
