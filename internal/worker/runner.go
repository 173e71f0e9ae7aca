// Package worker contains the background pipeline that sends registration
// confirmation emails after a payment is persisted. The webhook processor
// holds a worker.Enqueuer and calls Enqueue; it never imports the concrete
// Runner or Job types.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nyashahama/retreat-registration-backend/internal/db"
	"github.com/nyashahama/retreat-registration-backend/internal/store"
)

// ─── ENQUEUER INTERFACE ───────────────────────────────────────────────────────

// Enqueuer is the narrow interface the registration package uses to hand off
// confirmation emails after a checkout is persisted.
//
// The concrete implementation is *Runner. In tests, any struct with an Enqueue
// method satisfies the interface.
type Enqueuer interface {
	Enqueue(ctx context.Context, registrationID uuid.UUID) error
}

// ErrQueueFull is returned by Enqueue when the channel buffer is full.
var ErrQueueFull = errors.New("worker: queue is full, registration will be picked up by poller")

// ─── RUNNER ───────────────────────────────────────────────────────────────────

// RunnerConfig holds tuning parameters for the Runner. All fields have
// sensible defaults if zero-valued; call DefaultRunnerConfig() to get them.
type RunnerConfig struct {
	// Workers is the number of concurrent job goroutines. Default: 3.
	Workers int

	// QueueSize is the channel buffer. Default: Workers*16.
	QueueSize int

	// PollInterval is how often the fallback poller checks
	// ListRegistrationsPendingConfirmation for confirmations that were missed
	// by the in-process channel (e.g. after a crash or restart). Default: 1m.
	PollInterval time.Duration

	// PollLookback limits the poller to registrations created this recently.
	// Default: 7 days.
	PollLookback time.Duration

	// PollBatch is the maximum number of registrations one poll enqueues.
	// Default: 100.
	PollBatch int32

	// JobTimeout is the per-attempt context deadline. Default: 1 minute.
	JobTimeout time.Duration

	// MaxRetries is the number of in-process attempts per enqueue. Default: 3.
	MaxRetries int

	// BaseBackoff is the first retry delay; it doubles per attempt.
	// Default: 2s.
	BaseBackoff time.Duration
}

// DefaultRunnerConfig returns safe production defaults.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		Workers:      3,
		QueueSize:    48,
		PollInterval: time.Minute,
		PollLookback: 7 * 24 * time.Hour,
		PollBatch:    100,
		JobTimeout:   time.Minute,
		MaxRetries:   3,
		BaseBackoff:  2 * time.Second,
	}
}

// jobRunner is what the Runner executes; *Job implements it.
type jobRunner interface {
	Run(ctx context.Context, registrationID uuid.UUID) error
	MaxFailures() int32
}

// Runner manages a pool of worker goroutines. It accepts jobs via an in-process
// channel (fast path, used for new payments) and also polls the database
// periodically to pick up registrations whose confirmation never went out
// (recovery path).
//
// A registration id is held in an in-flight set from Enqueue until its job
// finishes, so webhook replays arriving while the first job runs are dropped
// instead of racing it.
type Runner struct {
	job    jobRunner
	q      db.Querier
	cfg    RunnerConfig
	logger *slog.Logger

	queue chan uuid.UUID
	wg    sync.WaitGroup

	mu       sync.Mutex
	inflight map[uuid.UUID]struct{}
}

// NewRunner constructs a Runner. Call Start() to begin processing.
func NewRunner(job *Job, q db.Querier, cfg RunnerConfig, logger *slog.Logger) *Runner {
	return newRunner(job, q, cfg, logger)
}

func newRunner(job jobRunner, q db.Querier, cfg RunnerConfig, logger *slog.Logger) *Runner {
	def := DefaultRunnerConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = cfg.Workers * 16
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.PollLookback <= 0 {
		cfg.PollLookback = def.PollLookback
	}
	if cfg.PollBatch <= 0 {
		cfg.PollBatch = def.PollBatch
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = def.JobTimeout
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = def.MaxRetries
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = def.BaseBackoff
	}

	return &Runner{
		job:      job,
		q:        q,
		cfg:      cfg,
		logger:   logger,
		queue:    make(chan uuid.UUID, cfg.QueueSize),
		inflight: make(map[uuid.UUID]struct{}),
	}
}

// Enqueue pushes a registration id onto the in-process channel. It satisfies
// the Enqueuer interface. An id already queued or running is accepted without
// being queued twice. If the channel is full it returns ErrQueueFull rather
// than blocking the webhook response.
func (r *Runner) Enqueue(_ context.Context, registrationID uuid.UUID) error {
	if !r.claim(registrationID) {
		r.logger.Debug("worker: registration already in flight", "registration_id", registrationID)
		return nil
	}
	select {
	case r.queue <- registrationID:
		r.logger.Info("worker: enqueued registration", "registration_id", registrationID)
		return nil
	default:
		r.release(registrationID)
		return ErrQueueFull
	}
}

func (r *Runner) claim(id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, busy := r.inflight[id]; busy {
		return false
	}
	r.inflight[id] = struct{}{}
	return true
}

func (r *Runner) release(id uuid.UUID) {
	r.mu.Lock()
	delete(r.inflight, id)
	r.mu.Unlock()
}

// Start launches the worker pool and the fallback poller. It blocks until ctx
// is cancelled. Call it in a goroutine from main:
//
//	go runner.Start(ctx)
func (r *Runner) Start(ctx context.Context) {
	r.logger.Info("worker: starting", "workers", r.cfg.Workers, "poll_interval", r.cfg.PollInterval)

	// Launch worker goroutines.
	for i := range r.cfg.Workers {
		r.wg.Add(1)
		go r.work(ctx, i)
	}

	// Launch fallback poller.
	r.wg.Add(1)
	go r.poll(ctx)

	r.wg.Wait()
	r.logger.Info("worker: stopped")
}

// work is the inner loop for each worker goroutine.
func (r *Runner) work(ctx context.Context, id int) {
	defer r.wg.Done()
	log := r.logger.With("worker_id", id)
	log.Info("worker: goroutine started")

	for {
		select {
		case <-ctx.Done():
			log.Info("worker: goroutine stopping")
			return
		case registrationID := <-r.queue:
			r.runWithRetry(ctx, registrationID, log)
			r.release(registrationID)
		}
	}
}

// poll queries the database on PollInterval for registrations whose
// confirmation email is missing or failed.
func (r *Runner) poll(ctx context.Context) {
	defer r.wg.Done()
	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()

	// Run once immediately on startup to pick up anything from before restart.
	r.pollOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.pollOnce(ctx)
		}
	}
}

func (r *Runner) pollOnce(ctx context.Context) {
	ids, err := r.q.ListRegistrationsPendingConfirmation(ctx, db.ListRegistrationsPendingConfirmationParams{
		Since:       time.Now().Add(-r.cfg.PollLookback),
		MaxFailures: r.job.MaxFailures(),
		RowLimit:    r.cfg.PollBatch,
	})
	if err != nil {
		r.logger.Error("worker: poll failed", "error", err)
		return
	}
	for _, id := range ids {
		if err := r.Enqueue(ctx, id); err != nil {
			// Queue full; the next poll cycle picks the rest up.
			r.logger.Debug("worker: poller could not enqueue", "registration_id", id, "error", err)
			return
		}
	}
}

// runWithRetry executes the job up to MaxRetries times. After exhausting
// retries the failure stays visible in the email event log as send_failed
// rows, and the poller retries later until the job's failure cap is reached.
func (r *Runner) runWithRetry(ctx context.Context, registrationID uuid.UUID, log *slog.Logger) {
	var lastErr error

	for attempt := 1; attempt <= r.cfg.MaxRetries; attempt++ {
		jobCtx, cancel := context.WithTimeout(ctx, r.cfg.JobTimeout)
		lastErr = r.job.Run(jobCtx, registrationID)
		cancel()

		if lastErr == nil {
			log.Info("worker: job completed", "registration_id", registrationID, "attempt", attempt)
			return
		}
		if errors.Is(lastErr, store.ErrLocked) {
			log.Debug("worker: registration locked by another worker", "registration_id", registrationID)
			return
		}

		log.Warn("worker: job attempt failed",
			"registration_id", registrationID,
			"attempt", attempt,
			"max", r.cfg.MaxRetries,
			"error", lastErr,
		)

		if attempt < r.cfg.MaxRetries {
			// Exponential back-off: 2s, 4s, 8s …
			backoff := r.cfg.BaseBackoff << (attempt - 1)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
		}
	}

	log.Error("worker: job failed after retries", "registration_id", registrationID, "error", lastErr)
}
