package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nyashahama/retreat-registration-backend/internal/api"
	"github.com/nyashahama/retreat-registration-backend/internal/bootstrap"
	"github.com/nyashahama/retreat-registration-backend/internal/config"
	"github.com/nyashahama/retreat-registration-backend/internal/email"
	"github.com/nyashahama/retreat-registration-backend/internal/notify"
	"github.com/nyashahama/retreat-registration-backend/internal/registration"
	"github.com/nyashahama/retreat-registration-backend/internal/sequence"
	"github.com/nyashahama/retreat-registration-backend/internal/store"
	stripeinternal "github.com/nyashahama/retreat-registration-backend/internal/stripe"
	"github.com/nyashahama/retreat-registration-backend/internal/worker"
)

func main() {
	// ── Logger ────────────────────────────────────────────────────────────────
	// JSON in production, pretty text in development.
	logger := bootstrap.NewLogger(os.Stdout, os.Getenv("ENV"))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	// ── Config ────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := cfg.ValidateServer(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger.Info("config loaded", "env", cfg.Env, "port", cfg.Port)

	// Root context cancelled by OS signal. Worker and HTTP server both respect it.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Database ──────────────────────────────────────────────────────────────
	pool, queries, err := bootstrap.OpenDB(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer pool.Close()
	logger.Info("database connected")

	// ── Store (atomic multi-step writes, advisory locks) ──────────────────────
	st := store.New(pool, queries)

	// ── Pricing ───────────────────────────────────────────────────────────────
	resolver, err := bootstrap.NewResolver(cfg)
	if err != nil {
		return fmt.Errorf("pricing: %w", err)
	}

	// ── Stripe ────────────────────────────────────────────────────────────────
	stripeClient := stripeinternal.NewClient(cfg.StripeSecretKey)

	// ── Email ─────────────────────────────────────────────────────────────────
	sender, err := bootstrap.NewSender(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("email: %w", err)
	}
	dispatcher := notify.New(queries, st, sender, cfg.EmailSendTimeout, logger)

	var verifier api.SignatureVerifier
	if cfg.ResendWebhookSecret != "" {
		v, err := email.NewWebhookVerifier(cfg.ResendWebhookSecret)
		if err != nil {
			return fmt.Errorf("email webhook: %w", err)
		}
		verifier = v
	} else {
		logger.Warn("email webhook: RESEND_WEBHOOK_SECRET not set, delivery callbacks will be rejected")
	}

	// ── Worker ────────────────────────────────────────────────────────────────
	job := worker.NewJob(queries, st, dispatcher, resolver, worker.JobConfig{
		AdminEmail:  cfg.AdminEmail,
		ReplyTo:     cfg.ReplyTo,
		RetreatName: cfg.RetreatName,
		SiteURL:     cfg.SiteURL,
		MaxFailures: cfg.MaxSendFailures,
	}, logger)
	runner := worker.NewRunner(job, queries, worker.RunnerConfig{
		Workers:      cfg.WorkerCount,
		PollInterval: cfg.PollInterval,
		JobTimeout:   cfg.JobTimeout,
		MaxRetries:   cfg.MaxRetries,
	}, logger)

	// ── Webhook processor ─────────────────────────────────────────────────────
	processor := registration.NewProcessor(
		queries,
		st,
		stripeClient,
		resolver,
		runner, // *Runner satisfies worker.Enqueuer
		registration.Config{
			WebhookSecret:      cfg.StripeWebhookSecret,
			DefaultRetreatSlug: cfg.RetreatSlug,
		},
		logger,
	)

	// ── Sequencer (triggered over HTTP by the scheduler) ──────────────────────
	sequencer, err := sequence.New(queries, st, dispatcher, sequence.Config{
		RetreatName:    cfg.RetreatName,
		SiteURL:        cfg.SiteURL,
		ReplyTo:        cfg.ReplyTo,
		UnsubscribeURL: cfg.UnsubscribeURL,
		BatchSize:      cfg.SequenceBatchSize,
		MaxFailures:    cfg.MaxSendFailures,
	}, logger)
	if err != nil {
		return fmt.Errorf("sequence: %w", err)
	}

	// ── HTTP server ───────────────────────────────────────────────────────────
	handler := api.NewServer(
		api.Deps{
			Queries:       queries,
			Leads:         st,
			Stripe:        stripeClient,
			Resolver:      resolver,
			Processor:     processor,
			Deliveries:    dispatcher,
			EmailVerifier: verifier,
			Sequencer:     sequencer,
		},
		api.Config{
			Env:                cfg.Env,
			AllowedOrigins:     cfg.AllowedOrigins,
			CheckoutSuccessURL: cfg.CheckoutSuccessURL,
			CheckoutCancelURL:  cfg.CheckoutCancelURL,
			RetreatName:        cfg.RetreatName,
			RetreatSlug:        cfg.RetreatSlug,
			CronSecret:         cfg.CronSecret,
			SequenceTimeout:    cfg.SequenceRunTimeout,
		},
		logger,
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	// Start the worker pool in a background goroutine. It blocks until ctx is done.
	workerDone := make(chan struct{})
	go func() {
		runner.Start(ctx)
		close(workerDone)
	}()

	// Start the HTTP server in a background goroutine.
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until either a signal arrives or the server dies unexpectedly.
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	}

	// Give in-flight HTTP requests up to 20 seconds to finish.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	// Unsent confirmations left in the queue are picked up by the poller on
	// the next start.
	<-workerDone
	logger.Info("shutdown complete")
	return nil
}
