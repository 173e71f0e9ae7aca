// Command sequencer runs one email sequence pass and exits. Schedule it with
// cron (or any job runner); overlapping runs skip on the advisory lock.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nyashahama/retreat-registration-backend/internal/bootstrap"
	"github.com/nyashahama/retreat-registration-backend/internal/config"
	"github.com/nyashahama/retreat-registration-backend/internal/notify"
	"github.com/nyashahama/retreat-registration-backend/internal/sequence"
	"github.com/nyashahama/retreat-registration-backend/internal/store"
)

func main() {
	logger := bootstrap.NewLogger(os.Stdout, os.Getenv("ENV"))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, cfg.SequenceRunTimeout)
	defer cancel()

	pool, queries, err := bootstrap.OpenDB(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer pool.Close()
	st := store.New(pool, queries)

	sender, err := bootstrap.NewSender(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("email: %w", err)
	}
	dispatcher := notify.New(queries, st, sender, cfg.EmailSendTimeout, logger)

	seq, err := sequence.New(queries, st, dispatcher, sequence.Config{
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

	stats, err := seq.Run(ctx, time.Now())
	if err != nil {
		return err
	}
	if stats.Failed > 0 {
		return fmt.Errorf("sequence: %d of %d leads failed", stats.Failed, stats.Leads)
	}
	return nil
}
