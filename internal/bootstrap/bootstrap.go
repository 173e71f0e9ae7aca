// Package bootstrap builds the dependencies shared by the binaries under
// cmd/: logger, database pool, pricing resolver and email sender.
package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"time"

	_ "github.com/lib/pq" // postgres driver

	"github.com/nyashahama/retreat-registration-backend/internal/config"
	"github.com/nyashahama/retreat-registration-backend/internal/db"
	"github.com/nyashahama/retreat-registration-backend/internal/email"
	"github.com/nyashahama/retreat-registration-backend/internal/pricing"
)

// NewLogger returns JSON logs in production and debug-level text otherwise.
func NewLogger(w io.Writer, env string) *slog.Logger {
	if env == "production" {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

// OpenDB opens the connection pool and prepares all sqlc statements.
// Using db.Prepare (rather than db.New) means every query is validated against
// the database schema at startup; the process refuses to start if the schema
// is out of sync.
func OpenDB(ctx context.Context, dsn string) (*sql.DB, *db.Queries, error) {
	pool, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open: %w", err)
	}

	pool.SetMaxOpenConns(25)
	pool.SetMaxIdleConns(10)
	pool.SetConnMaxLifetime(5 * time.Minute)
	pool.SetConnMaxIdleTime(2 * time.Minute)

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := pool.PingContext(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping: %w", err)
	}

	queries, err := db.Prepare(ctx, pool)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("prepare statements: %w", err)
	}

	return pool, queries, nil
}

// NewResolver loads the pricing file named by PRICING_FILE, or the embedded
// default when it is empty.
func NewResolver(cfg *config.Config) (*pricing.Resolver, error) {
	pcfg, err := pricing.LoadConfig(cfg.PricingFile)
	if err != nil {
		return nil, err
	}
	return pricing.NewResolver(pcfg)
}

// NewSender picks the email provider chain:
//
//   - Resend only, SES only, or Resend with SES fallback, by configuration.
//   - Neither configured → a LogSender that writes emails to the log.
//     config.Load refuses that combination in production.
func NewSender(ctx context.Context, cfg *config.Config, logger *slog.Logger) (email.Sender, error) {
	var primary, secondary email.Sender

	if cfg.ResendAPIKey != "" {
		primary = email.NewResendClient(cfg.ResendAPIKey, cfg.EmailFromAddr, cfg.EmailFromName)
	}
	if cfg.SESEnabled {
		ses, err := email.NewSESSenderFromDefaultConfig(ctx, cfg.AWSRegion, cfg.EmailFromAddr, cfg.EmailFromName)
		if err != nil {
			return nil, fmt.Errorf("ses: %w", err)
		}
		if primary == nil {
			primary = ses
		} else {
			secondary = ses
		}
	}

	switch {
	case primary == nil:
		logger.Warn("email: no provider configured, logging emails instead of sending")
		return email.NewLogSender(logger), nil
	case secondary != nil:
		logger.Info("email: using Resend with SES fallback")
	default:
		logger.Info("email: using a single provider")
	}
	return email.NewFallbackSender(primary, secondary, logger), nil
}
