package email

import (
	"context"
	"fmt"
	"log/slog"
)

// fallbackSender wraps two Sender implementations. It calls the primary first;
// if that returns an error it logs the failure and tries the secondary.
// Resend is the default with SES as the safety net; bootstrap.NewSender makes
// the choice.
type fallbackSender struct {
	primary   Sender
	secondary Sender
	logger    *slog.Logger
}

// NewFallbackSender returns a Sender that calls primary and, on failure,
// falls back to secondary. Either argument may be nil: a nil primary goes
// straight to secondary, and a nil secondary returns primary unwrapped.
func NewFallbackSender(primary, secondary Sender, logger *slog.Logger) Sender {
	if secondary == nil && primary != nil {
		return primary
	}
	return &fallbackSender{
		primary:   primary,
		secondary: secondary,
		logger:    logger,
	}
}

// Send tries the primary Sender. If it fails and a secondary is configured,
// it logs the primary error and tries the secondary.
func (f *fallbackSender) Send(ctx context.Context, m Message) (string, error) {
	if f.primary != nil {
		id, err := f.primary.Send(ctx, m)
		if err == nil {
			return id, nil
		}
		// A cancelled context will fail the secondary too.
		if ctx.Err() != nil {
			return "", err
		}
		f.logger.Warn("email: primary sender failed, trying secondary",
			"error", err,
			"subject", m.Subject,
		)
		if f.secondary == nil {
			return "", fmt.Errorf("email: primary failed and no secondary configured: %w", err)
		}
	}

	return f.secondary.Send(ctx, m)
}
