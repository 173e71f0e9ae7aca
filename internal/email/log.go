package email

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

var _ Sender = (*LogSender)(nil)

// LogSender is a Sender for local development. It logs the message instead of
// delivering it and returns a random message id.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender returns a LogSender writing to logger.
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (l *LogSender) Send(ctx context.Context, m Message) (string, error) {
	if m.To == "" {
		return "", ErrNoRecipient
	}
	id := "dev_" + uuid.NewString()
	l.logger.InfoContext(ctx, "email that would be sent",
		"message_id", id,
		"to", m.To,
		"subject", m.Subject,
		"reply_to", m.ReplyTo,
		"text", m.Text,
	)
	return id, nil
}
