package reports

import (
	"context"
	"log/slog"
)

// Email is a rendered report ready for dispatch.
type Email struct {
	To       string
	From     string
	Subject  string
	HTMLBody string
}

// Sender dispatches report emails.
type Sender interface {
	Send(ctx context.Context, email Email) error
}

// LogSender logs reports instead of sending them. This is the default
// sender for demo and development deployments without SES credentials.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a logging sender.
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (l *LogSender) Send(ctx context.Context, email Email) error {
	l.logger.Info("email report generated",
		"to", email.To,
		"subject", email.Subject,
		"body_bytes", len(email.HTMLBody))
	return nil
}
