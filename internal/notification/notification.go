// Package notification delivers out-of-band messages. The only caller
// today is the password reset flow.
package notification

import (
	"context"
	"log/slog"
)

// Message describes a notification payload.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Notifier delivers notifications to downstream systems. Send may fail;
// callers must handle the error without crashing the request.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LogNotifier writes notifications to the structured logger. It stands
// in for SMTP in development and tests.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier constructs a logging notifier stub.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LogNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification", "to", message.To, "subject", message.Subject, "body", message.Body)
	return nil
}
