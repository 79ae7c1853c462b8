package email

import (
	"context"

	"github.com/rs/zerolog"
)

// LogSender writes emails to the log instead of sending them (development)
type LogSender struct {
	logger zerolog.Logger
}

// NewLogSender creates a log-only sender
func NewLogSender(logger zerolog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// Send logs msg
func (s *LogSender) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	s.logger.Warn().
		Str("toEmail", msg.To.Email).
		Str("subject", msg.Subject).
		Str("text", msg.Text).
		Msg("Email provider is 'log' - email not sent")
	return nil
}
