package email

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/formatrack/internal/pkg/metrics"
	"github.com/yigit/formatrack/internal/pkg/retry"
)

// RetryingSender retries transient provider failures
type RetryingSender struct {
	next   Sender
	cfg    retry.Config
	logger zerolog.Logger
}

// NewRetryingSender wraps next with the retry helper
func NewRetryingSender(next Sender, cfg retry.Config, logger zerolog.Logger) *RetryingSender {
	return &RetryingSender{next: next, cfg: cfg, logger: logger}
}

// Send calls the wrapped sender through retry.Do
func (s *RetryingSender) Send(ctx context.Context, msg Message) error {
	cfg := s.cfg.WithExtraPatterns("internal server error")
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		metrics.RecordRetry("email.send")
		s.logger.Warn().
			Err(err).
			Int("attempt", attempt).
			Dur("delay", delay).
			Str("to", msg.To.Email).
			Msg("Retrying email delivery")
	}
	return retry.Do(ctx, cfg, func(ctx context.Context) error {
		return s.next.Send(ctx, msg)
	})
}
