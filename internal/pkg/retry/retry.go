// Package retry wraps calls to remote services and retries them when they fail
// with a transient network error.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"
)

// DefaultTransientPatterns are lower-cased substrings that identify an error
// worth retrying.
var DefaultTransientPatterns = []string{
	"failed to fetch",
	"network",
	"timeout",
	"timed out",
	"connection reset",
	"connection refused",
	"econnreset",
	"etimedout",
	"socket hang up",
	"temporarily unavailable",
	"eof",
	"too many requests",
	"bad gateway",
	"service unavailable",
	"gateway timeout",
}

// Config configures retry behavior.
type Config struct {
	// MaxAttempts is the total number of calls, including the first one
	MaxAttempts int
	// BaseDelay is the wait before the second attempt
	BaseDelay time.Duration
	// MaxDelay caps the exponential delay before jitter is added
	MaxDelay time.Duration
	// Jitter adds up to delay*Jitter of random extra wait (0.0 to 1.0)
	Jitter float64
	// Patterns overrides DefaultTransientPatterns when non-empty
	Patterns []string
	// OnRetry is called before each wait
	OnRetry func(attempt int, err error, delay time.Duration)
}

// DefaultConfig returns the defaults used for provider calls.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    5 * time.Second,
		Jitter:      0.3,
	}
}

// WithExtraPatterns returns a copy of c that also treats extra as transient
func (c Config) WithExtraPatterns(extra ...string) Config {
	base := c.Patterns
	if len(base) == 0 {
		base = DefaultTransientPatterns
	}
	patterns := make([]string, 0, len(base)+len(extra))
	patterns = append(patterns, base...)
	for _, p := range extra {
		patterns = append(patterns, strings.ToLower(p))
	}
	c.Patterns = patterns
	return c
}

func (c Config) normalized() Config {
	if c.MaxAttempts < 1 {
		c.MaxAttempts = 1
	}
	if c.BaseDelay < 0 {
		c.BaseDelay = 0
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = c.BaseDelay
	}
	if c.Jitter < 0 {
		c.Jitter = 0
	}
	if c.Jitter > 1 {
		c.Jitter = 1
	}
	return c
}

// ExhaustedError is returned when every attempt failed with a transient error.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("giving up after %d attempts: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Last
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err so that Do returns it immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsTransient reports whether err matches one of the patterns. Cancellation
// and errors marked Permanent are never transient. A deadline error is judged
// by its message, so a per-request client timeout still counts; DoValue stops
// on its own once the caller's context is done.
func IsTransient(err error, patterns []string) bool {
	if err == nil {
		return false
	}
	var perm *permanentError
	if errors.As(err, &perm) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if len(patterns) == 0 {
		patterns = DefaultTransientPatterns
	}
	msg := strings.ToLower(err.Error())
	for _, p := range patterns {
		if p != "" && strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// Backoff returns the wait before attempt+1, with attempt starting at 1.
func Backoff(cfg Config, attempt int) time.Duration {
	cfg = cfg.normalized()
	if attempt < 1 {
		attempt = 1
	}
	delay := float64(cfg.BaseDelay) * math.Pow(2, float64(attempt-1))
	if delay > float64(cfg.MaxDelay) {
		delay = float64(cfg.MaxDelay)
	}
	if cfg.Jitter > 0 {
		delay += delay * cfg.Jitter * randFloat()
	}
	return time.Duration(delay)
}

var (
	rngMu sync.Mutex
	rng   = rand.New(rand.NewSource(time.Now().UnixNano()))
)

func randFloat() float64 {
	rngMu.Lock()
	defer rngMu.Unlock()
	return rng.Float64()
}

// Do calls fn until it succeeds, fails with a non-transient error, runs out of
// attempts or ctx is done.
func Do(ctx context.Context, cfg Config, fn func(ctx context.Context) error) error {
	_, err := DoValue(ctx, cfg, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// DoValue is Do for calls that return a value.
func DoValue[T any](ctx context.Context, cfg Config, fn func(ctx context.Context) (T, error)) (T, error) {
	cfg = cfg.normalized()
	var zero T

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		if ctx.Err() != nil {
			return zero, err
		}

		if !IsTransient(err, cfg.Patterns) {
			var perm *permanentError
			if errors.As(err, &perm) {
				return zero, perm.err
			}
			return zero, err
		}
		if attempt >= cfg.MaxAttempts {
			return zero, &ExhaustedError{Attempts: attempt, Last: err}
		}

		delay := Backoff(cfg, attempt)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}
}
