// Package retry provides the bounded-retry wrapper every remote call is
// built on: a fixed number of attempts with a fixed pause in between.
package retry

import (
	"context"
	"time"

	"github.com/sftpdeck/sftpdeck/internal/constants"
)

// Config holds retry configuration.
type Config struct {
	Attempts  int              // total attempts, including the first (min 1)
	Interval  time.Duration    // fixed pause between attempts
	Retryable func(error) bool // nil means every error is retried
}

// DefaultConfig returns the standard remote-operation retry policy:
// three attempts, one second apart, retrying every failure.
//
// Retrying indiscriminately wastes attempts on errors that cannot heal
// (permission denied, missing path), but distinguishing those reliably
// across SFTP servers is not worth the risk of dropping a transient one.
// Callers with better knowledge can set Retryable.
func DefaultConfig() Config {
	return Config{
		Attempts: constants.RetryMaxAttempts,
		Interval: constants.RetryInterval,
	}
}

func (c Config) normalized() Config {
	if c.Attempts < 1 {
		c.Attempts = 1
	}
	if c.Retryable == nil {
		c.Retryable = func(error) bool { return true }
	}
	return c
}

// Do executes fn up to cfg.Attempts times. Each attempt re-invokes the
// full closure, so fn must be idempotent or safe to repeat. On exhaustion
// the last error is returned unchanged.
func Do(ctx context.Context, cfg Config, fn func() error) error {
	_, err := DoWithResult(ctx, cfg, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// DoWithResult executes fn with retries and returns its result.
func DoWithResult[T any](ctx context.Context, cfg Config, fn func() (T, error)) (T, error) {
	cfg = cfg.normalized()

	var zero T
	var lastErr error

	for attempt := 1; attempt <= cfg.Attempts; attempt++ {
		r, err := fn()
		if err == nil {
			return r, nil
		}

		lastErr = err

		if !cfg.Retryable(err) {
			return zero, err
		}
		if attempt == cfg.Attempts {
			break
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(cfg.Interval):
		}
	}

	return zero, lastErr
}
