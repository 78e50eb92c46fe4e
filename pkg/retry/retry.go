// Package retry re-runs read operations with a backoff between attempts.
// It is used for loads only; store writes are never retried.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// RetryableFunc defines a function that can be retried
type RetryableFunc func(ctx context.Context) error

// Config holds the configuration for retrying operations
type Config struct {
	MaxAttempts     int
	BackoffStrategy BackoffStrategy
	Logger          zerolog.Logger
	// RetryableErrors limits retries to these errors. Empty means every error is retried.
	RetryableErrors []error
}

// Do runs fn until it succeeds, the attempts run out, a non-retryable error occurs or
// ctx is done.
func Do(ctx context.Context, fn RetryableFunc, cfg Config) error {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.BackoffStrategy == nil {
		cfg.BackoffStrategy = &ConstantBackoff{}
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("retry cancelled: %w", errors.Join(err, lastErr))
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if attempt == cfg.MaxAttempts {
			break
		}
		if !isRetryable(err, cfg.RetryableErrors) {
			cfg.Logger.Warn().Err(err).Int("attempt", attempt).Msg("non-retryable error, giving up")
			return err
		}

		backoff := cfg.BackoffStrategy.NextBackoff(attempt)
		cfg.Logger.Info().
			Err(err).
			Int("attempt", attempt).
			Int("max_attempts", cfg.MaxAttempts).
			Dur("backoff", backoff).
			Msg("retrying after error")

		timer := time.NewTimer(backoff)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("retry cancelled during backoff: %w", errors.Join(ctx.Err(), lastErr))
		}
	}

	return fmt.Errorf("all %d attempts failed: %w", cfg.MaxAttempts, lastErr)
}

func isRetryable(err error, retryable []error) bool {
	if len(retryable) == 0 {
		return true
	}
	for _, r := range retryable {
		if errors.Is(err, r) {
			return true
		}
	}
	return false
}
