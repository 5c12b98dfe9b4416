package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SpideeCode/uberPharmaV2/pkg/logger"
)

// RetryableFunc is the operation being retried
type RetryableFunc func() error

// RetryConfig holds the configuration for retrying operations
type RetryConfig struct {
	MaxAttempts     int
	BackoffStrategy BackoffStrategy
	Logger          logger.Logger
	RetryableErrors []error // errors worth retrying; empty means retry everything
}

// Retry runs fn until it succeeds, runs out of attempts, or hits a
// non-retryable error
func Retry(ctx context.Context, fn RetryableFunc, cfg *RetryConfig) error {
	var lastErr error

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return fmt.Errorf("retry cancelled by context: %w", ctx.Err())
		default:
		}

		err := fn()

		if err == nil {
			return nil
		}

		lastErr = err

		if attempt == cfg.MaxAttempts {
			break
		}

		if !isRetryable(err, cfg.RetryableErrors) {
			cfg.Logger.Warn("Non-retryable error encountered, giving up",
				"error", err,
				"attempt", attempt)
			return err
		}

		backoff := cfg.BackoffStrategy.NextBackoff(attempt)

		cfg.Logger.Info("Retrying after error",
			"error", err,
			"attempt", attempt,
			"maxAttempts", cfg.MaxAttempts,
			"backoff", backoff)

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return fmt.Errorf("retry cancelled by context during backoff: %w", ctx.Err())
		}
	}

	return fmt.Errorf("all %d retry attempts failed, last error: %w", cfg.MaxAttempts, lastErr)
}

func isRetryable(err error, retryableErrors []error) bool {
	if len(retryableErrors) == 0 {
		return true
	}

	for _, retryableErr := range retryableErrors {
		if errors.Is(err, retryableErr) {
			return true
		}
	}

	return false
}

// DiscardFunc decides what happens to an operation once retries are exhausted
type DiscardFunc func(err error) error

// RetryWithDiscard runs fn with retries and hands the final error to discard
// when every attempt failed
func RetryWithDiscard(ctx context.Context, fn RetryableFunc, cfg *RetryConfig, discard DiscardFunc) error {
	err := Retry(ctx, fn, cfg)

	if err == nil {
		return nil
	}

	return discard(err)
}
