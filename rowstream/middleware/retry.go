package middleware

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/prodevtools/lazy-rowstream-go/rowstream"
)

const (
	defaultMaxAttempts  = 3
	defaultDelay        = 100 * time.Millisecond
	defaultJitterFactor = 0.0
)

var (
	// ErrInvalidMaxAttempts is returned when max attempts are not positive.
	ErrInvalidMaxAttempts = errors.New("max attempts must be positive")

	// ErrNegativeDelay is returned when the inter-attempt delay is negative.
	ErrNegativeDelay = errors.New("delay must not be negative")

	// ErrInvalidJitterFactor is returned when the jitter factor is not between 0.0 and 1.0.
	ErrInvalidJitterFactor = errors.New("jitter factor must be between 0.0 and 1.0")

	// ErrNoRetryableKinds is returned when WithRetryableErrors is given no error kinds.
	ErrNoRetryableKinds = errors.New("at least one retryable error kind is required")
)

// retryConfig holds the retry policy applied around one operation.
type retryConfig struct {
	maxAttempts    int
	delay          time.Duration
	jitterFactor   float64
	retryableKinds []error
}

// RetryOption configures retry behavior using the functional options pattern.
type RetryOption func(*retryConfig) error

// WithMaxAttempts sets the total attempt budget, including the first attempt.
func WithMaxAttempts(attempts int) RetryOption {
	return func(config *retryConfig) error {
		if attempts <= 0 {
			return ErrInvalidMaxAttempts
		}

		config.maxAttempts = attempts

		return nil
	}
}

// WithDelay sets the fixed delay between attempts.
func WithDelay(delay time.Duration) RetryOption {
	return func(config *retryConfig) error {
		if delay < 0 {
			return ErrNegativeDelay
		}

		config.delay = delay

		return nil
	}
}

// WithJitterFactor adds randomized jitter to the inter-attempt delay, as a
// fraction of the configured delay, to prevent thundering herd problems.
// Valid range: 0.0 (no jitter) to 1.0 (100% jitter).
func WithJitterFactor(factor float64) RetryOption {
	return func(config *retryConfig) error {
		if factor < 0.0 || factor > 1.0 {
			return ErrInvalidJitterFactor
		}

		config.jitterFactor = factor

		return nil
	}
}

// WithRetryableErrors sets the error kinds eligible for retry, matched with
// errors.Is. Without this option only rowstream.ErrTransientOperational is
// retried.
func WithRetryableErrors(kinds ...error) RetryOption {
	return func(config *retryConfig) error {
		if len(kinds) == 0 {
			return ErrNoRetryableKinds
		}

		config.retryableKinds = kinds

		return nil
	}
}

// Retry wraps the operation so that failures of a retryable kind are
// re-attempted up to the configured budget, sleeping the configured delay
// between attempts. Non-retryable failures propagate immediately. When the
// budget is spent, the last failure is returned wrapped in
// rowstream.ErrRetriesExhausted.
//
// Each retry re-invokes the full operation, including any resource
// acquisition inside it. The operation must be safe to repeat (idempotent or
// self-contained); that contract is the caller's to uphold, not enforced
// here.
func Retry[T any](operation Operation[T], options ...RetryOption) Operation[T] {
	return func(ctx context.Context) (T, error) {
		var empty T

		config := &retryConfig{
			maxAttempts:    defaultMaxAttempts,
			delay:          defaultDelay,
			jitterFactor:   defaultJitterFactor,
			retryableKinds: []error{rowstream.ErrTransientOperational},
		}

		for _, option := range options {
			if optionErr := option(config); optionErr != nil {
				return empty, optionErr
			}
		}

		var lastErr error

		for attempt := 0; attempt < config.maxAttempts; attempt++ {
			if attempt > 0 {
				if waitErr := waitBetweenAttempts(ctx, config); waitErr != nil {
					return empty, waitErr
				}
			}

			result, attemptErr := operation(ctx)
			if attemptErr == nil {
				return result, nil
			}

			if !isRetryable(attemptErr, config.retryableKinds) {
				return empty, attemptErr // permanent failure, fail fast
			}

			lastErr = attemptErr
		}

		return empty, errors.Join(rowstream.ErrRetriesExhausted, lastErr)
	}
}

// Retrying returns Retry as a composable Middleware for use with Chain.
func Retrying[T any](options ...RetryOption) Middleware[T] {
	return func(operation Operation[T]) Operation[T] {
		return Retry(operation, options...)
	}
}

func waitBetweenAttempts(ctx context.Context, config *retryConfig) error {
	delay := config.delay

	if config.jitterFactor > 0 {
		jitter := rand.Float64() * float64(delay) * config.jitterFactor //nolint:gosec //math/rand is sufficient for jitter
		delay += time.Duration(jitter)
	}

	select {
	case <-time.After(delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func isRetryable(err error, kinds []error) bool {
	for _, kind := range kinds {
		if errors.Is(err, kind) {
			return true
		}
	}

	return false
}
