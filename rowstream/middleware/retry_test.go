package middleware_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prodevtools/lazy-rowstream-go/rowstream"
	"github.com/prodevtools/lazy-rowstream-go/rowstream/middleware"
)

func transientErr(msg string) error {
	return errors.Join(rowstream.ErrTransientOperational, errors.New(msg))
}

func Test_Retry_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	operation := middleware.Retry(func(context.Context) (int, error) {
		calls++
		return 42, nil
	}, middleware.WithDelay(0))

	result, err := operation(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 42, result)
	assert.Equal(t, 1, calls)
}

func Test_Retry_RecoversFromTransientFailures(t *testing.T) {
	calls := 0
	operation := middleware.Retry(func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", transientErr("connection reset")
		}
		return "ok", nil
	}, middleware.WithDelay(0))

	result, err := operation(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 3, calls, "two transient failures consume two retries")
}

func Test_Retry_ExhaustsAttemptBudget(t *testing.T) {
	calls := 0
	cause := transientErr("deadlock detected")
	operation := middleware.Retry(func(context.Context) (int, error) {
		calls++
		return 0, cause
	}, middleware.WithDelay(0))

	_, err := operation(context.Background())

	assert.Equal(t, 3, calls, "default budget is three attempts in total")
	assert.ErrorIs(t, err, rowstream.ErrRetriesExhausted)
	assert.ErrorIs(t, err, rowstream.ErrTransientOperational, "the last failure stays inspectable")
}

func Test_Retry_PermanentFailureFailsFast(t *testing.T) {
	calls := 0
	permanentErr := errors.New("syntax error at or near")
	operation := middleware.Retry(func(context.Context) (int, error) {
		calls++
		return 0, permanentErr
	}, middleware.WithDelay(0))

	_, err := operation(context.Background())

	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, permanentErr)
	assert.NotErrorIs(t, err, rowstream.ErrRetriesExhausted)
}

func Test_Retry_CustomRetryableKinds(t *testing.T) {
	calls := 0
	flakyErr := errors.New("flaky downstream")
	operation := middleware.Retry(func(context.Context) (int, error) {
		calls++
		if calls == 1 {
			return 0, flakyErr
		}
		return 7, nil
	}, middleware.WithDelay(0), middleware.WithRetryableErrors(flakyErr))

	result, err := operation(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 7, result)
	assert.Equal(t, 2, calls)
}

func Test_Retry_HonorsMaxAttempts(t *testing.T) {
	calls := 0
	operation := middleware.Retry(func(context.Context) (int, error) {
		calls++
		return 0, transientErr("lock not available")
	}, middleware.WithDelay(0), middleware.WithMaxAttempts(5))

	_, err := operation(context.Background())

	assert.Equal(t, 5, calls)
	assert.ErrorIs(t, err, rowstream.ErrRetriesExhausted)
}

func Test_Retry_CanceledContextStopsWaiting(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	operation := middleware.Retry(func(context.Context) (int, error) {
		calls++
		cancel()
		return 0, transientErr("connection reset")
	}, middleware.WithDelay(time.Hour))

	_, err := operation(ctx)

	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, context.Canceled)
}

func Test_Retry_InvalidOptions(t *testing.T) {
	testCases := []struct {
		name        string
		option      middleware.RetryOption
		expectedErr error
	}{
		{
			name:        "zero max attempts",
			option:      middleware.WithMaxAttempts(0),
			expectedErr: middleware.ErrInvalidMaxAttempts,
		},
		{
			name:        "negative max attempts",
			option:      middleware.WithMaxAttempts(-1),
			expectedErr: middleware.ErrInvalidMaxAttempts,
		},
		{
			name:        "negative delay",
			option:      middleware.WithDelay(-time.Second),
			expectedErr: middleware.ErrNegativeDelay,
		},
		{
			name:        "jitter factor above one",
			option:      middleware.WithJitterFactor(1.5),
			expectedErr: middleware.ErrInvalidJitterFactor,
		},
		{
			name:        "negative jitter factor",
			option:      middleware.WithJitterFactor(-0.1),
			expectedErr: middleware.ErrInvalidJitterFactor,
		},
		{
			name:        "empty retryable kinds",
			option:      middleware.WithRetryableErrors(),
			expectedErr: middleware.ErrNoRetryableKinds,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			operation := middleware.Retry(func(context.Context) (int, error) {
				t.Fatal("the operation must not run with invalid options")
				return 0, nil
			}, testCase.option)

			_, err := operation(context.Background())

			assert.ErrorIs(t, err, testCase.expectedErr)
		})
	}
}

func Test_Retrying_ComposesWithChain(t *testing.T) {
	calls := 0
	operation := middleware.Chain(
		func(context.Context) (int, error) {
			calls++
			if calls == 1 {
				return 0, transientErr("serialization failure")
			}
			return 99, nil
		},
		middleware.Retrying[int](middleware.WithDelay(0)),
	)

	result, err := operation(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 99, result)
	assert.Equal(t, 2, calls)
}
