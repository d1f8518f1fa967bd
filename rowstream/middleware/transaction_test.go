package middleware_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prodevtools/lazy-rowstream-go/rowstream"
	"github.com/prodevtools/lazy-rowstream-go/rowstream/middleware"
)

// fakeHandle stands in for a transaction-scoped query handle.
type fakeHandle struct {
	statements []string
}

// fakeTransactor records begin/commit/rollback transitions around the handle
// it lends out.
type fakeTransactor struct {
	began      bool
	committed  bool
	rolledBack bool
	handle     *fakeHandle
}

func (f *fakeTransactor) WithinTransaction(ctx context.Context, operation func(ctx context.Context, q *fakeHandle) error) error {
	f.began = true
	f.handle = &fakeHandle{}

	if opErr := operation(ctx, f.handle); opErr != nil {
		f.rolledBack = true
		return opErr
	}

	f.committed = true

	return nil
}

func Test_InTransaction_CommitsAndReturnsResult(t *testing.T) {
	transactor := &fakeTransactor{}

	operation := middleware.InTransaction(transactor, func(_ context.Context, q *fakeHandle) (int, error) {
		q.statements = append(q.statements, "UPDATE user_data SET age = age + 1")
		return 3, nil
	})

	affected, err := operation(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 3, affected)
	assert.True(t, transactor.began)
	assert.True(t, transactor.committed)
	assert.False(t, transactor.rolledBack)
	assert.Len(t, transactor.handle.statements, 1)
}

func Test_InTransaction_RollsBackOnOperationError(t *testing.T) {
	transactor := &fakeTransactor{}
	opErr := errors.New("constraint violated")

	operation := middleware.InTransaction(transactor, func(context.Context, *fakeHandle) (int, error) {
		return 0, opErr
	})

	result, err := operation(context.Background())

	assert.ErrorIs(t, err, opErr)
	assert.Zero(t, result)
	assert.True(t, transactor.rolledBack)
	assert.False(t, transactor.committed)
}

func Test_InTransaction_ComposesWithRetrying(t *testing.T) {
	transactor := &fakeTransactor{}

	attempts := 0
	operation := middleware.Chain(
		middleware.InTransaction(transactor, func(context.Context, *fakeHandle) (string, error) {
			attempts++
			if attempts == 1 {
				return "", errors.Join(rowstream.ErrTransientOperational, errors.New("serialization failure"))
			}
			return "done", nil
		}),
		middleware.Retrying[string](middleware.WithDelay(0)),
	)

	result, err := operation(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "done", result)
	assert.Equal(t, 2, attempts, "each retry runs in a fresh transaction")
	assert.True(t, transactor.committed)
}
