package middleware

import (
	"context"
)

// Transactor runs an operation inside begin/commit/rollback semantics on one
// connection, handing the operation a transaction-scoped handle of type Q.
// The postgres engine's RowStore satisfies Transactor with its Querier handle.
type Transactor[Q any] interface {
	WithinTransaction(ctx context.Context, operation func(ctx context.Context, q Q) error) error
}

// TxOperation is a mutating operation executing against a transaction handle.
type TxOperation[Q, T any] func(ctx context.Context, q Q) (T, error)

// InTransaction adapts a transactional operation to the plain Operation shape
// so it can be composed with the other middlewares, e.g.
// Retry(InTransaction(store, op)). The transactor commits on success, rolls
// back on any error raised by the operation, re-raises that error unchanged,
// and releases the connection on every path.
func InTransaction[Q, T any](transactor Transactor[Q], operation TxOperation[Q, T]) Operation[T] {
	return func(ctx context.Context) (T, error) {
		var result T

		txErr := transactor.WithinTransaction(ctx, func(ctx context.Context, q Q) error {
			value, opErr := operation(ctx, q)
			if opErr != nil {
				return opErr
			}

			result = value

			return nil
		})
		if txErr != nil {
			var empty T
			return empty, txErr
		}

		return result, nil
	}
}
