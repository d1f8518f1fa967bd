package rowstream

import (
	"errors"
)

// ErrNilDatabaseHandle signals that a nil database handle was supplied to a
// store constructor.
var ErrNilDatabaseHandle = errors.New("nil database handle supplied")

// ErrConnectionFailed signals that a store connection could not be acquired or
// opened. It is fatal for the current operation and not retried by default.
var ErrConnectionFailed = errors.New("acquiring database connection failed")

// ErrTransientOperational marks a retryable failure class surfaced by the
// store during query execution or row fetching, such as lock contention or
// serialization conflicts. Operations failing with this kind are eligible for
// the retry middleware.
var ErrTransientOperational = errors.New("transient operational database error")

// ErrValidation signals malformed input to an operation, such as a
// non-positive page or batch size. It is never retried.
var ErrValidation = errors.New("invalid input")

// ErrRetriesExhausted wraps the last transient failure after the retry
// middleware has spent its attempt budget.
var ErrRetriesExhausted = errors.New("retries exhausted")

// ErrTransactionFailure signals an error during begin, commit or rollback
// itself. When a rollback was triggered by a failing operation, the original
// operation error is always joined in and never masked.
var ErrTransactionFailure = errors.New("transaction begin/commit/rollback failed")

var ErrQueryingRowsFailed = errors.New("querying rows failed")
var ErrScanningRowFailed = errors.New("scanning database row failed")
var ErrBuildingQueryFailed = errors.New("building query failed")
var ErrExecutingStatementFailed = errors.New("executing statement failed")
