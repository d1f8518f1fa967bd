package postgresengine

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/prodevtools/lazy-rowstream-go/rowstream"
)

// transientPgCodes are the Postgres error classes expected to resolve on an
// unchanged retry: serialization failure, deadlock, lock contention, pool
// exhaustion, and a database still starting up.
var transientPgCodes = map[string]struct{}{
	"40001": {}, // serialization_failure
	"40P01": {}, // deadlock_detected
	"55P03": {}, // lock_not_available
	"53300": {}, // too_many_connections
	"57P03": {}, // cannot_connect_now
}

// classifyStoreError joins the operation sentinel with the driver error, and
// additionally marks the result as rowstream.ErrTransientOperational when the
// driver error belongs to a retryable class. Context cancellation and
// deadlines are never marked transient; retrying timeouts during overload
// creates cascade failures.
func classifyStoreError(sentinel error, cause error) error {
	if isTransientStoreError(cause) {
		return errors.Join(sentinel, rowstream.ErrTransientOperational, cause)
	}

	return errors.Join(sentinel, cause)
}

func isTransientStoreError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		_, transient := transientPgCodes[pgErr.Code]
		return transient
	}

	return errors.Is(err, rowstream.ErrTransientOperational)
}
