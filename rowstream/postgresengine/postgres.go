package postgresengine

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"

	"github.com/prodevtools/lazy-rowstream-go/rowstream"
	"github.com/prodevtools/lazy-rowstream-go/rowstream/postgresengine/internal/adapters"
)

const (
	logMsgBuildSelectQueryFailed = "failed to build select query"
	logMsgAcquireConnFailed      = "failed to acquire database connection"
	logMsgReleaseConnFailed      = "failed to release database connection"
	logMsgDBQueryFailed          = "database query execution failed"
	logMsgDBExecFailed           = "database statement execution failed"
	logMsgCloseRowsFailed        = "failed to close database rows"
	logMsgScanRowFailed          = "failed to scan database row"
	logMsgReadColumnsFailed      = "failed to read result columns"
	logMsgRowsAffectedFailed     = "failed to get rows affected count"
	logMsgBeginTxFailed          = "failed to begin transaction"
	logMsgCommitTxFailed         = "failed to commit transaction"
	logMsgRollbackTxFailed       = "failed to roll back transaction"
	logMsgQueryCompleted         = "query completed"
	logMsgStatementCompleted     = "statement executed"
	logMsgTxCommitted            = "transaction committed"
	logMsgTxRolledBack           = "transaction rolled back"
	logMsgSQLExecuted            = "executed sql for: "
	logMsgOperation              = "rowstore operation: "
	logAttrError                 = "error"
	logAttrQuery                 = "query"
	logAttrRowCount              = "row_count"
	logAttrRowsAffected          = "rows_affected"
	logAttrDurationMS            = "duration_ms"
	logActionQuery               = "query"
	logActionExec                = "exec"
)

type (
	sqlQueryString    = string
	rowsAffectedInt64 = int64
	queryDuration     = time.Duration
)

// Logger interface for SQL query logging, operational messages, warnings, and
// error reporting.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Querier is the handle a transactional operation receives. All queries and
// statements issued through it run on the single connection owned by the
// enclosing transaction.
type Querier interface {
	Query(ctx context.Context, sqlQuery string) (rowstream.Page, error)
	Exec(ctx context.Context, sqlStatement string) (int64, error)
}

// executor is satisfied by both a checked-out connection and an open
// transaction.
type executor interface {
	Query(ctx context.Context, query string) (adapters.DBRows, error)
	Exec(ctx context.Context, query string) (adapters.DBResult, error)
}

// RowStore streams and mutates rows of a Postgres table through a database
// adapter, with optional logging.
type RowStore struct {
	db     adapters.DBAdapter
	logger Logger
}

// NewRowStoreFromPGXPool creates a new RowStore using a pgx pool with optional configuration.
func NewRowStoreFromPGXPool(db *pgxpool.Pool, options ...Option) (RowStore, error) {
	if db == nil {
		return RowStore{}, rowstream.ErrNilDatabaseHandle
	}

	return newRowStore(adapters.NewPGXAdapter(db), options...)
}

// NewRowStoreFromSQLDB creates a new RowStore using a sql.DB with optional configuration.
func NewRowStoreFromSQLDB(db *sql.DB, options ...Option) (RowStore, error) {
	if db == nil {
		return RowStore{}, rowstream.ErrNilDatabaseHandle
	}

	return newRowStore(adapters.NewSQLAdapter(db), options...)
}

// NewRowStoreFromSQLX creates a new RowStore using a sqlx.DB with optional configuration.
func NewRowStoreFromSQLX(db *sqlx.DB, options ...Option) (RowStore, error) {
	if db == nil {
		return RowStore{}, rowstream.ErrNilDatabaseHandle
	}

	return newRowStore(adapters.NewSQLXAdapter(db), options...)
}

func newRowStore(db adapters.DBAdapter, options ...Option) (RowStore, error) {
	store := RowStore{db: db}

	for _, option := range options {
		if err := option(&store); err != nil {
			return RowStore{}, err
		}
	}

	return store, nil
}

// Fetch runs the selection on one scoped connection and materializes the full
// result. The connection is acquired for this call only and released on every
// exit path.
func (s RowStore) Fetch(ctx context.Context, selection rowstream.Selection) (rowstream.Page, error) {
	sqlQuery, buildErr := selection.ToSQL()
	if buildErr != nil {
		s.logError(logMsgBuildSelectQueryFailed, buildErr)
		return nil, buildErr
	}

	return s.fetchSQL(ctx, sqlQuery)
}

// FetchPage runs one bounded LIMIT/OFFSET query and returns the finite ordered
// page of rows at the given offset. Like Fetch, it scopes one connection to
// this single call.
func (s RowStore) FetchPage(
	ctx context.Context,
	selection rowstream.Selection,
	pageSize uint,
	offset uint,
) (rowstream.Page, error) {

	if pageSize == 0 {
		return nil, errors.Join(rowstream.ErrValidation, errors.New("page size must be positive"))
	}

	sqlQuery, buildErr := selection.ToSQLWithRange(pageSize, offset)
	if buildErr != nil {
		s.logError(logMsgBuildSelectQueryFailed, buildErr)
		return nil, buildErr
	}

	return s.fetchSQL(ctx, sqlQuery)
}

// StreamPages returns a lazy sequence of pages produced by repeatedly fetching
// bounded pages until an empty one is returned. Each page fetch opens and
// closes its own connection scope, so pagination tolerates arbitrary delay
// between pages without holding a connection. The trade-off against
// StreamBatches: more queries and OFFSET re-scans, but no long-lived resource.
func (s RowStore) StreamPages(
	ctx context.Context,
	selection rowstream.Selection,
	pageSize uint,
) (*rowstream.PageStream, error) {

	return rowstream.NewPageStream(pageSize, func(offset uint) (rowstream.Page, error) {
		return s.FetchPage(ctx, selection, pageSize, offset)
	})
}

// StreamBatches returns a lazy sequence of fixed-size batches chunked from one
// open cursor. Exactly one connection is held for the whole traversal and is
// released when the stream is exhausted, fails, or is closed early. The
// trade-off against StreamPages: a single query and no OFFSET re-scan cost,
// but a long-lived connection.
func (s RowStore) StreamBatches(
	ctx context.Context,
	selection rowstream.Selection,
	batchSize int,
) (*rowstream.BatchStream, error) {

	if batchSize <= 0 {
		return nil, errors.Join(rowstream.ErrValidation, errors.New("batch size must be positive"))
	}

	cursor, openErr := s.StreamRows(ctx, selection)
	if openErr != nil {
		return nil, openErr
	}

	return rowstream.ChunkRows(cursor, batchSize)
}

// StreamRows opens one connection and one cursor and returns the rows as a
// lazy, forward-only sequence. The consumer must drive the iterator to
// exhaustion or call Close; both release the connection.
func (s RowStore) StreamRows(ctx context.Context, selection rowstream.Selection) (rowstream.RowIterator, error) {
	sqlQuery, buildErr := selection.ToSQL()
	if buildErr != nil {
		s.logError(logMsgBuildSelectQueryFailed, buildErr)
		return nil, buildErr
	}

	conn, acquireErr := s.db.Acquire(ctx)
	if acquireErr != nil {
		s.logError(logMsgAcquireConnFailed, acquireErr)
		return nil, errors.Join(rowstream.ErrConnectionFailed, acquireErr)
	}

	rows, _, queryErr := s.executeQuery(ctx, conn, sqlQuery)
	if queryErr != nil {
		s.releaseConnection(conn)
		return nil, queryErr
	}

	return &cursorRows{store: s, rows: rows, conn: conn}, nil
}

// Exec runs one mutating SQL statement on a scoped connection, outside any
// transaction, and returns the number of affected rows.
func (s RowStore) Exec(ctx context.Context, sqlStatement string) (int64, error) {
	var affected rowsAffectedInt64

	err := s.withConnection(ctx, func(conn adapters.DBConn) error {
		count, execErr := s.executeStatement(ctx, conn, sqlStatement)
		if execErr != nil {
			return execErr
		}

		affected = count

		return nil
	})

	return affected, err
}

// WithinTransaction runs the operation inside begin/commit/rollback semantics
// on one scoped connection. On success the transaction commits; any error
// from the operation triggers a rollback and is re-raised unchanged. A failure
// of commit or rollback itself surfaces as rowstream.ErrTransactionFailure,
// joined with the original operation error when one triggered the rollback.
// The connection is released in all cases.
func (s RowStore) WithinTransaction(
	ctx context.Context,
	operation func(ctx context.Context, q Querier) error,
) error {

	return s.withConnection(ctx, func(conn adapters.DBConn) error {
		tx, beginErr := conn.Begin(ctx)
		if beginErr != nil {
			s.logError(logMsgBeginTxFailed, beginErr)
			return errors.Join(rowstream.ErrTransactionFailure, beginErr)
		}

		opErr := operation(ctx, &txQuerier{store: s, tx: tx})
		if opErr != nil {
			if rollbackErr := tx.Rollback(ctx); rollbackErr != nil {
				s.logError(logMsgRollbackTxFailed, rollbackErr)
				return errors.Join(opErr, rowstream.ErrTransactionFailure, rollbackErr)
			}

			s.logOperation(logMsgTxRolledBack, logAttrError, opErr.Error())

			return opErr
		}

		if commitErr := tx.Commit(ctx); commitErr != nil {
			s.logError(logMsgCommitTxFailed, commitErr)
			return errors.Join(rowstream.ErrTransactionFailure, commitErr)
		}

		s.logOperation(logMsgTxCommitted)

		return nil
	})
}

// txQuerier routes queries and statements through the open transaction.
type txQuerier struct {
	store RowStore
	tx    adapters.DBTx
}

func (q *txQuerier) Query(ctx context.Context, sqlQuery string) (rowstream.Page, error) {
	return q.store.queryOn(ctx, q.tx, sqlQuery)
}

func (q *txQuerier) Exec(ctx context.Context, sqlStatement string) (int64, error) {
	return q.store.executeStatement(ctx, q.tx, sqlStatement)
}

// fetchSQL runs one read query on a scoped connection and collects the result.
func (s RowStore) fetchSQL(ctx context.Context, sqlQuery string) (rowstream.Page, error) {
	var page rowstream.Page

	err := s.withConnection(ctx, func(conn adapters.DBConn) error {
		collected, queryErr := s.queryOn(ctx, conn, sqlQuery)
		if queryErr != nil {
			return queryErr
		}

		page = collected

		return nil
	})
	if err != nil {
		return nil, err
	}

	return page, nil
}

// queryOn executes one read query on the given executor and materializes all rows.
func (s RowStore) queryOn(ctx context.Context, on executor, sqlQuery string) (rowstream.Page, error) {
	rows, duration, queryErr := s.executeQuery(ctx, on, sqlQuery)
	if queryErr != nil {
		return nil, queryErr
	}
	defer s.closeRows(rows)

	page, collectErr := s.collectRows(rows)
	if collectErr != nil {
		return nil, collectErr
	}

	s.logOperation(
		logMsgQueryCompleted,
		logAttrRowCount, len(page),
		logAttrDurationMS, s.durationToMilliseconds(duration))

	return page, nil
}

// executeQuery executes the SQL query and returns rows with timing information.
func (s RowStore) executeQuery(ctx context.Context, on executor, sqlQuery string) (
	adapters.DBRows,
	queryDuration,
	error,
) {

	start := time.Now()
	rows, queryErr := on.Query(ctx, sqlQuery)
	duration := time.Since(start)
	s.logQueryWithDuration(sqlQuery, logActionQuery, duration)

	if queryErr != nil {
		s.logErrorWithQuery(logMsgDBQueryFailed, queryErr, sqlQuery)
		return nil, duration, classifyStoreError(rowstream.ErrQueryingRowsFailed, queryErr)
	}

	return rows, duration, nil
}

// executeStatement executes one mutating statement and returns rows affected.
func (s RowStore) executeStatement(ctx context.Context, on executor, sqlStatement string) (
	rowsAffectedInt64,
	error,
) {

	start := time.Now()
	result, execErr := on.Exec(ctx, sqlStatement)
	duration := time.Since(start)
	s.logQueryWithDuration(sqlStatement, logActionExec, duration)

	if execErr != nil {
		s.logErrorWithQuery(logMsgDBExecFailed, execErr, sqlStatement)
		return 0, classifyStoreError(rowstream.ErrExecutingStatementFailed, execErr)
	}

	affected, rowsAffectedErr := result.RowsAffected()
	if rowsAffectedErr != nil {
		s.logError(logMsgRowsAffectedFailed, rowsAffectedErr)
		return 0, errors.Join(rowstream.ErrExecutingStatementFailed, rowsAffectedErr)
	}

	s.logOperation(
		logMsgStatementCompleted,
		logAttrRowsAffected, affected,
		logAttrDurationMS, s.durationToMilliseconds(duration))

	return affected, nil
}

// collectRows drains the cursor into a finite ordered page.
func (s RowStore) collectRows(rows adapters.DBRows) (rowstream.Page, error) {
	columns, columnsErr := rows.Columns()
	if columnsErr != nil {
		s.logError(logMsgReadColumnsFailed, columnsErr)
		return nil, errors.Join(rowstream.ErrScanningRowFailed, columnsErr)
	}

	page := make(rowstream.Page, 0)

	for rows.Next() {
		row, scanErr := s.scanRow(rows, columns)
		if scanErr != nil {
			return nil, scanErr
		}

		page = append(page, row)
	}

	if iterationErr := rows.Err(); iterationErr != nil {
		s.logError(logMsgScanRowFailed, iterationErr)
		return nil, classifyStoreError(rowstream.ErrQueryingRowsFailed, iterationErr)
	}

	return page, nil
}

// scanRow scans the current cursor position into an immutable Row.
func (s RowStore) scanRow(rows adapters.DBRows, columns []string) (rowstream.Row, error) {
	values := make([]any, len(columns))
	pointers := make([]any, len(columns))
	for i := range values {
		pointers[i] = &values[i]
	}

	if scanErr := rows.Scan(pointers...); scanErr != nil {
		s.logError(logMsgScanRowFailed, scanErr)
		return rowstream.Row{}, errors.Join(rowstream.ErrScanningRowFailed, scanErr)
	}

	row, buildErr := rowstream.BuildRow(columns, values)
	if buildErr != nil {
		return rowstream.Row{}, buildErr
	}

	return row, nil
}

// withConnection acquires one connection for the duration of the operation and
// guarantees its release on every exit path.
func (s RowStore) withConnection(ctx context.Context, operation func(conn adapters.DBConn) error) error {
	conn, acquireErr := s.db.Acquire(ctx)
	if acquireErr != nil {
		s.logError(logMsgAcquireConnFailed, acquireErr)
		return errors.Join(rowstream.ErrConnectionFailed, acquireErr)
	}
	defer s.releaseConnection(conn)

	return operation(conn)
}

// releaseConnection returns a connection to the pool and logs release failures.
func (s RowStore) releaseConnection(conn adapters.DBConn) {
	if releaseErr := conn.Release(); releaseErr != nil {
		if s.logger != nil {
			s.logger.Warn(logMsgReleaseConnFailed, logAttrError, releaseErr.Error())
		}
	}
}

// closeRows safely closes database rows and logs any errors.
func (s RowStore) closeRows(rows adapters.DBRows) {
	if closeErr := rows.Close(); closeErr != nil {
		if s.logger != nil {
			s.logger.Warn(logMsgCloseRowsFailed, logAttrError, closeErr.Error())
		}
	}
}

// logQueryWithDuration logs SQL with execution time at debug level if the logger is configured.
func (s RowStore) logQueryWithDuration(sqlQuery sqlQueryString, action string, duration queryDuration) {
	if s.logger != nil {
		s.logger.Debug(logMsgSQLExecuted+action, logAttrDurationMS, s.durationToMilliseconds(duration), logAttrQuery, sqlQuery)
	}
}

// logOperation logs operational information at info level if the logger is configured.
func (s RowStore) logOperation(action string, args ...any) {
	if s.logger != nil {
		s.logger.Info(logMsgOperation+action, args...)
	}
}

func (s RowStore) logError(msg string, err error) {
	if s.logger != nil {
		s.logger.Error(msg, logAttrError, err.Error())
	}
}

func (s RowStore) logErrorWithQuery(msg string, err error, sqlQuery sqlQueryString) {
	if s.logger != nil {
		s.logger.Error(msg, logAttrError, err.Error(), logAttrQuery, sqlQuery)
	}
}

// durationToMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func (s RowStore) durationToMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}
