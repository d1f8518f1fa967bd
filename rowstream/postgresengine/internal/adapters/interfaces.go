package adapters

import "context"

// DBAdapter defines the interface for database access needed by the row store.
// Acquire checks one connection out of the underlying pool; the caller owns it
// until Release and must not share it across concurrent operations.
type DBAdapter interface {
	Acquire(ctx context.Context) (DBConn, error)
}

// DBConn is one exclusively owned database connection.
type DBConn interface {
	Query(ctx context.Context, query string) (DBRows, error)
	Exec(ctx context.Context, query string) (DBResult, error)
	Begin(ctx context.Context) (DBTx, error)
	Release() error
}

// DBTx is an open transaction on one connection.
type DBTx interface {
	Query(ctx context.Context, query string) (DBRows, error)
	Exec(ctx context.Context, query string) (DBResult, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// DBRows defines the interface for a forward-only, exhaustible query cursor.
type DBRows interface {
	Columns() ([]string, error)
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

// DBResult defines the interface for execution results.
type DBResult interface {
	RowsAffected() (int64, error)
}
