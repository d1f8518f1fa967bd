// Package postgresengine provides the Postgres-backed RowStore: bounded page
// fetching, lazy pagination, single-cursor batch streaming, scoped single
// calls, and transactional execution. It supports pgx (native and pool),
// database/sql, and sqlx through internal adapters. Every operation scopes one
// connection to exactly one logical operation and releases it on all paths.
package postgresengine
