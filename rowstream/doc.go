// Package rowstream provides the core types for lazy, pull-based streaming of
// tabular rows from a relational store: rows, pages, batches, selections and
// the stream pipeline (chunking, filtering, folding). The sequences produced
// here are forward-only and single-pass; elements are computed on demand and
// never re-yielded. Database access lives in the postgresengine subpackage,
// cross-cutting operation wrappers (retry, cache, transaction) in middleware.
package rowstream
