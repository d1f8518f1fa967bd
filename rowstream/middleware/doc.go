// Package middleware provides decorator-style wrappers for single data-access
// operations: retry on transient failure, result caching keyed by query
// signature, and transactional execution. An Operation is a plain function
// from context to result, and each middleware is a function from Operation to
// Operation, so chains compose by ordinary function composition and the order
// of wrapping stays explicit and testable in isolation.
package middleware
