package middleware

import (
	"context"
)

// Operation is one data-access call producing a result of type T.
type Operation[T any] func(ctx context.Context) (T, error)

// Middleware transforms one operation into another with added cross-cutting
// behavior.
type Middleware[T any] func(Operation[T]) Operation[T]

// Chain wraps the operation with the given middlewares; the first middleware
// becomes the outermost wrapper. Chain(op, Retrying, Caching) therefore
// behaves like Retrying(Caching(op)).
func Chain[T any](operation Operation[T], middlewares ...Middleware[T]) Operation[T] {
	for i := len(middlewares) - 1; i >= 0; i-- {
		operation = middlewares[i](operation)
	}

	return operation
}
