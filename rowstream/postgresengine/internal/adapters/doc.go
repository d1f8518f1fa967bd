// Package adapters contains the database adapter implementations for the
// rowstream postgres engine. Each adapter exposes explicit connection
// acquisition so that the engine can scope one connection to exactly one
// logical operation and guarantee its release.
package adapters
