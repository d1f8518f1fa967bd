package postgresengine

// Option defines a functional option for configuring RowStore.
type Option func(*RowStore) error

// WithLogger sets the logger for the RowStore.
// The logger will receive messages at different levels based on the logger's configured level:
//
// Debug level: SQL queries with execution timing (development use)
// Info level: Row counts, durations, transaction outcomes (production-safe)
// Warn level: Non-critical issues like cleanup failures
// Error level: Critical failures that cause operation failures.
func WithLogger(logger Logger) Option {
	return func(store *RowStore) error {
		store.logger = logger
		return nil
	}
}
