// Package logging assembles structured slog loggers and formatting helpers used
// across mdqsync.
//
// It owns the console and JSON handlers, the optional rotated JSON log file,
// and context helpers that tag log lines with the current run ID. The package
// also provides a no-op logger for tests and wiring code that cannot fail.
package logging
