// Package logging assembles structured slog loggers and formatting helpers used
// across citetally.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so scheduler and client code can
// tag log lines with record IDs, database names, and run correlation IDs. The
// package also provides a no-op logger for tests and wiring code that cannot fail,
// and age-based pruning of the daemon's log directory.
package logging
