// Package logging assembles structured slog loggers and formatting helpers used
// across poolpack services.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so request code can automatically
// tag log lines with batch IDs, consumer IDs, and correlation IDs. The package
// also provides a no-op logger for tests and wiring code that cannot fail, and
// the retention sweep that prunes old log files at startup.
package logging
