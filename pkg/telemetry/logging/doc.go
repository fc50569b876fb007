// Package logging configures the process-wide structured logger.
//
// The logger wraps log/slog with a handler selected by format
// ("json", "text", or "console") and a minimum level parsed from
// configuration. Components derive their own loggers with
// logger.With("component", name).
package logging
