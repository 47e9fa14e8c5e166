// Package logging assembles the structured slog loggers used across feedrelay.
//
// It owns the console and JSON handlers, level and output plumbing, and the
// context helpers that tag every line with the batch id, feed position, and
// pipeline stage. A no-op logger is provided for tests and wiring code that
// cannot fail.
package logging
