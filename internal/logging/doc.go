// Package logging builds the slog loggers used across the daemon and CLI.
//
// It offers a console handler for interactive use (colored when stdout is a
// terminal) and a JSON handler for machine consumption, plus small helpers for
// structured attributes and component-scoped child loggers.
package logging
