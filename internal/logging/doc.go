// Package logging assembles the structured slog loggers used by the daemon
// and its control commands.
//
// It owns the console and JSON handlers, level parsing, and output routing
// ("stdout", "stderr", or file paths). The "auto" format picks the console
// handler when stderr is a terminal and JSON otherwise, which matches how a
// daemon runs: interactively in the foreground, redirected once detached.
//
// Prefer these constructors over hand-rolled slog setup so every component
// emits the same field names.
package logging
