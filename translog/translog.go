// Package translog provides the slog handlers the transcoding proxy and
// its tools log through: a console handler tuned to the proxy's own log
// shape for interactive use, and plain JSON for server deployments.
package translog

import (
	"log/slog"
	"os"
)

// Default returns a logger suited to how the process runs: JSON to stdout
// for server mode (scraped by log tooling), the console handler to stderr
// otherwise.
func Default(serverMode bool, level slog.Level) *slog.Logger {
	if serverMode {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	}
	return slog.New(NewConsoleHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// ParseLevel parses a verbosity flag value into a slog.Level. Supports
// "debug", "info", "warn", "error", and "none".
func ParseLevel(value string) slog.Level {
	switch value {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "none":
		return slog.Level(127)
	default:
		return slog.LevelInfo
	}
}
