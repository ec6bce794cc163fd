// Package logging configures log/slog for csvers commands.
//
// Logs are written to stderr. The level comes from the explicit argument or,
// when empty, from the LOG_LEVEL environment variable and defaults to INFO.
// Every record carries the module and version attributes.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// EnvLogLevel is the environment variable read when no level is given.
const EnvLogLevel = "LOG_LEVEL"

// ParseLogLevel maps debug, info, warn/warning and error (case-insensitive) to
// a slog level. Anything else is INFO.
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewStructuredLogger returns a JSON logger writing to stderr.
func NewStructuredLogger(module, version, level string) *slog.Logger {
	return newLogger(os.Stderr, module, version, level, true)
}

// NewTextLogger returns a human readable logger writing to w.
func NewTextLogger(w io.Writer, module, version, level string) *slog.Logger {
	return newLogger(w, module, version, level, false)
}

func newLogger(w io.Writer, module, version, level string, asJSON bool) *slog.Logger {
	if level == "" {
		level = os.Getenv(EnvLogLevel)
	}
	lvl := ParseLogLevel(level)
	opts := &slog.HandlerOptions{
		Level:     lvl,
		AddSource: lvl == slog.LevelDebug,
	}
	var h slog.Handler
	if asJSON {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h).With("module", module, "version", version)
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}
