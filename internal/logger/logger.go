package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

var levelVar = new(slog.LevelVar)

// L is the process-wide logger.
var L = newLogger(os.Stdout)

func newLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: levelVar}))
}

// ParseLevel maps a config string (debug, info, warn, error) to a slog level.
// Unknown values fall back to info.
func ParseLevel(lvl string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(lvl)) {
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

// SetLevel configures the global log level.
func SetLevel(lvl string) {
	levelVar.Set(ParseLevel(lvl))
}

// Level returns the current global log level.
func Level() slog.Level {
	return levelVar.Level()
}

// SetOutput redirects L, e.g. away from stdout in interactive use.
// Call it before any goroutine logs.
func SetOutput(w io.Writer) {
	L = newLogger(w)
}
