package logger

import (
	"log/slog"
	"os"
	"strings"
)

// New returns the process logger. LOG_LEVEL (debug/info/warn/error)
// controls verbosity; output is structured text on stdout.
func New() *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
