package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Init installs the default JSON logger on stderr. stdout is reserved for
// command output and the stdio MCP transport.
func Init() {
	InitWriter(os.Stderr, os.Getenv("LOG_LEVEL"))
}

func InitWriter(w io.Writer, level string) {
	slog.SetDefault(slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: ParseLevel(level),
	})))
}

func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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
