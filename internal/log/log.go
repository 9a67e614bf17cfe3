// Package log sets up structured logging for go-ask.
//
// Output goes to stderr: the answer command prints its result on stdout and
// the orchestrator reads that stream over SSH.
package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/MatusOllah/slogcolor"
)

var global atomic.Pointer[slog.Logger]

// Init installs a stderr logger at level as both the package logger and
// slog's default. Valid levels: debug, info, warn, error.
func Init(level string) {
	l := New(level, os.Stderr)
	global.Store(l)
	slog.SetDefault(l)
}

// New builds a logger without touching the global one: JSON when
// GO_ENV=production, colored text otherwise.
func New(level string, w io.Writer) *slog.Logger {
	lvl := ParseLevel(level)
	if os.Getenv("GO_ENV") == "production" {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl}))
	}
	return slog.New(slogcolor.NewHandler(w, &slogcolor.Options{
		Level:      lvl,
		TimeFormat: time.TimeOnly,
		NoColor:    w != os.Stderr && w != os.Stdout,
	}))
}

// ParseLevel maps a level name to a slog.Level, defaulting to info.
func ParseLevel(level string) slog.Level {
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

// L returns the logger installed by Init, initializing at info if needed.
func L() *slog.Logger {
	if l := global.Load(); l != nil {
		return l
	}
	Init("info")
	return global.Load()
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
