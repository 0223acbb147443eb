// Package logging builds the structured logger shared by every binary.
package logging

import (
	"io"
	"log/slog"
	"os"
)

// Setup returns a *slog.Logger configured for the given environment,
// writing to stdout.
//
// Development (dev): human-readable text output at DEBUG level.
// Staging (staging): JSON output at DEBUG level.
// Production (prod): machine-readable JSON output at INFO level.
func Setup(env string) *slog.Logger {
	return New(env, os.Stdout)
}

// New is Setup with an explicit destination.
func New(env string, w io.Writer) *slog.Logger {
	switch env {
	case "prod":
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	case "staging":
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	default: // "dev" and anything unrecognised
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	}
}

// Discard is a logger that drops everything; tests use it.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}
