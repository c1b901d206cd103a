package main

import (
	"io"
	"log/slog"
)

const (
	logFormatText = "text"
	logFormatJSON = "json"
)

// newLogger builds the diagnostics logger. Diagnostics go to w (stderr) so
// stdout carries only the report.
func newLogger(w io.Writer, format string, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if format == logFormatJSON {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler).With(slog.String("app", appName))
}
