// Package logger is a thin key/value logging wrapper shared by the engine, the
// services and the command line host.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

type Logger struct {
	l *slog.Logger
}

// New builds a logger writing to w. format is "json" or "text"; level is one of
// debug, info, warn, error.
func New(w io.Writer, format, level string) *Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	var h slog.Handler
	if strings.EqualFold(format, "json") {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return &Logger{l: slog.New(h)}
}

// Init creates the process logger on stdout.
func Init(format, level string) *Logger {
	return New(os.Stdout, format, level)
}

// Discard drops everything; used by tests.
func Discard() *Logger {
	return New(io.Discard, "text", "error")
}

func (l *Logger) With(kvs ...interface{}) *Logger {
	if l == nil {
		return nil
	}
	return &Logger{l: l.l.With(kvs...)}
}

func (l *Logger) Debug(msg string, kvs ...interface{}) {
	if l != nil {
		l.l.Debug(msg, kvs...)
	}
}

func (l *Logger) Info(msg string, kvs ...interface{}) {
	if l != nil {
		l.l.Info(msg, kvs...)
	}
}

func (l *Logger) Warn(msg string, kvs ...interface{}) {
	if l != nil {
		l.l.Warn(msg, kvs...)
	}
}

func (l *Logger) Error(msg string, kvs ...interface{}) {
	if l != nil {
		l.l.Error(msg, kvs...)
	}
}

func (l *Logger) Fatal(msg string, kvs ...interface{}) {
	l.Error(msg, kvs...)
	os.Exit(1)
}

func parseLevel(level string) slog.Level {
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
