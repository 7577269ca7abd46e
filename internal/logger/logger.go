// © 2024 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package logger defines a type for writing to logs, carries a structured
// logger in a context, and provides a thread-safe implementation of an
// io.Writer that buffers log lines in a ring buffer and allows them to be
// streamed through an HTTP endpoint or retrieved as a snapshot.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// Logf is the basic logger type: a printf-like func. Like [log.Printf], the
// format need not end in a newline. Logf functions must be safe for concurrent
// use.
type Logf func(format string, args ...any)

// Logger is a [slog.Logger] with an adjustable level.
type Logger struct {
	*slog.Logger
	Level *slog.LevelVar
}

// New returns a Logger writing to w. When w is a terminal, records are
// written in a human-readable text form; otherwise they are JSON objects, one
// per line. Records are also copied to every tee writer, for example a
// [Streamer].
func New(w io.Writer, tee ...io.Writer) *Logger {
	level := new(slog.LevelVar)
	opts := &slog.HandlerOptions{Level: level}

	out := w
	if len(tee) > 0 {
		out = io.MultiWriter(append([]io.Writer{w}, tee...)...)
	}

	var h slog.Handler
	if isTerminal(w) {
		h = slog.NewTextHandler(out, opts)
	} else {
		h = slog.NewJSONHandler(out, opts)
	}
	return &Logger{Logger: slog.New(h), Level: level}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// ParseLevel converts a level name (debug, info, warn, error) to
// [slog.Level]. Unknown names map to [slog.LevelInfo].
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

type ctxKey struct{}

// Put returns a copy of ctx carrying l.
func Put(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// Get returns the Logger stored in ctx by [Put], or a new Logger writing to
// standard error.
func Get(ctx context.Context) *Logger {
	if l, ok := ctx.Value(ctxKey{}).(*Logger); ok {
		return l
	}
	return New(os.Stderr)
}
