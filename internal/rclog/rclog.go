// Package rclog provides the three logging sinks the transcode pipeline
// writes to: debug, warning, and fatal. Debug output is gated by a
// process-wide flag set once at startup from the CLI's --debug flag and
// never mutated again afterwards; treat it as configuration read at
// process start, not as mutable shared state.
package rclog

import (
	"io"
	"log/slog"
	"os"
	"sync/atomic"
)

var debugEnabled atomic.Bool

var logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
	Level: slog.LevelDebug,
}))

// SetDebug enables or disables the debug sink. Call once, before any
// goroutine starts logging; there is no synchronization beyond the atomic
// flag itself.
func SetDebug(enabled bool) {
	debugEnabled.Store(enabled)
}

// DebugEnabled reports whether the debug sink is currently active.
func DebugEnabled() bool {
	return debugEnabled.Load()
}

// SetOutput redirects all three sinks to w. Tests use this to capture
// output instead of writing to stderr.
func SetOutput(w io.Writer) {
	logger = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

// Debug logs a message if the debug sink is enabled; a no-op otherwise.
func Debug(msg string, args ...any) {
	if debugEnabled.Load() {
		logger.Debug(msg, args...)
	}
}

// Warning logs a message unconditionally. Execution continues afterwards.
func Warning(msg string, args ...any) {
	logger.Warn(msg, args...)
}

// Fatal logs err at error level and returns it unchanged, so callers can
// write `return rclog.Fatal(err)` at the point of failure while leaving the
// decision of how to terminate the process (exit code, cleanup) to main.
// rclog never calls os.Exit itself, which keeps every other package in this
// module testable.
func Fatal(err error) error {
	if err != nil {
		logger.Error(err.Error())
	}
	return err
}
