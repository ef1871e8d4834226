// Package logging builds the interpreter's diagnostic logger. Diagnostics
// never reach the terminal; they go to a JSON log file or nowhere.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
)

// LogPerm is the mode of a newly created log file.
const LogPerm = 0600

// ParseLevel maps debug, info, warn and error to slog levels.
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(name))); err != nil {
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", name)
	}
	return level, nil
}

// New returns a JSON logger writing to w. Every record carries the session
// id and the interpreter pid.
func New(w io.Writer, level slog.Level, session string) *slog.Logger {
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(h).With(
		slog.String("session", session),
		slog.Int("pid", os.Getpid()),
	)
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

// Open appends to the log file at path and returns a logger for a new
// session. An empty path gives Discard and a no-op closer.
func Open(path, level string) (*slog.Logger, io.Closer, error) {
	if path == "" {
		return Discard(), nopCloser{}, nil
	}
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, nil, err
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, LogPerm)
	if err != nil {
		return nil, nil, err
	}
	return New(f, lvl, uuid.NewString()), f, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
