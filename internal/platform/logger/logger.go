package logger

import (
	"io"
	"log/slog"
	"os"
)

// New returns a structured JSON logger writing to stderr, leaving stdout to
// the rendered dashboard. Level should be a valid slog level string: DEBUG,
// INFO, WARN, ERROR. Unrecognized values default to ERROR.
func New(level string) *slog.Logger {
	return NewWithWriter(level, os.Stderr)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(level string, w io.Writer) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelError
	}

	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		AddSource: true,
		Level:     lvl,
	}))
}
