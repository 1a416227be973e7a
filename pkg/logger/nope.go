package logger

import (
	"io"
	"log/slog"
)

// NewNope returns a logger that discards everything. Constructors take it
// as the default so callers may leave Logger unset.
func NewNope() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
