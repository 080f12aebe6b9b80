package testutil

import (
	"io"
	"log/slog"
)

// NewTestLogger creates a logger that discards output, suitable for tests.
func NewTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
