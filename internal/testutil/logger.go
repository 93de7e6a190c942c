package testutil

import (
	"log/slog"

	"github.com/finsight0/finsight/internal/log"
)

// NopLogger returns a logger that discards everything. Tests pass it where
// a component requires a logger but its output is noise.
func NopLogger() *slog.Logger {
	return log.NewNop()
}
