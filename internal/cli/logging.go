package cli

import (
	"log/slog"
	"os"
	"strings"
)

// logLevel backs every logger built by SetupLogging, so a config
// reload can adjust verbosity without rebuilding handlers.
var logLevel slog.LevelVar

// SetupLogging creates and configures a logger with the specified level.
// Returns the configured logger for dependency injection.
func SetupLogging(level string) *slog.Logger {
	SetLogLevel(level)

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: &logLevel}))

	// Set as default logger for global access if needed
	slog.SetDefault(log)

	return log
}

// SetLogLevel adjusts the level of all loggers built by SetupLogging.
func SetLogLevel(level string) {
	switch strings.ToLower(level) {
	case "debug":
		logLevel.Set(slog.LevelDebug)
	case "warn", "warning":
		logLevel.Set(slog.LevelWarn)
	case "error":
		logLevel.Set(slog.LevelError)
	default:
		logLevel.Set(slog.LevelInfo)
	}
}
