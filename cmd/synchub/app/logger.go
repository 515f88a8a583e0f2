package app

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/artificialadnaan/trocksynchubv3-sub001/pkg/logging"
)

// NewLogger creates a configured logger. Log level precedence, highest
// first: -v/--verbose, -q/--quiet, then --log-level or LOG_LEVEL, then
// the info default.
func NewLogger(config *Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(determineLogLevel(config))
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var logger zerolog.Logger
	if config.LogFormat == "json" {
		logger = logging.NewJSON(os.Stderr)
	} else {
		logger = logging.NewConsole()
	}
	logger = logger.Level(level)
	logging.SetDefault(logger)
	return logger
}

// determineLogLevel resolves the effective log level from the config.
func determineLogLevel(config *Config) string {
	if config.Verbose && config.Quiet {
		fmt.Fprintln(os.Stderr, "Warning: both --verbose and --quiet specified, using --quiet")
		return "warn"
	}
	if config.Verbose {
		return "debug"
	}
	if config.Quiet {
		return "warn"
	}
	if config.LogLevel != "" {
		if _, err := zerolog.ParseLevel(config.LogLevel); err == nil {
			return config.LogLevel
		}
		fmt.Fprintf(os.Stderr, "Warning: invalid log level %q, using \"info\"\n", config.LogLevel)
	}
	return "info"
}
