package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// Options selects the log destination and verbosity.
type Options struct {
	// File receives JSON structured logs. Takes precedence over Console.
	File string
	// Console writes human-readable logs to stderr.
	Console bool
	// Level is a zerolog level name. LOG_LEVEL overrides it.
	Level string
}

// InitWithOptions initializes the logger with the specified options.
// Log level can be configured via LOG_LEVEL environment variable (debug, info, warn, error).
// Without a file, logs go to stderr so stdout stays free for command output.
// The returned closer releases the log file, if any.
func InitWithOptions(opts Options) (zerolog.Logger, io.Closer, error) {
	level := parseLogLevel(opts.Level)
	if env := os.Getenv("LOG_LEVEL"); env != "" {
		level = parseLogLevel(env)
	}

	var (
		output io.Writer
		closer io.Closer = nopCloser{}
	)
	switch {
	case opts.File != "":
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o750); err != nil {
			return zerolog.Logger{}, nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		//nolint:gosec // G304: User-specified log file path is intentional
		file, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return zerolog.Logger{}, nil, fmt.Errorf("failed to open log file %s: %w", opts.File, err)
		}
		output = file
		closer = file
	case opts.Console:
		output = zerolog.ConsoleWriter{Out: os.Stderr}
	default:
		output = os.Stderr
	}

	log := zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Logger()

	if opts.File != "" {
		log.Debug().Str("path", opts.File).Str("level", level.String()).Msg("Logger initialized")
	} else {
		log.Debug().Str("output", "stderr").Bool("console", opts.Console).Str("level", level.String()).Msg("Logger initialized")
	}
	return log, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Helper functions
func parseLogLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info", "":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "trace":
		return zerolog.TraceLevel
	default:
		return zerolog.InfoLevel
	}
}
