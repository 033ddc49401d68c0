package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Options configures the file logger
type Options struct {
	// Path of the append-only log file; empty disables file logging
	Path string
	// Level is debug, info, warn or error (default info)
	Level string
	// Stderr additionally receives human readable output when set
	Stderr io.Writer
}

// ParseLevel maps a configured level name onto a zerolog level
func ParseLevel(name string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "info":
		return zerolog.InfoLevel, nil
	case "debug":
		return zerolog.DebugLevel, nil
	case "warn", "warning":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	default:
		return zerolog.InfoLevel, fmt.Errorf("unknown log level %q", name)
	}
}

// New opens the log file and returns the logger plus a cleanup closing it.
// With neither a path nor a stderr writer the logger discards everything.
func New(opts Options) (zerolog.Logger, func() error, error) {
	cleanup := func() error { return nil }

	level, err := ParseLevel(opts.Level)
	if err != nil {
		return zerolog.Nop(), cleanup, err
	}

	var writers []io.Writer
	if opts.Path != "" {
		if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
			return zerolog.Nop(), cleanup, fmt.Errorf("failed to create log directory: %w", err)
		}
		file, err := os.OpenFile(opts.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return zerolog.Nop(), cleanup, fmt.Errorf("failed to open log file: %w", err)
		}
		writers = append(writers, file)
		cleanup = file.Close
	}
	if opts.Stderr != nil {
		writers = append(writers, zerolog.ConsoleWriter{Out: opts.Stderr, TimeFormat: time.TimeOnly, NoColor: true})
	}
	if len(writers) == 0 {
		return zerolog.Nop(), cleanup, nil
	}

	logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().
		Timestamp().
		Str("app", "mail-reader").
		Logger()
	return logger, cleanup, nil
}
