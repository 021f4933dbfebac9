package logging

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/lift-control/lcc/internal/config"
)

// TimeFormat is used for console and JSON timestamps.
const TimeFormat = "2006-01-02T15:04:05.000Z07:00"

var (
	once   sync.Once
	log    zerolog.Logger
	closer io.Closer = nopCloser{}
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New builds a logger writing to out and, if cfg.File is set, to a rotating
// file. The returned closer releases the file.
func New(cfg config.LogConfig, out io.Writer) (zerolog.Logger, io.Closer, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: TimeFormat}
	}

	var c io.Closer = nopCloser{}
	if cfg.File != "" {
		file := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
		}
		// The file always gets JSON lines.
		out = zerolog.MultiLevelWriter(out, file)
		c = file
	}

	zerolog.TimeFieldFormat = TimeFormat
	return zerolog.New(out).Level(level).With().Timestamp().Logger(), c, nil
}

// Setup configures the process logger once. Later calls return the first result.
func Setup(cfg config.LogConfig) (*zerolog.Logger, error) {
	var setupErr error
	once.Do(func() {
		l, c, err := New(cfg, os.Stdout)
		if err != nil {
			setupErr = err
			l = zerolog.New(os.Stdout).With().Timestamp().Logger()
		} else {
			closer = c
		}
		log = l
	})
	return &log, setupErr
}

// Get returns the process logger, configuring defaults if Setup was never called.
func Get() *zerolog.Logger {
	once.Do(func() {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: TimeFormat}).
			With().Timestamp().Logger()
	})
	return &log
}

// Close flushes and releases the log file, if any.
func Close() error {
	return closer.Close()
}
