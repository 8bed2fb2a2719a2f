// Package logging wires per-subsystem slog loggers to stderr and an optional
// log file under the data directory.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/decred/slog"
)

// Backend hands out subsystem loggers sharing one sink and level.
type Backend struct {
	backend *slog.Backend
	level   slog.Level
	file    *os.File
	loggers map[string]slog.Logger
}

// New creates a backend logging to stderr. When logDir is non-empty, output
// is duplicated into logDir/mya.log.
func New(logDir string, debug bool) (*Backend, error) {
	var w io.Writer = os.Stderr
	var f *os.File
	if logDir != "" {
		if err := os.MkdirAll(logDir, 0o700); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
		var err error
		f, err = os.OpenFile(filepath.Join(logDir, "mya.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		w = io.MultiWriter(os.Stderr, f)
	}

	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return &Backend{
		backend: slog.NewBackend(w),
		level:   level,
		file:    f,
		loggers: make(map[string]slog.Logger),
	}, nil
}

// Logger returns the named subsystem logger, creating it on first use.
func (b *Backend) Logger(subsystem string) slog.Logger {
	if l, ok := b.loggers[subsystem]; ok {
		return l
	}
	l := b.backend.Logger(subsystem)
	l.SetLevel(b.level)
	b.loggers[subsystem] = l
	return l
}

// Close flushes and closes the log file, if any.
func (b *Backend) Close() error {
	if b.file == nil {
		return nil
	}
	return b.file.Close()
}
