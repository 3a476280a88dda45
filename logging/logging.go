package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/decred/slog"
	"github.com/jrick/logrotate/rotator"
)

// Backend fans log writes out to stderr and, when a log directory is
// configured, a size-rotated logfile. Subsystem loggers share one backend.
type Backend struct {
	rotator *rotator.Rotator
	backend *slog.Backend
	level   slog.Level
	loggers map[string]slog.Logger
}

// logWriter duplicates writes to stderr and the rotator.
type logWriter struct {
	r *rotator.Rotator
}

func (w logWriter) Write(p []byte) (n int, err error) {
	os.Stderr.Write(p)
	if w.r != nil {
		w.r.Write(p)
	}
	return len(p), nil
}

// NewBackend creates the logging backend. logDir may be empty for
// stderr-only logging; debugLevel is one of trace, debug, info, warn, error.
func NewBackend(logDir, debugLevel string) (*Backend, error) {
	level, ok := slog.LevelFromString(debugLevel)
	if !ok {
		return nil, fmt.Errorf("invalid debug level %q", debugLevel)
	}

	var r *rotator.Rotator
	if logDir != "" {
		if err := os.MkdirAll(logDir, 0o755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
		var err error
		r, err = rotator.New(filepath.Join(logDir, "playnine.log"), 10*1024, false, 3)
		if err != nil {
			return nil, fmt.Errorf("create log rotator: %w", err)
		}
	}

	return &Backend{
		rotator: r,
		backend: slog.NewBackend(logWriter{r: r}),
		level:   level,
		loggers: make(map[string]slog.Logger),
	}, nil
}

// Logger returns the subsystem logger for the given tag, creating it on
// first use.
func (b *Backend) Logger(subsystem string) slog.Logger {
	if logger, ok := b.loggers[subsystem]; ok {
		return logger
	}
	logger := b.backend.Logger(subsystem)
	logger.SetLevel(b.level)
	b.loggers[subsystem] = logger
	return logger
}

// Close flushes and closes the rotated logfile, if any.
func (b *Backend) Close() {
	if b.rotator != nil {
		b.rotator.Close()
	}
}
