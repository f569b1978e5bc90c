package orion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// NewLogger creates the process logger. Records go to stderr as text and,
// if a file is configured, as JSON to a rotating log file. The returned
// closer closes the log file.
func NewLogger(cfg LogConfig) (*slog.Logger, io.Closer, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}

	var handler slog.Handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})

	var closer io.Closer = nopCloser{}

	if cfg.File != "" {
		w := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    32, // MB
			MaxBackups: 1,
		}

		if level <= slog.LevelDebug {
			w.MaxSize = 512
		}

		handler = fanout{
			handler,
			slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}),
		}

		closer = w
	}

	logger := slog.New(handler)

	logger.Info("System information",
		slog.String("GOARCH", runtime.GOARCH),
		slog.String("GOOS", runtime.GOOS),
		slog.Int("NumCPUs", runtime.NumCPU()),
	)

	return logger, closer, nil
}

// parseLevel parses a level name. An empty name falls back to the
// PRISM_LOG_LEVEL environment variable and then to info.
func parseLevel(name string) (slog.Level, error) {
	if name == "" {
		name = os.Getenv("PRISM_LOG_LEVEL")
	}

	if name == "" {
		return slog.LevelInfo, nil
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(name))); err != nil {
		return 0, fmt.Errorf("parse log level %q: %w", name, err)
	}

	return level, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// fanout passes every record to all of its handlers.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}

	return false
}

func (f fanout) Handle(ctx context.Context, record slog.Record) error {
	var errs []error

	for _, h := range f {
		if h.Enabled(ctx, record.Level) {
			errs = append(errs, h.Handle(ctx, record.Clone()))
		}
	}

	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make(fanout, len(f))
	for idx, h := range f {
		handlers[idx] = h.WithAttrs(attrs)
	}

	return handlers
}

func (f fanout) WithGroup(name string) slog.Handler {
	handlers := make(fanout, len(f))
	for idx, h := range f {
		handlers[idx] = h.WithGroup(name)
	}

	return handlers
}
