// internal/logging/logger.go
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/tamzrod/relayd/internal/config"
)

// New builds the process logger from config.
//
// Output "stdout" / "stderr" write to the process streams; anything else is
// treated as a file path and opened for append. The returned closer releases
// that file and is a no-op for the process streams.
func New(cfg config.LoggingConfig, version string) (*slog.Logger, func() error, error) {
	var (
		out     io.Writer
		closeFn = func() error { return nil }
	)

	switch strings.ToLower(cfg.Output) {
	case "", "stderr":
		out = os.Stderr
	case "stdout":
		out = os.Stdout
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("logging: open %s: %w", cfg.Output, err)
		}
		out = f
		closeFn = f.Close
	}

	return slog.New(newHandler(out, cfg, version)), closeFn, nil
}

func newHandler(out io.Writer, cfg config.LoggingConfig, version string) slog.Handler {
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}

	var h slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "json":
		h = slog.NewJSONHandler(out, opts)
	default:
		h = slog.NewTextHandler(out, opts)
	}

	return h.WithAttrs([]slog.Attr{
		slog.String("service", "relayd"),
		slog.String("version", version),
	})
}

// ParseLevel maps debug/info/warn/error to slog levels. Unknown → info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Discard returns a logger that drops everything. Used where a nil logger
// was passed in.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}
