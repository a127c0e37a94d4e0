package logging

import (
	"io"
	"log/slog"
	"os"

	"github.com/phsym/console-slog"
	"github.com/samber/oops"
	slogmulti "github.com/samber/slog-multi"

	"github.com/Kcinzaa/Hatyaifinal/internal/config"
)

// Preinit installs a console logger so that config loading can log before Init runs.
func Preinit() {
	slog.SetDefault(slog.New(console.NewHandler(os.Stderr, &console.HandlerOptions{
		AddSource: true,
		Level:     slog.LevelDebug,
	})))
}

// Init replaces the default logger with a console handler and, when LOG_FILE is set,
// a JSON file handler. The returned closer releases the file.
func Init(cfg config.LogConfig) (io.Closer, error) {
	level := ParseLevel(cfg.Level)

	handlers := []slog.Handler{
		console.NewHandler(os.Stderr, &console.HandlerOptions{
			AddSource: true,
			Level:     level,
		}),
	}

	var closer io.Closer = nopCloser{}
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, oops.In("logging").With("file", cfg.File).Wrapf(err, "failed to open log file")
		}
		handlers = append(handlers, slog.NewJSONHandler(f, &slog.HandlerOptions{Level: level}))
		closer = f
	}

	slog.SetDefault(slog.New(slogmulti.Fanout(handlers...)))

	return closer, nil
}

// ParseLevel maps debug/info/warn/error to a slog level, defaulting to info.
func ParseLevel(raw string) slog.Level {
	switch raw {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
