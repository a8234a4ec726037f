package main

import (
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"

	"github.com/sagarc03/photoshelf/config"
)

// setupLogging installs the process-wide slog logger and routes the
// standard library logger through it.
func setupLogging(cfg *config.Config) {
	w := os.Stderr
	if useJSON(cfg) {
		w = os.Stdout
	}

	slog.SetDefault(slog.New(newLogHandler(w, cfg)))

	log.SetFlags(0)
	log.SetOutput(slog.NewLogLogger(slog.Default().Handler(), slog.LevelInfo).Writer())
}

func newLogHandler(w io.Writer, cfg *config.Config) slog.Handler {
	level := logLevel(cfg)

	if useJSON(cfg) {
		return slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level: level,
			ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
				if a.Key == slog.TimeKey {
					return slog.String("ts", a.Value.Time().UTC().Format(time.RFC3339Nano))
				}
				return a
			},
		})
	}

	return tint.NewHandler(w, &tint.Options{
		Level:      level,
		AddSource:  !cfg.IsProd(),
		TimeFormat: "15:04:05.000",
		NoColor:    !isTerminal(w),
	})
}

// useJSON resolves log.format; "auto" means JSON in prod and tint elsewhere.
func useJSON(cfg *config.Config) bool {
	switch cfg.Log.Format {
	case "json":
		return true
	case "text":
		return false
	default:
		return cfg.IsProd()
	}
}

func logLevel(cfg *config.Config) slog.Level {
	if cfg.Log.Level != "" {
		return parseLevel(cfg.Log.Level)
	}
	if cfg.IsProd() {
		return slog.LevelInfo
	}
	return slog.LevelDebug
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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
