package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/reservaterrain/core/internal/config"
)

// ParseLevel переводит текстовый уровень в slog.Level; по умолчанию info.
func ParseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
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

// New собирает логгер сервиса. В dev-окружении добавляется источник вызова.
func New(w io.Writer, cfg config.LogConfig, env string) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	opts := &slog.HandlerOptions{
		Level:     ParseLevel(cfg.Level),
		AddSource: env == "dev",
	}

	var h slog.Handler
	if strings.EqualFold(strings.TrimSpace(cfg.Format), "json") {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h).With("service", "reservation-core", "env", env)
}
