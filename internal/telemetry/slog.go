package telemetry

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// SetupLogger installs the global slog default logger from the logging section
// of the configuration. format "json" selects a JSONHandler for production;
// any other value selects a TextHandler for local development. level is one of
// "debug", "info", "warn", "error" (case-insensitive) and defaults to "info".
//
// Installing the default means handlers and repositories call slog.Info et al.
// directly without threading a *slog.Logger through every constructor.
func SetupLogger(format, level string) {
	lvl := parseLevel(level)
	slog.SetDefault(slog.New(newHandler(os.Stdout, format, lvl)))
	slog.Info("logger initialised", "format", format, "level", lvl.String())
}

func parseLevel(level string) slog.Level {
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

// newHandler builds the handler SetupLogger installs. Split out so tests can
// point it at a buffer instead of stdout.
func newHandler(w io.Writer, format string, lvl slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{
		Level:     lvl,
		AddSource: lvl == slog.LevelDebug, // file:line only when debugging
	}
	if strings.ToLower(format) == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}
