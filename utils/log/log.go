package log

import (
	"log/slog"
	"os"
	"strings"
)

// BuildLogger builds the process-wide JSON logger. The level string comes
// straight from config ("debug", "info", "warn", "error").
func BuildLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	ops := &slog.HandlerOptions{
		AddSource: true,
		Level:     lvl,
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, ops))
}

func ErrAttr(err error) slog.Attr {
	return slog.Any("error", err)
}

func IntAttr(key string, value int) slog.Attr {
	return slog.Int(key, value)
}

func StringAttr(key, value string) slog.Attr {
	return slog.String(key, value)
}

func AnyAttr(key string, value any) slog.Attr {
	return slog.Any(key, value)
}
