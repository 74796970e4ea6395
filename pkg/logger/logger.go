package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"documind-api/internal/domain"

	"github.com/lmittmann/tint"
	"golang.org/x/term"
)

// AppLogger implements the domain.Logger interface on top of slog.
type AppLogger struct {
	logger *slog.Logger
}

// NewLogger creates a new logger instance writing to stdout.
// format "json" selects the JSON handler; anything else uses tint.
func NewLogger(levelStr, format string) *AppLogger {
	return newLogger(os.Stdout, parseLogLevel(levelStr), format)
}

func newLogger(w io.Writer, level slog.Level, format string) *AppLogger {
	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	} else {
		handler = tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: time.DateTime,
			NoColor:    !isTerminal(w),
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				if a.Key == "error" && a.Value.Kind() == slog.KindAny {
					if err, ok := a.Value.Any().(error); ok {
						return tint.Err(err)
					}
				}
				return a
			},
		})
	}

	return &AppLogger{logger: slog.New(handler)}
}

func isTerminal(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return term.IsTerminal(int(f.Fd()))
	}
	return false
}

// Info logs an info message
func (l *AppLogger) Info(msg string, fields ...interface{}) {
	l.logger.Info(msg, fields...)
}

// Error logs an error message
func (l *AppLogger) Error(msg string, err error, fields ...interface{}) {
	l.logger.Error(msg, append([]interface{}{"error", err}, fields...)...)
}

// Debug logs a debug message
func (l *AppLogger) Debug(msg string, fields ...interface{}) {
	l.logger.Debug(msg, fields...)
}

// Warn logs a warning message
func (l *AppLogger) Warn(msg string, fields ...interface{}) {
	l.logger.Warn(msg, fields...)
}

func (l *AppLogger) InfoContext(ctx context.Context, msg string, args ...any) {
	l.logger.InfoContext(ctx, msg, args...)
}

func (l *AppLogger) ErrorContext(ctx context.Context, msg string, args ...any) {
	l.logger.ErrorContext(ctx, msg, args...)
}

// With returns a logger that adds the given key/value pairs to every record.
func (l *AppLogger) With(fields ...interface{}) domain.Logger {
	return &AppLogger{logger: l.logger.With(fields...)}
}

// parseLogLevel converts string log level to a slog level
func parseLogLevel(levelStr string) slog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
