package logger

import (
	"context"
	"log/slog"
	"os"

	"github.com/declarative-go/declarative/utils"
)

// SlogLogger implements Interface using log/slog
type SlogLogger struct {
	Logger   *slog.Logger
	LogLevel LogLevel
}

// NewSlogLogger creates a new logger using slog
func NewSlogLogger(logger *slog.Logger, config Config) Interface {
	return &SlogLogger{
		Logger:   logger,
		LogLevel: config.LogLevel,
	}
}

// NewSlogLoggerWithConfig creates a new slog logger with a default text
// handler when no logger instance is supplied.
func NewSlogLoggerWithConfig(config Config) Interface {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: SlogLevel(config.LogLevel),
	})
	return NewSlogLogger(slog.New(handler), config)
}

// LogMode sets the log level
func (l *SlogLogger) LogMode(level LogLevel) Interface {
	newLogger := *l
	newLogger.LogLevel = level
	return &newLogger
}

// Info logs info messages
func (l *SlogLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= Info {
		l.Logger.InfoContext(l.ctx(ctx), msg, l.args(data)...)
	}
}

// Warn logs warning messages
func (l *SlogLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= Warn {
		l.Logger.WarnContext(l.ctx(ctx), msg, l.args(data)...)
	}
}

// Error logs error messages
func (l *SlogLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= Error {
		l.Logger.ErrorContext(l.ctx(ctx), msg, l.args(data)...)
	}
}

func (l *SlogLogger) ctx(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

func (l *SlogLogger) args(data []interface{}) []interface{} {
	args := []interface{}{"file", utils.FileWithLineNum()}
	if len(data) > 0 {
		args = append(args, "data", data)
	}
	return args
}

// SlogLevel converts a LogLevel to the matching slog level.
func SlogLevel(level LogLevel) slog.Level {
	switch level {
	case Silent:
		return slog.LevelError + 4
	case Error:
		return slog.LevelError
	case Warn:
		return slog.LevelWarn
	case Info:
		return slog.LevelInfo
	default:
		return slog.LevelWarn
	}
}
