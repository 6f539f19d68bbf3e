package logger

import (
	"context"
	"os"
)

// LogLevel log level
type LogLevel int

const (
	// Silent silent log level
	Silent LogLevel = iota + 1
	// Error error log level
	Error
	// Warn warn log level
	Warn
	// Info info log level
	Info
)

// Config logger config
type Config struct {
	LogLevel LogLevel
}

// Interface logger interface
type Interface interface {
	LogMode(LogLevel) Interface
	Info(ctx context.Context, msg string, data ...interface{})
	Warn(ctx context.Context, msg string, data ...interface{})
	Error(ctx context.Context, msg string, data ...interface{})
}

// Default is the logger used when none is configured: a zerolog console
// logger with the level taken from DECLARATIVE_LOG_LEVEL.
var Default Interface

func init() {
	Default = NewZerologLoggerWithConfig(Config{LogLevel: levelFromEnv()})
}

func levelFromEnv() LogLevel {
	switch os.Getenv("DECLARATIVE_LOG_LEVEL") {
	case "info":
		return Info
	case "warn":
		return Warn
	case "error":
		return Error
	case "silent":
		return Silent
	default:
		return Warn
	}
}

// Discard is a logger that drops everything.
var Discard Interface = discardLogger{}

type discardLogger struct{}

func (l discardLogger) LogMode(LogLevel) Interface                          { return l }
func (discardLogger) Info(context.Context, string, ...interface{})          {}
func (discardLogger) Warn(context.Context, string, ...interface{})          {}
func (discardLogger) Error(ctx context.Context, msg string, _ ...interface{}) {}
