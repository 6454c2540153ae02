package utils

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
)

// LoggerOptions configures InitLogger.
type LoggerOptions struct {
	Level           string
	Output          io.Writer
	Prefix          string
	ReportTimestamp bool
}

func parseLevel(s string) log.Level {
	switch strings.ToLower(s) {
	case "debug":
		return log.DebugLevel
	case "info":
		return log.InfoLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	case "fatal":
		return log.FatalLevel
	default:
		return log.InfoLevel
	}
}

// InitLogger creates a logger from options. A nil Output goes to stderr.
func InitLogger(opts LoggerOptions) *log.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	logger := log.NewWithOptions(out, log.Options{
		ReportTimestamp: opts.ReportTimestamp,
		Prefix:          opts.Prefix,
	})
	logger.SetLevel(parseLevel(opts.Level))
	return logger
}

// InitDefaultLogger creates the process-wide logger and installs it as the
// default. RUNGUARD_LOG_LEVEL overrides the level.
func InitDefaultLogger() *log.Logger {
	level := os.Getenv("RUNGUARD_LOG_LEVEL")
	if level == "" {
		level = "info"
	}
	logger := InitLogger(LoggerOptions{
		Level:  level,
		Output: os.Stderr,
		Prefix: "runguard",
	})
	SetDefaultLogger(logger)
	return logger
}

var (
	defaultLoggerMu sync.RWMutex
	defaultLogger   = log.Default()
)

// SetDefaultLogger replaces the logger behind the package-level helpers.
func SetDefaultLogger(logger *log.Logger) {
	defaultLoggerMu.Lock()
	defer defaultLoggerMu.Unlock()
	defaultLogger = logger
}

// GetDefaultLogger returns the logger behind the package-level helpers.
func GetDefaultLogger() *log.Logger {
	defaultLoggerMu.RLock()
	defer defaultLoggerMu.RUnlock()
	return defaultLogger
}

// Debug logs at debug level on the default logger.
func Debug(msg interface{}, keyvals ...interface{}) {
	GetDefaultLogger().Debug(msg, keyvals...)
}

// Info logs at info level on the default logger.
func Info(msg interface{}, keyvals ...interface{}) {
	GetDefaultLogger().Info(msg, keyvals...)
}

// Warn logs at warn level on the default logger.
func Warn(msg interface{}, keyvals ...interface{}) {
	GetDefaultLogger().Warn(msg, keyvals...)
}

// Error logs at error level on the default logger.
func Error(msg interface{}, keyvals ...interface{}) {
	GetDefaultLogger().Error(msg, keyvals...)
}

// With returns a sub-logger with the given key/value context.
func With(keyvals ...interface{}) *log.Logger {
	return GetDefaultLogger().With(keyvals...)
}

// WithPrefix returns a sub-logger with the given prefix.
func WithPrefix(prefix string) *log.Logger {
	return GetDefaultLogger().WithPrefix(prefix)
}
