package utils

import (
	"io"
	"os"
	"sort"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel represents the severity level of a log message.
type LogLevel int

const (
	// LevelDebug is the debug log level.
	LevelDebug LogLevel = iota
	// LevelInfo is the info log level.
	LevelInfo
	// LevelWarn is the warning log level.
	LevelWarn
	// LevelError is the error log level.
	LevelError
)

// String returns the string representation of LogLevel.
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l LogLevel) zapLevel() zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// ParseLogLevel parses a string to LogLevel.
func ParseLogLevel(level string) LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Logger is the interface for logging.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	WithField(key string, value interface{}) Logger
	WithFields(fields map[string]interface{}) Logger
}

// ZapLogger implements Logger on top of a zap SugaredLogger.
type ZapLogger struct {
	sugar *zap.SugaredLogger
	level zap.AtomicLevel
}

// NewLogger creates a zap-backed logger writing to output.
// Format is "json" or "text".
func NewLogger(level LogLevel, output io.Writer, format string) *ZapLogger {
	if output == nil {
		output = os.Stdout
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000")
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	var encoder zapcore.Encoder
	if strings.ToLower(format) == "json" {
		encoder = zapcore.NewJSONEncoder(encCfg)
	} else {
		encoder = zapcore.NewConsoleEncoder(encCfg)
	}

	atomic := zap.NewAtomicLevelAt(level.zapLevel())
	core := zapcore.NewCore(encoder, zapcore.AddSync(output), atomic)

	return &ZapLogger{
		sugar: zap.New(core).Sugar(),
		level: atomic,
	}
}

// NewDefaultLogger creates a text logger, matching the CLI default.
func NewDefaultLogger(level LogLevel, output io.Writer) *ZapLogger {
	return NewLogger(level, output, "text")
}

// SetLevel sets the log level.
func (l *ZapLogger) SetLevel(level LogLevel) {
	l.level.SetLevel(level.zapLevel())
}

// Debug logs a debug message.
func (l *ZapLogger) Debug(msg string, args ...interface{}) {
	l.sugar.Debugf(msg, args...)
}

// Info logs an info message.
func (l *ZapLogger) Info(msg string, args ...interface{}) {
	l.sugar.Infof(msg, args...)
}

// Warn logs a warning message.
func (l *ZapLogger) Warn(msg string, args ...interface{}) {
	l.sugar.Warnf(msg, args...)
}

// Error logs an error message.
func (l *ZapLogger) Error(msg string, args ...interface{}) {
	l.sugar.Errorf(msg, args...)
}

// WithField creates a new logger with the given field.
func (l *ZapLogger) WithField(key string, value interface{}) Logger {
	return &ZapLogger{sugar: l.sugar.With(key, value), level: l.level}
}

// WithFields creates a new logger with the given fields.
func (l *ZapLogger) WithFields(fields map[string]interface{}) Logger {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	kv := make([]interface{}, 0, len(fields)*2)
	for _, k := range keys {
		kv = append(kv, k, fields[k])
	}
	return &ZapLogger{sugar: l.sugar.With(kv...), level: l.level}
}

// Sync flushes buffered log entries.
func (l *ZapLogger) Sync() error {
	return l.sugar.Sync()
}

// NullLogger is a logger that discards all log messages.
type NullLogger struct{}

// Debug does nothing.
func (l *NullLogger) Debug(msg string, args ...interface{}) {}

// Info does nothing.
func (l *NullLogger) Info(msg string, args ...interface{}) {}

// Warn does nothing.
func (l *NullLogger) Warn(msg string, args ...interface{}) {}

// Error does nothing.
func (l *NullLogger) Error(msg string, args ...interface{}) {}

// WithField returns the same NullLogger.
func (l *NullLogger) WithField(key string, value interface{}) Logger {
	return l
}

// WithFields returns the same NullLogger.
func (l *NullLogger) WithFields(fields map[string]interface{}) Logger {
	return l
}
