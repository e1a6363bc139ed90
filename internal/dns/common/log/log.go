// Package log wraps zap behind a small field-map interface so that every
// component of the server logs the same way and tests can silence output.
package log

import (
	"fmt"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger defines the zonefwd logging interface.
type Logger interface {
	Info(fields map[string]any, msg string)
	Error(fields map[string]any, msg string)
	Debug(fields map[string]any, msg string)
	Warn(fields map[string]any, msg string)
	Panic(fields map[string]any, msg string)
	Fatal(fields map[string]any, msg string)
}

type holder struct{ l Logger }

var global atomic.Value

func init() {
	global.Store(holder{l: newZapLogger(false, zapcore.InfoLevel)}) // prod/info until configured
}

// SetLogger replaces the global logger instance.
func SetLogger(l Logger) {
	global.Store(holder{l: l})
}

// GetLogger returns the current global logger instance.
func GetLogger() Logger {
	return global.Load().(holder).l
}

// Configure sets up the global logger based on env and level.
// Any env other than "prod" selects the human-readable development encoder.
func Configure(env, level string) error {
	lvl, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	SetLogger(newZapLogger(env != "prod", lvl))
	return nil
}

func Info(fields map[string]any, msg string)  { packageLogger().Info(fields, msg) }
func Error(fields map[string]any, msg string) { packageLogger().Error(fields, msg) }
func Debug(fields map[string]any, msg string) { packageLogger().Debug(fields, msg) }
func Warn(fields map[string]any, msg string)  { packageLogger().Warn(fields, msg) }
func Panic(fields map[string]any, msg string) { packageLogger().Panic(fields, msg) }
func Fatal(fields map[string]any, msg string) { packageLogger().Fatal(fields, msg) }

// packageLogger returns the global logger with one more frame skipped, so the
// package-level functions report their own caller.
func packageLogger() Logger {
	l := GetLogger()
	if z, ok := l.(*zapLogger); ok && z.outer != nil {
		return z.outer
	}
	return l
}

// zapLogger implements Logger using Uber's zap.
type zapLogger struct {
	base  *zap.Logger
	outer *zapLogger
}

// wrapZap skips the write and Logger method frames for injected loggers, and
// one more for the package-level functions.
func wrapZap(l *zap.Logger) *zapLogger {
	return &zapLogger{
		base:  l.WithOptions(zap.AddCallerSkip(2)),
		outer: &zapLogger{base: l.WithOptions(zap.AddCallerSkip(3))},
	}
}

func newZapLogger(dev bool, level zapcore.Level) Logger {
	var config zap.Config
	if dev {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		config = zap.NewProductionConfig()
	}
	config.Level = zap.NewAtomicLevelAt(level)
	config.EncoderConfig.TimeKey = "time"
	config.EncoderConfig.MessageKey = "msg"
	config.EncoderConfig.LevelKey = "level"
	logger, err := config.Build()
	if err != nil {
		logger = zap.NewNop()
	}
	return wrapZap(logger)
}

// write only builds fields when the level is enabled.
func (l *zapLogger) write(level zapcore.Level, fields map[string]any, msg string) {
	if ce := l.base.Check(level, msg); ce != nil {
		ce.Write(zapFields(fields)...)
	}
}

func (l *zapLogger) Info(fields map[string]any, msg string)  { l.write(zapcore.InfoLevel, fields, msg) }
func (l *zapLogger) Error(fields map[string]any, msg string) { l.write(zapcore.ErrorLevel, fields, msg) }
func (l *zapLogger) Debug(fields map[string]any, msg string) { l.write(zapcore.DebugLevel, fields, msg) }
func (l *zapLogger) Warn(fields map[string]any, msg string)  { l.write(zapcore.WarnLevel, fields, msg) }
func (l *zapLogger) Panic(fields map[string]any, msg string) { l.write(zapcore.PanicLevel, fields, msg) }
func (l *zapLogger) Fatal(fields map[string]any, msg string) { l.write(zapcore.FatalLevel, fields, msg) }

func zapFields(m map[string]any) []zap.Field {
	fields := make([]zap.Field, 0, len(m))
	for k, v := range m {
		if err, ok := v.(error); ok {
			fields = append(fields, zap.NamedError(k, err))
			continue
		}
		fields = append(fields, zap.Any(k, v))
	}
	return fields
}

// noopLogger discards everything.
type noopLogger struct{}

func (noopLogger) Info(map[string]any, string)  {}
func (noopLogger) Error(map[string]any, string) {}
func (noopLogger) Debug(map[string]any, string) {}
func (noopLogger) Warn(map[string]any, string)  {}
func (noopLogger) Panic(map[string]any, string) {}
func (noopLogger) Fatal(map[string]any, string) {}

// NewNoopLogger returns a Logger that discards all log messages.
func NewNoopLogger() Logger {
	return noopLogger{}
}
