package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Logger is the global logger instance
	Logger *SafeLogger
)

// SafeLogger wraps a zap.Logger and tolerates being used before
// initialization, so packages can log during early startup and in tests
// without panicking on a nil logger.
type SafeLogger struct {
	base *zap.Logger
}

// NewSafeLogger wraps an existing zap logger
func NewSafeLogger(base *zap.Logger) *SafeLogger {
	return &SafeLogger{base: base}
}

func (l *SafeLogger) logger() *zap.Logger {
	if l == nil || l.base == nil {
		return zap.NewNop()
	}
	return l.base
}

// With returns a child logger with the given fields attached
func (l *SafeLogger) With(fields ...zap.Field) *SafeLogger {
	return &SafeLogger{base: l.logger().With(fields...)}
}

func (l *SafeLogger) Debug(msg string, fields ...zap.Field) { l.logger().Debug(msg, fields...) }
func (l *SafeLogger) Info(msg string, fields ...zap.Field)  { l.logger().Info(msg, fields...) }
func (l *SafeLogger) Warn(msg string, fields ...zap.Field)  { l.logger().Warn(msg, fields...) }
func (l *SafeLogger) Error(msg string, fields ...zap.Field) { l.logger().Error(msg, fields...) }
func (l *SafeLogger) Fatal(msg string, fields ...zap.Field) { l.logger().Fatal(msg, fields...) }

// InitLogger initializes the global logger
func InitLogger() error {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	// Set log level from environment
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel != "" {
		var level zapcore.Level
		if err := level.UnmarshalText([]byte(logLevel)); err == nil {
			config.Level = zap.NewAtomicLevelAt(level)
		}
	}

	base, err := config.Build(
		zap.Fields(
			zap.String("service", "pos-auth"),
			zap.String("version", "v1"),
		),
	)
	if err != nil {
		return err
	}

	Logger = NewSafeLogger(base)
	return nil
}
