// Package logger provides a thin wrapper around zap with named sub-loggers
// and typed field helpers.
package logger

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds logger configuration
type Config struct {
	Level  string // debug, info, warn, error
	Format string // console or json
}

// Logger wraps a zap.Logger
type Logger struct {
	zap *zap.Logger
}

// New creates a logger from the given config
func New(cfg Config) (*Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000")

	z, err := zapCfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return &Logger{zap: z}, nil
}

// NewNop returns a logger that discards everything, for tests
func NewNop() *Logger {
	return &Logger{zap: zap.NewNop()}
}

// Named returns a sub-logger with the given name appended
func (l *Logger) Named(name string) *Logger {
	return &Logger{zap: l.zap.Named(name)}
}

// With returns a logger with the given fields attached to every message
func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{zap: l.zap.With(fields...)}
}

func (l *Logger) Debug(msg string, fields ...zap.Field) { l.zap.Debug(msg, fields...) }
func (l *Logger) Info(msg string, fields ...zap.Field)  { l.zap.Info(msg, fields...) }
func (l *Logger) Warn(msg string, fields ...zap.Field)  { l.zap.Warn(msg, fields...) }
func (l *Logger) Error(msg string, fields ...zap.Field) { l.zap.Error(msg, fields...) }

// Sync flushes any buffered log entries
func (l *Logger) Sync() error {
	return l.zap.Sync()
}

// Field helpers so callers don't need to import zap directly
func String(key, value string) zap.Field             { return zap.String(key, value) }
func Int(key string, value int) zap.Field            { return zap.Int(key, value) }
func Int64(key string, value int64) zap.Field        { return zap.Int64(key, value) }
func Float64(key string, value float64) zap.Field    { return zap.Float64(key, value) }
func Bool(key string, value bool) zap.Field          { return zap.Bool(key, value) }
func Duration(key string, d time.Duration) zap.Field { return zap.Duration(key, d) }
func Time(key string, t time.Time) zap.Field         { return zap.Time(key, t) }
func Any(key string, value interface{}) zap.Field    { return zap.Any(key, value) }
func Error(err error) zap.Field                      { return zap.Error(err) }
