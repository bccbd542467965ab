package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	serviceName  = "cryptobot-signal"
	defaultLevel = "info"
)

// New builds the process logger. Output is JSON on stderr, level from LOG_LEVEL.
func New(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", level, err)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	log, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return log.With(zap.String("service", serviceName)), nil
}

// NewOrNop falls back to info level when the level is invalid, and to a no-op logger
// only when no logger can be built at all.
func NewOrNop(level string) *zap.Logger {
	log, err := New(level)
	if err == nil {
		return log
	}
	log, fallbackErr := New(defaultLevel)
	if fallbackErr != nil {
		return zap.NewNop()
	}
	log.Warn("invalid LOG_LEVEL, using info", zap.String("level", level), zap.Error(err))
	return log
}
