// Package logger builds the application's zap.Logger, optionally
// wiring a notification fan-out core so that WARN-and-above records
// also reach the configured notification channels.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"ratio-jump-trader/internal/notify"
)

// New creates a new zap.Logger instance based on the provided
// configuration. If sender is non-nil, WARN-and-above records are
// additionally forwarded to it.
func New(level, format string, sender notify.Sender) (*zap.Logger, error) {
	logLevel, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}

	var cfg zap.Config
	if format == "json" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}

	cfg.Level = zap.NewAtomicLevelAt(logLevel)
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if sender == nil {
		return cfg.Build()
	}

	return cfg.Build(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return notify.NewCore(core, sender)
	}))
}
