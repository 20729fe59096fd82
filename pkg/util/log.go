package util

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogFile configures the rotated log sink
type LogFile struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

func NewLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}

// NewLoggerWithFile creates a logger that writes to both console and a rotated file
func NewLoggerWithFile(lf LogFile) (*zap.Logger, error) {
	// Ensure log directory exists
	if err := os.MkdirAll(filepath.Dir(lf.Path), 0755); err != nil {
		return nil, err
	}

	rotator := &lumberjack.Logger{
		Filename:   lf.Path,
		MaxSize:    orDefault(lf.MaxSizeMB, 10),
		MaxBackups: orDefault(lf.MaxBackups, 3),
		MaxAge:     orDefault(lf.MaxAgeDays, 28),
		Compress:   true,
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	// JSON on both sinks
	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.AddSync(os.Stdout), zap.InfoLevel),
		zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.AddSync(rotator), zap.InfoLevel),
	)

	return zap.New(core), nil
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
