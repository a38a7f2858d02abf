// Package logx builds the process logger.
package logx

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options select the logger's level and encoding.
type Options struct {
	Level   string // debug|info|warn|error, default warn
	JSON    bool   // JSON lines instead of console text
	Verbose bool   // shorthand for debug
}

// ParseLevel maps a level name to a zap level.
func ParseLevel(s string) (zapcore.Level, error) {
	if strings.TrimSpace(s) == "" {
		return zapcore.WarnLevel, nil
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(s)))); err != nil {
		return zapcore.WarnLevel, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return lvl, nil
}

// New builds a logger writing to stderr.
func New(opts Options) (*zap.Logger, error) {
	lvl, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	if opts.Verbose {
		lvl = zapcore.DebugLevel
	}
	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(lvl)
	config.OutputPaths = []string{"stderr"}
	config.ErrorOutputPaths = []string{"stderr"}
	config.Sampling = nil
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if !opts.JSON {
		config.Encoding = "console"
		config.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}
