// Package weblog wires up the process-wide structured logger. Every
// other package takes a *zap.Logger as a field rather than reaching for a
// package-level global, mirroring how logging.go threads a *zap.Logger
// through Caddy's module graph instead of using the standard log package
// directly.
package weblog

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the process logger. debug selects a human-readable console
// encoder at Debug level; otherwise a production JSON encoder at Info
// level is used, matching zap.NewProduction's defaults.
func New(debug bool) (*zap.Logger, error) {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("weblog: building logger: %w", err)
	}
	return logger, nil
}
