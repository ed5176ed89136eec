// Package logging builds the zap logger used across the CLI.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	FormatJSON    = "json"
	FormatConsole = "console"
	// FormatText is accepted as an alias of console.
	FormatText = "text"
)

// New returns a logger writing to stderr at level in format. Empty values mean info and console.
func New(level string, format string) (*zap.Logger, error) {
	parsedLevel := zapcore.InfoLevel
	if trimmed := strings.TrimSpace(level); trimmed != "" {
		if err := parsedLevel.UnmarshalText([]byte(strings.ToLower(trimmed))); err != nil {
			return nil, fmt.Errorf("parse log level %q: %w", level, err)
		}
	}

	var configuration zap.Config
	switch strings.ToLower(strings.TrimSpace(format)) {
	case FormatJSON:
		configuration = zap.NewProductionConfig()
	case "", FormatConsole, FormatText:
		configuration = zap.NewDevelopmentConfig()
		configuration.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	default:
		return nil, fmt.Errorf("unsupported log format %q", format)
	}
	configuration.Level = zap.NewAtomicLevelAt(parsedLevel)
	configuration.OutputPaths = []string{"stderr"}
	configuration.ErrorOutputPaths = []string{"stderr"}
	return configuration.Build()
}
