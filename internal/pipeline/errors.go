package pipeline

import (
	"errors"
	"strings"
)

// ErrInvalidConfig matches every ConfigError through errors.Is.
var ErrInvalidConfig = errors.New("invalid configuration")

// ConfigError reports a precondition violation that no retry can fix.
type ConfigError struct {
	Message  string
	Guidance string
}

func (e *ConfigError) Error() string {
	if strings.TrimSpace(e.Guidance) == "" {
		return e.Message
	}
	return e.Message + "\n" + e.Guidance
}

func (e *ConfigError) Is(target error) bool { return target == ErrInvalidConfig }

// NewConfigError returns a ConfigError with optional remediation text.
func NewConfigError(message string, guidance string) *ConfigError {
	return &ConfigError{Message: message, Guidance: guidance}
}
