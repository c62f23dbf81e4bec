package debounce

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	DefaultMinLength             = 3
	DefaultRequiredConfirmations = 2
	DefaultPollInterval          = time.Second
)

// Config holds the sensitivity settings of one detection session.
type Config struct {
	// MinLength is the minimum selection length in Unicode scalar values.
	MinLength int `validate:"min=1"`
	// RequiredConfirmations is how many consecutive identical observations commit a selection.
	RequiredConfirmations int `validate:"min=1"`
	// PollInterval paces the event source between ticks.
	PollInterval time.Duration `validate:"gt=0"`
}

// DefaultConfig returns the out-of-the-box sensitivity: 3 characters, 2 confirmations, 1s.
func DefaultConfig() Config {
	return Config{
		MinLength:             DefaultMinLength,
		RequiredConfirmations: DefaultRequiredConfirmations,
		PollInterval:          DefaultPollInterval,
	}
}

// ConfigError reports an invalid session configuration.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid session config: %s %s", e.Field, e.Reason)
}

var validate = validator.New()

// Validate returns a *ConfigError for the first field that violates its bounds.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return &ConfigError{Field: fe.Field(), Reason: describe(fe)}
	}
	return &ConfigError{Field: "Config", Reason: err.Error()}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "min":
		return fmt.Sprintf("must be >= %s, got %v", fe.Param(), fe.Value())
	case "gt":
		return fmt.Sprintf("must be > %s, got %v", fe.Param(), fe.Value())
	default:
		return fmt.Sprintf("failed %s=%s", fe.Tag(), fe.Param())
	}
}
