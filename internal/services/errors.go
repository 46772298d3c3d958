package services

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError carries the full list of form-level problems so the caller
// can show every message at once instead of fixing them one at a time.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", strings.Join(e.Messages, "; "))
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ConfigurationError signals a missing collaborator, a wiring mistake rather
// than bad user input.
type ConfigurationError struct {
	Missing string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s is not set", e.Missing)
}
