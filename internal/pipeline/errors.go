package pipeline

import (
	"errors"
	"fmt"
)

// ConfigError reports conflicting construction options, such as a template
// combined with a structured output path. Always fatal before any record is
// read.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error: %s", e.Reason)
}

// IsConfigError returns true if the error is a construction-time conflict.
// Uses errors.As to handle wrapped errors.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
