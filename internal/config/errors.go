package config

import "fmt"

// ConfigError reports an environment variable with an unusable value.
type ConfigError struct {
	// Field is the environment variable name.
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s %s", e.Field, e.Message)
}
