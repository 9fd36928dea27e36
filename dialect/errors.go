package dialect

import "fmt"

// ConfigurationError reports an invalid Dialect field.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("dialect: %s: %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return ErrInvalidDialect
}

func configErr(field, reason string) error {
	return &ConfigurationError{Field: field, Reason: reason}
}
