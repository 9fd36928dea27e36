package convert

import (
	"errors"
	"fmt"
	"reflect"
)

var (
	// ErrConversion is matched by every *ConversionError.
	ErrConversion = errors.New("conversion failed")

	// ErrEmpty is the cause of a ConversionError for an empty cell bound to
	// a field with no absent representation.
	ErrEmpty = errors.New("empty value for non-nullable field")

	errBoolean = errors.New("expected True or False")
)

// ConversionError reports a value that could not be converted to or from text.
type ConversionError struct {
	Kind Kind
	Type reflect.Type
	Text string
	Err  error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("convert: %q as %s (%s): %v", e.Text, e.Kind, e.Type, e.Err)
}

func (e *ConversionError) Is(target error) bool {
	return target == ErrConversion
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}
