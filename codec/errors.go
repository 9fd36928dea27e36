package codec

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// Sentinel errors
var (
	// ErrMalformedDocument indicates document text that cannot be decoded.
	ErrMalformedDocument = errors.New("csv: malformed document")

	// ErrInvalidInput indicates records or targets the codec cannot handle.
	ErrInvalidInput = errors.New("csv: invalid input")
)

// FormatError reports malformed document content.
type FormatError struct {
	Line   int    // zero-based physical line index
	Reason string // Human-readable explanation
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("csv: line %d: %s", e.Line+1, e.Reason)
}

func (e *FormatError) Unwrap() error {
	return ErrMalformedDocument
}

// InvalidInputError reports a value passed to Encode or Decode that is not a
// collection of records of one struct type.
type InvalidInputError struct {
	Type   reflect.Type
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("csv: invalid input %v: %s", e.Type, e.Reason)
}

func (e *InvalidInputError) Unwrap() error {
	return ErrInvalidInput
}

// RowError wraps a field conversion failure with its position.
type RowError struct {
	Line  int // zero-based physical line index, -1 when encoding
	Row   int // 1-based record ordinal
	Field string
	Err   error
}

func (e *RowError) Error() string {
	if e.Line < 0 {
		return fmt.Sprintf("csv: row %d: field %s: %v", e.Row, e.Field, e.Err)
	}
	return fmt.Sprintf("csv: line %d (row %d): field %s: %v", e.Line+1, e.Row, e.Field, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// RowErrors collects the failures of a decode run with ContinueOnError.
type RowErrors []*RowError

func (e RowErrors) Error() string {
	const limit = 3
	msgs := make([]string, 0, limit+1)
	for i, re := range e {
		if i == limit {
			msgs = append(msgs, fmt.Sprintf("and %d more", len(e)-limit))
			break
		}
		msgs = append(msgs, re.Error())
	}
	return fmt.Sprintf("%d rows failed: %s", len(e), strings.Join(msgs, "; "))
}

func (e RowErrors) Unwrap() []error {
	errs := make([]error, len(e))
	for i, re := range e {
		errs[i] = re
	}
	return errs
}
