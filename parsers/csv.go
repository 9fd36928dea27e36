package parsers

import (
	"context"
	"errors"
	"io"
	"reflect"

	"csv-exchange/codec"
)

// Row is one decoded record and its position in the input.
type Row[T any] struct {
	Number int
	Record T
}

// ParseCSV decodes a delimited document read from r with c and streams the
// records. Number is the 1-based record ordinal.
//
// Conversion failures reach the errors channel as *codec.RowError when c was
// built with codec.ContinueOnError; otherwise the first failure ends the
// stream. Errors are delivered after the records channel is closed.
func ParseCSV[T any](ctx context.Context, r io.Reader, c *codec.Codec) (<-chan Row[T], <-chan error) {
	records := make(chan Row[T], 100)
	errs := make(chan error, 16)

	go func() {
		var failures []error
		defer func() {
			close(records)
			deliver(ctx, errs, failures)
		}()

		s, err := c.Schema(reflect.TypeOf((*T)(nil)).Elem())
		if err != nil {
			failures = []error{err}
			return
		}

		err = c.DecodeEach(r, s, func(row int, rec any) error {
			select {
			case records <- Row[T]{Number: row, Record: *rec.(*T)}:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		failures = split(err)
	}()

	return records, errs
}

// split flattens codec.RowErrors into its row errors.
func split(err error) []error {
	if err == nil {
		return nil
	}
	var rowErrs codec.RowErrors
	if errors.As(err, &rowErrs) {
		out := make([]error, len(rowErrs))
		for i, re := range rowErrs {
			out[i] = re
		}
		return out
	}
	return []error{err}
}

func deliver(ctx context.Context, errs chan<- error, failures []error) {
	defer close(errs)
	for _, err := range failures {
		select {
		case errs <- err:
		case <-ctx.Done():
			return
		}
	}
}
