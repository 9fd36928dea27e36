package codec

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"runtime"

	"csv-exchange/dialect"
	"csv-exchange/schema"
)

// Codec encodes and decodes documents in one dialect. It holds no per-call
// state and is safe for concurrent use.
type Codec struct {
	dialect         dialect.Dialect
	provider        schema.Provider
	terminator      string
	logger          *slog.Logger
	continueOnError bool
}

// Option configures a Codec.
type Option func(*Codec)

// WithProvider sets the schema provider used by Encode and Decode.
//
// Default: schema.Default
func WithProvider(p schema.Provider) Option {
	return func(c *Codec) {
		c.provider = p
	}
}

// WithLineTerminator sets the string written between lines. Decoding always
// accepts both "\n" and "\r\n".
//
// Default: "\r\n" on Windows, "\n" elsewhere
func WithLineTerminator(term string) Option {
	return func(c *Codec) {
		c.terminator = term
	}
}

// WithLogger sets the logger that receives debug events such as a separator
// directive or a skipped empty line.
//
// Default: slog.Default()
func WithLogger(l *slog.Logger) Option {
	return func(c *Codec) {
		c.logger = l
	}
}

// ContinueOnError makes decoding skip records whose fields fail to convert.
// The skipped rows are reported together as RowErrors once the document has
// been read. Format errors still stop decoding.
func ContinueOnError() Option {
	return func(c *Codec) {
		c.continueOnError = true
	}
}

// New validates d and returns a Codec for it.
func New(d dialect.Dialect, opts ...Option) (*Codec, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	c := &Codec{
		dialect:    d,
		provider:   schema.Default,
		terminator: defaultTerminator(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func defaultTerminator() string {
	if runtime.GOOS == "windows" {
		return "\r\n"
	}
	return "\n"
}

// Dialect returns the dialect c was built with.
func (c *Codec) Dialect() dialect.Dialect {
	return c.dialect
}

// Schema returns the schema c's provider gives the record type t.
func (c *Codec) Schema(t reflect.Type) (*schema.Schema, error) {
	s, err := c.provider.Schema(t)
	if err != nil {
		return nil, fmt.Errorf("csv: schema of %s: %w", t, err)
	}
	return s, nil
}

// Encode writes records, a slice or array of structs or struct pointers, as
// one document.
func (c *Codec) Encode(w io.Writer, records any) error {
	rv := reflect.ValueOf(records)
	if rv.Kind() == reflect.Pointer && !rv.IsNil() {
		rv = rv.Elem()
	}
	typ, err := recordType(rv)
	if err != nil {
		return err
	}
	s, err := c.provider.Schema(typ)
	if err != nil {
		return fmt.Errorf("csv: schema of %s: %w", typ, err)
	}

	text, err := c.encodeDocument(rv, s)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, text)
	return err
}

// Decode reads a document into out, which must point to a []T or []*T.
// With ContinueOnError, out receives the rows that decoded and the returned
// error is RowErrors.
func (c *Codec) Decode(r io.Reader, out any) error {
	pv := reflect.ValueOf(out)
	if pv.Kind() != reflect.Pointer || pv.IsNil() || pv.Elem().Kind() != reflect.Slice {
		return &InvalidInputError{Type: reflect.TypeOf(out), Reason: "decode target must be a pointer to a slice"}
	}
	slice := pv.Elem()
	elem := slice.Type().Elem()
	byPointer := elem.Kind() == reflect.Pointer
	if byPointer {
		elem = elem.Elem()
	}
	if elem.Kind() != reflect.Struct {
		return &InvalidInputError{Type: slice.Type(), Reason: "slice elements must be structs or struct pointers"}
	}

	s, err := c.provider.Schema(elem)
	if err != nil {
		return fmt.Errorf("csv: schema of %s: %w", elem, err)
	}
	text, err := readAll(r)
	if err != nil {
		return err
	}

	result := reflect.MakeSlice(slice.Type(), 0, 0)
	err = c.decodeDocument(text, s, func(_ int, rec reflect.Value) error {
		if !byPointer {
			rec = rec.Elem()
		}
		result = reflect.Append(result, rec)
		return nil
	})
	var rowErrs RowErrors
	if err != nil && !errors.As(err, &rowErrs) {
		return err
	}
	slice.Set(result)
	return err
}

// DecodeSchema decodes a document against s. Each element is a pointer to
// a new value of s.Type().
func (c *Codec) DecodeSchema(r io.Reader, s *schema.Schema) ([]any, error) {
	text, err := readAll(r)
	if err != nil {
		return nil, err
	}
	var records []any
	err = c.decodeDocument(text, s, func(_ int, rec reflect.Value) error {
		records = append(records, rec.Interface())
		return nil
	})
	return records, err
}

// DecodeEach calls fn for every decoded record in document order. row is the
// 1-based ordinal of the record. An error from fn stops decoding and is
// returned as is.
func (c *Codec) DecodeEach(r io.Reader, s *schema.Schema, fn func(row int, rec any) error) error {
	text, err := readAll(r)
	if err != nil {
		return err
	}
	return c.decodeDocument(text, s, func(row int, rec reflect.Value) error {
		return fn(row, rec.Interface())
	})
}

// Marshal encodes records in dialect d.
func Marshal[T any](records []T, d dialect.Dialect, opts ...Option) ([]byte, error) {
	c, err := New(d, opts...)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := c.Encode(&buf, records); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes data written in dialect d.
func Unmarshal[T any](data []byte, d dialect.Dialect, opts ...Option) ([]T, error) {
	c, err := New(d, opts...)
	if err != nil {
		return nil, err
	}
	var out []T
	err = c.Decode(bytes.NewReader(data), &out)
	return out, err
}

// recordType validates a records collection and returns its struct type.
func recordType(rv reflect.Value) (reflect.Type, error) {
	if !rv.IsValid() {
		return nil, &InvalidInputError{Reason: "records must be a slice or array"}
	}
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, &InvalidInputError{Type: rv.Type(), Reason: "records must be a slice or array"}
	}

	elem := rv.Type().Elem()
	if elem.Kind() == reflect.Interface {
		return dynamicRecordType(rv)
	}
	if elem.Kind() == reflect.Pointer {
		elem = elem.Elem()
	}
	if elem.Kind() != reflect.Struct {
		return nil, &InvalidInputError{Type: rv.Type(), Reason: "elements must be structs or struct pointers"}
	}
	return elem, nil
}

// dynamicRecordType handles []any, whose elements must share one struct type.
func dynamicRecordType(rv reflect.Value) (reflect.Type, error) {
	var typ reflect.Type
	for i := 0; i < rv.Len(); i++ {
		item := rv.Index(i).Elem()
		if !item.IsValid() {
			return nil, &InvalidInputError{Type: rv.Type(), Reason: fmt.Sprintf("element %d is nil", i)}
		}
		t := item.Type()
		if t.Kind() == reflect.Pointer {
			t = t.Elem()
		}
		if t.Kind() != reflect.Struct {
			return nil, &InvalidInputError{Type: item.Type(), Reason: fmt.Sprintf("element %d is not a struct", i)}
		}
		if typ != nil && t != typ {
			return nil, &InvalidInputError{Type: t, Reason: fmt.Sprintf("element %d differs from record type %s", i, typ)}
		}
		typ = t
	}
	if typ == nil {
		return nil, &InvalidInputError{Type: rv.Type(), Reason: "cannot determine the record type of an empty collection"}
	}
	return typ, nil
}

func readAll(r io.Reader) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("csv: read document: %w", err)
	}
	return string(b), nil
}
