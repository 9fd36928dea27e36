package codec

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"csv-exchange/convert"
	"csv-exchange/dialect"
	"csv-exchange/schema"
)

// EncodeRow formats one record as a line. rowNumber is written in front when
// the dialect numbers rows.
func EncodeRow(record any, s *schema.Schema, d dialect.Dialect, rowNumber int) (string, error) {
	if err := d.Validate(); err != nil {
		return "", err
	}
	rv, err := recordValue(reflect.ValueOf(record), s.Type())
	if err != nil {
		return "", err
	}
	return newRowWriter(s, d).encode(rv, rowNumber)
}

// DecodeRow parses one line into a new record, aligning cells to fields by
// the given column names. The result is a pointer to the schema's type.
func DecodeRow(line string, s *schema.Schema, columns []string, d dialect.Dialect) (any, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	rec, err := newRowReader(s, columns, d).decode(line, 0)
	if err != nil {
		return nil, err
	}
	return rec.Interface(), nil
}

type rowWriter struct {
	schema  *schema.Schema
	dialect dialect.Dialect
	conv    convert.Converter
	escaper *strings.Replacer
}

func newRowWriter(s *schema.Schema, d dialect.Dialect) *rowWriter {
	w := &rowWriter{schema: s, dialect: d, conv: convert.New(d.Culture)}
	if d.Escaping() {
		nl := string(d.NewlinePlaceholder)
		w.escaper = strings.NewReplacer(
			"\r\n", nl,
			"\r", nl,
			"\n", nl,
			string(d.Separator), string(d.SeparatorPlaceholder),
		)
	}
	return w
}

func (w *rowWriter) encode(rv reflect.Value, rowNumber int) (string, error) {
	var b strings.Builder
	if w.dialect.UseRowNumberColumn {
		b.WriteString(strconv.Itoa(rowNumber))
	}
	for i, f := range w.schema.Fields() {
		if i > 0 || w.dialect.UseRowNumberColumn {
			b.WriteRune(w.dialect.Separator)
		}
		text, err := w.conv.ToText(f.Value(rv), f.Kind)
		if err != nil {
			return "", &RowError{Line: -1, Row: rowNumber, Field: f.Name, Err: err}
		}
		if f.Kind != convert.String && !w.dialect.Escaping() && strings.ContainsRune(text, w.dialect.Separator) {
			return "", &InvalidInputError{
				Type:   w.schema.Type(),
				Reason: fmt.Sprintf("row %d: field %s: %q contains the separator %q", rowNumber, f.Name, text, w.dialect.Separator),
			}
		}
		cell, err := w.escape(text)
		if err != nil {
			return "", &InvalidInputError{
				Type:   w.schema.Type(),
				Reason: fmt.Sprintf("row %d: field %s: %v", rowNumber, f.Name, err),
			}
		}
		b.WriteString(cell)
	}
	return b.String(), nil
}

// escape applies placeholder substitution, then quoting.
func (w *rowWriter) escape(text string) (string, error) {
	text, err := w.substitute(text)
	if err != nil {
		return "", err
	}
	if w.dialect.Quoted() {
		q := string(dialect.Quote)
		text = q + strings.ReplaceAll(text, q, q+q) + q
	}
	return text, nil
}

func (w *rowWriter) substitute(text string) (string, error) {
	if w.escaper == nil {
		return text, nil
	}
	if strings.ContainsRune(text, w.dialect.SeparatorPlaceholder) ||
		strings.ContainsRune(text, w.dialect.NewlinePlaceholder) {
		return "", fmt.Errorf("value contains a placeholder character (%q or %q)",
			w.dialect.SeparatorPlaceholder, w.dialect.NewlinePlaceholder)
	}
	return w.escaper.Replace(text), nil
}

// header returns the title line, escaped but never quoted.
func (w *rowWriter) header() (string, error) {
	titles := w.schema.Titles()
	if w.dialect.UseRowNumberColumn {
		titles = append([]string{w.dialect.RowNumberColumnTitle}, titles...)
	}
	for i, title := range titles {
		escaped, err := w.substitute(title)
		if err != nil {
			return "", &InvalidInputError{
				Type:   w.schema.Type(),
				Reason: fmt.Sprintf("column title %q: %v", title, err),
			}
		}
		titles[i] = escaped
	}
	return strings.Join(titles, string(w.dialect.Separator)), nil
}

type rowReader struct {
	schema   *schema.Schema
	dialect  dialect.Dialect
	conv     convert.Converter
	fields   []*schema.FieldDescriptor // per column, nil when unbound
	sep      string
	restorer *strings.Replacer
}

func newRowReader(s *schema.Schema, columns []string, d dialect.Dialect) *rowReader {
	r := &rowReader{
		schema:  s,
		dialect: d,
		conv:    convert.New(d.Culture),
		fields:  make([]*schema.FieldDescriptor, len(columns)),
		sep:     string(d.Separator),
	}
	if d.Escaping() {
		r.restorer = strings.NewReplacer(
			string(d.SeparatorPlaceholder), string(d.Separator),
			string(d.NewlinePlaceholder), "\n",
		)
	}
	for i, col := range columns {
		if f, ok := s.Lookup(col); ok {
			r.fields[i] = &f
		}
	}
	return r
}

func (r *rowReader) split(line string) []string {
	return strings.Split(line, r.sep)
}

// unescape reverses escape: trim, strip quotes, undouble, restore placeholders.
func (r *rowReader) unescape(cell string) string {
	if r.dialect.TrimSpace {
		cell = strings.TrimSpace(cell)
	}
	if r.dialect.Quoted() {
		q := string(dialect.Quote)
		cell = strings.TrimPrefix(cell, q)
		cell = strings.TrimSuffix(cell, q)
		cell = strings.ReplaceAll(cell, q+q, q)
	}
	if r.restorer != nil {
		cell = r.restorer.Replace(cell)
	}
	return cell
}

// decode parses line, found at physical index lineIdx, into a new record.
// Cells beyond the last one leave their fields at the zero value.
func (r *rowReader) decode(line string, lineIdx int) (reflect.Value, error) {
	return r.decodeParts(r.split(line), lineIdx)
}

func (r *rowReader) decodeParts(parts []string, lineIdx int) (reflect.Value, error) {
	if len(parts) > len(r.fields) {
		return reflect.Value{}, &FormatError{
			Line:   lineIdx,
			Reason: fmt.Sprintf("%d fields, but the header has %d columns", len(parts), len(r.fields)),
		}
	}

	rec := reflect.New(r.schema.Type())
	elem := rec.Elem()
	for i, part := range parts {
		f := r.fields[i]
		if f == nil {
			continue
		}
		text := r.unescape(part)
		if text == "" && f.Optional {
			continue
		}
		v, err := r.conv.FromText(text, f.Kind, f.Type)
		if err != nil {
			return reflect.Value{}, &RowError{Line: lineIdx, Field: f.Name, Err: err}
		}
		f.Value(elem).Set(v)
	}
	return rec, nil
}

// recordValue dereferences v to an addressable struct of type typ.
func recordValue(v reflect.Value, typ reflect.Type) (reflect.Value, error) {
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return reflect.Value{}, &InvalidInputError{Type: v.Type(), Reason: "nil record"}
		}
		v = v.Elem()
	}
	if !v.IsValid() || v.Type() != typ {
		var got reflect.Type
		if v.IsValid() {
			got = v.Type()
		}
		return reflect.Value{}, &InvalidInputError{Type: got, Reason: fmt.Sprintf("record is not a %s", typ)}
	}
	if !v.CanAddr() {
		cp := reflect.New(typ).Elem()
		cp.Set(v)
		v = cp
	}
	return v, nil
}
