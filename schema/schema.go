// Package schema describes the ordered fields of a record type.
//
// A Schema is produced by a Provider and is read-only afterwards; codecs
// consume it and never inspect record types themselves.
package schema

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"reflect"
	"slices"
	"strings"

	"csv-exchange/convert"
)

// Last is the default Order; such fields follow all explicitly ordered ones.
const Last = math.MaxInt

var (
	ErrDuplicateField = errors.New("schema: duplicate field")
	ErrNotStruct      = errors.New("schema: record type must be a struct")
)

// FieldDescriptor is the metadata of one record field.
type FieldDescriptor struct {
	Name        string
	DisplayName string
	Order       int
	Kind        convert.Kind
	Ignored     bool
	Nullable    bool
	Optional    bool  // an empty cell leaves the zero value
	Index       []int // reflect.Value.FieldByIndex path
	Type        reflect.Type
}

// Title is the header text of the field.
func (f FieldDescriptor) Title() string {
	if f.DisplayName == "" {
		return f.Name
	}
	return f.DisplayName
}

// Value returns the field of rec, which must be an addressable struct value
// of the schema's type.
func (f FieldDescriptor) Value(rec reflect.Value) reflect.Value {
	return rec.FieldByIndex(f.Index)
}

type Schema struct {
	typ     reflect.Type
	fields  []FieldDescriptor
	byTitle map[string]int
	byName  map[string]int
}

// New orders descriptors by (Order, position) and drops ignored ones.
// Names and titles must be unique regardless of case.
func New(typ reflect.Type, descriptors []FieldDescriptor) (*Schema, error) {
	if typ == nil || typ.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %v", ErrNotStruct, typ)
	}

	fields := make([]FieldDescriptor, 0, len(descriptors))
	for _, d := range descriptors {
		if d.Ignored {
			continue
		}
		if d.DisplayName == "" {
			d.DisplayName = d.Name
		}
		fields = append(fields, d)
	}
	slices.SortStableFunc(fields, func(a, b FieldDescriptor) int {
		return cmp.Compare(a.Order, b.Order)
	})

	s := &Schema{
		typ:     typ,
		fields:  fields,
		byTitle: make(map[string]int, len(fields)),
		byName:  make(map[string]int, len(fields)),
	}
	for i, f := range fields {
		if f.Name == "" {
			return nil, fmt.Errorf("schema: %s: field %d has no name", typ, i)
		}
		name, title := fold(f.Name), fold(f.DisplayName)
		if _, dup := s.byName[name]; dup {
			return nil, fmt.Errorf("%w: %s: name %q", ErrDuplicateField, typ, f.Name)
		}
		if _, dup := s.byTitle[title]; dup {
			return nil, fmt.Errorf("%w: %s: title %q", ErrDuplicateField, typ, f.DisplayName)
		}
		s.byName[name] = i
		s.byTitle[title] = i
	}
	return s, nil
}

// Type is the record struct type.
func (s *Schema) Type() reflect.Type {
	return s.typ
}

// Fields returns the ordered descriptors. The slice must not be modified.
func (s *Schema) Fields() []FieldDescriptor {
	return s.fields
}

func (s *Schema) Len() int {
	return len(s.fields)
}

// Titles returns the header titles in field order.
func (s *Schema) Titles() []string {
	titles := make([]string, len(s.fields))
	for i, f := range s.fields {
		titles[i] = f.DisplayName
	}
	return titles
}

// Lookup finds the field for a header column, case-insensitively. Display
// names are tried before field names.
func (s *Schema) Lookup(column string) (FieldDescriptor, bool) {
	key := fold(column)
	if i, ok := s.byTitle[key]; ok {
		return s.fields[i], true
	}
	if i, ok := s.byName[key]; ok {
		return s.fields[i], true
	}
	return FieldDescriptor{}, false
}

// New allocates a zero record and returns a pointer to it.
func (s *Schema) New() any {
	return reflect.New(s.typ).Interface()
}

func fold(s string) string {
	return strings.ToLower(s)
}
