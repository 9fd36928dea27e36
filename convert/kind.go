package convert

import (
	"encoding"
	"fmt"
	"reflect"
	"time"
)

// Kind is the scalar category a field converts as.
type Kind int

const (
	String Kind = iota
	Boolean
	Integer
	Float
	DateTime
	Other
)

var kindNames = [...]string{
	String:   "String",
	Boolean:  "Boolean",
	Integer:  "Integer",
	Float:    "Float",
	DateTime: "DateTime",
	Other:    "Other",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

var (
	timeType            = reflect.TypeOf(time.Time{})
	textMarshalerType   = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
	textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()
)

// KindOf classifies t. Pointers are looked through; they only make a field
// nullable.
func KindOf(t reflect.Type) Kind {
	t = Indirect(t)
	switch {
	case t == timeType:
		return DateTime
	case isTextType(t):
		return Other
	}
	switch t.Kind() {
	case reflect.String:
		return String
	case reflect.Bool:
		return Boolean
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return Integer
	case reflect.Float32, reflect.Float64:
		return Float
	default:
		return Other
	}
}

// Supported reports whether values of t can be converted at all.
func Supported(t reflect.Type) bool {
	switch Indirect(t).Kind() {
	case reflect.Chan, reflect.Func, reflect.UnsafePointer, reflect.Uintptr,
		reflect.Complex64, reflect.Complex128, reflect.Pointer:
		return false
	}
	return true
}

// IsReference reports whether t is reference-like: a slice, map, interface
// or struct that has no text form of its own.
func IsReference(t reflect.Type) bool {
	t = Indirect(t)
	if t == timeType || isTextType(t) {
		return false
	}
	switch t.Kind() {
	case reflect.Slice, reflect.Map, reflect.Interface, reflect.Struct:
		return true
	}
	return false
}

// Nullable reports whether t has an absent representation.
func Nullable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.Slice, reflect.Map, reflect.Interface:
		return true
	}
	return false
}

// Indirect strips one level of pointer.
func Indirect(t reflect.Type) reflect.Type {
	if t.Kind() == reflect.Pointer {
		return t.Elem()
	}
	return t
}

func isTextType(t reflect.Type) bool {
	return t.Implements(textMarshalerType) && reflect.PointerTo(t).Implements(textUnmarshalerType)
}
