package schema

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"csv-exchange/convert"
)

// Provider discovers the schema of a record type.
type Provider interface {
	Schema(t reflect.Type) (*Schema, error)
}

// StructProvider builds schemas from exported struct fields and their csv
// tags:
//
//	Email string `csv:"title:E-mail;order:1"`
//	Notes string `csv:"-"`
//
// Recognised keys are name, title, order, optional and ignore. An optional
// field reads an empty cell as its zero value instead of failing the row.
// Non-pointer embedded structs are flattened.
type StructProvider struct {
	// IncludeReferenceTypes admits slice, map, interface and struct fields,
	// which are converted through JSON.
	IncludeReferenceTypes bool
}

// Default is the provider used when none is configured.
var Default = StructProvider{}

type cacheKey struct {
	typ      reflect.Type
	provider StructProvider
}

var cache sync.Map // cacheKey -> *Schema

// Schema returns the cached schema of t, building it on first use.
func (p StructProvider) Schema(t reflect.Type) (*Schema, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: <nil>", ErrNotStruct)
	}
	t = convert.Indirect(t)
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %s", ErrNotStruct, t)
	}

	key := cacheKey{typ: t, provider: p}
	if s, ok := cache.Load(key); ok {
		return s.(*Schema), nil
	}
	s, err := New(t, p.describe(t))
	if err != nil {
		return nil, err
	}
	actual, _ := cache.LoadOrStore(key, s)
	return actual.(*Schema), nil
}

func (p StructProvider) describe(t reflect.Type) []FieldDescriptor {
	var descs []FieldDescriptor
	for _, f := range reflect.VisibleFields(t) {
		if !f.IsExported() || behindPointer(t, f.Index) {
			continue
		}
		if f.Anonymous && f.Type.Kind() == reflect.Struct && convert.IsReference(f.Type) {
			// promoted fields follow
			continue
		}
		if !convert.Supported(f.Type) {
			continue
		}

		settings := parseTag(f.Tag.Get("csv"))
		d := FieldDescriptor{
			Name:     f.Name,
			Order:    Last,
			Kind:     convert.KindOf(f.Type),
			Nullable: convert.Nullable(f.Type),
			Index:    f.Index,
			Type:     f.Type,
		}
		if _, ok := settings["IGNORE"]; ok {
			d.Ignored = true
		}
		if _, ok := settings["OPTIONAL"]; ok {
			d.Optional = true
		}
		if name := settings["NAME"]; name != "" {
			d.Name = name
		}
		d.DisplayName = d.Name
		if title := settings["TITLE"]; title != "" {
			d.DisplayName = title
		}
		if order, err := strconv.Atoi(settings["ORDER"]); err == nil {
			d.Order = order
		}
		if convert.IsReference(f.Type) && !p.IncludeReferenceTypes {
			d.Ignored = true
		}
		descs = append(descs, d)
	}
	return descs
}

// behindPointer reports whether the field at index is promoted through an
// embedded pointer, which may be nil at run time.
func behindPointer(t reflect.Type, index []int) bool {
	for i := 1; i < len(index); i++ {
		if t.FieldByIndex(index[:i]).Type.Kind() == reflect.Pointer {
			return true
		}
	}
	return false
}

// parseTag splits `key:value;key2` into upper-cased keys.
func parseTag(tag string) map[string]string {
	settings := map[string]string{}
	if tag == "-" {
		settings["IGNORE"] = ""
		return settings
	}
	for _, part := range strings.Split(tag, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, _ := strings.Cut(part, ":")
		settings[strings.ToUpper(strings.TrimSpace(key))] = strings.TrimSpace(value)
	}
	return settings
}

// Of returns the default provider's schema for T.
func Of[T any]() (*Schema, error) {
	return Default.Schema(reflect.TypeOf((*T)(nil)).Elem())
}

// MustOf is Of for package-level variables.
func MustOf[T any]() *Schema {
	s, err := Of[T]()
	if err != nil {
		panic(err)
	}
	return s
}
