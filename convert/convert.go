// Package convert turns scalar field values into text and back under a
// locale.Culture.
//
// Conversion is symmetric within one culture: FromText(ToText(v)) yields v
// for every supported kind. Text written under one culture is not guaranteed
// to read back under another.
package convert

import (
	"encoding"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"csv-exchange/locale"
)

// Converter converts values under a single culture. The zero value is not
// usable; call New.
type Converter struct {
	culture locale.Culture
}

func New(c locale.Culture) Converter {
	return Converter{culture: c}
}

// Culture returns the culture c was built with.
func (c Converter) Culture() locale.Culture {
	return c.culture
}

// ToText formats v. A nil pointer, slice or map formats as "".
func (c Converter) ToText(v reflect.Value, kind Kind) (string, error) {
	if !v.IsValid() {
		return "", nil
	}
	if Nullable(v.Type()) && v.IsNil() {
		return "", nil
	}
	if v.Kind() == reflect.Pointer {
		v = v.Elem()
	}

	switch kind {
	case String:
		return v.String(), nil
	case Boolean:
		if v.Bool() {
			return "True", nil
		}
		return "False", nil
	case Integer:
		if isUnsigned(v.Kind()) {
			return strconv.FormatUint(v.Uint(), 10), nil
		}
		return strconv.FormatInt(v.Int(), 10), nil
	case Float:
		s := strconv.FormatFloat(v.Float(), 'f', -1, v.Type().Bits())
		if c.culture.Decimal != "." {
			s = strings.Replace(s, ".", c.culture.Decimal, 1)
		}
		return s, nil
	case DateTime:
		return c.formatTime(v.Interface().(time.Time)), nil
	default:
		return c.otherText(v, kind)
	}
}

// FromText parses text into a new value of typ.
func (c Converter) FromText(text string, kind Kind, typ reflect.Type) (reflect.Value, error) {
	if typ.Kind() == reflect.Pointer {
		if text == "" {
			return reflect.Zero(typ), nil
		}
		elem, err := c.FromText(text, kind, typ.Elem())
		if err != nil {
			return reflect.Value{}, err
		}
		p := reflect.New(typ.Elem())
		p.Elem().Set(elem)
		return p, nil
	}

	v := reflect.New(typ).Elem()
	if text == "" {
		if kind == String || Nullable(typ) {
			return v, nil
		}
		return reflect.Value{}, c.fail(kind, typ, text, ErrEmpty)
	}

	switch kind {
	case String:
		v.SetString(text)
	case Boolean:
		switch {
		case strings.EqualFold(text, "true"):
			v.SetBool(true)
		case strings.EqualFold(text, "false"):
			v.SetBool(false)
		default:
			return reflect.Value{}, c.fail(kind, typ, text, errBoolean)
		}
	case Integer:
		s := c.stripGroups(text)
		if isUnsigned(typ.Kind()) {
			n, err := strconv.ParseUint(s, 10, typ.Bits())
			if err != nil {
				return reflect.Value{}, c.fail(kind, typ, text, err)
			}
			v.SetUint(n)
		} else {
			n, err := strconv.ParseInt(s, 10, typ.Bits())
			if err != nil {
				return reflect.Value{}, c.fail(kind, typ, text, err)
			}
			v.SetInt(n)
		}
	case Float:
		s := c.stripGroups(text)
		if c.culture.Decimal != "." {
			s = strings.Replace(s, c.culture.Decimal, ".", 1)
		}
		f, err := strconv.ParseFloat(s, typ.Bits())
		if err != nil {
			return reflect.Value{}, c.fail(kind, typ, text, err)
		}
		v.SetFloat(f)
	case DateTime:
		t, err := c.parseTime(text)
		if err != nil {
			return reflect.Value{}, c.fail(kind, typ, text, err)
		}
		v.Set(reflect.ValueOf(t))
	default:
		if err := c.otherFromText(text, v); err != nil {
			return reflect.Value{}, c.fail(kind, typ, text, err)
		}
	}
	return v, nil
}

// formatTime writes t in UTC, the zone parseTime reads it back in.
func (c Converter) formatTime(t time.Time) string {
	t = t.UTC()
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format(c.culture.DateLayout)
	}
	return t.Format(c.culture.WriteDateTimeLayout())
}

// parseTime accepts the culture's date-only and date-time patterns, in UTC.
func (c Converter) parseTime(text string) (time.Time, error) {
	t, err := time.Parse(c.culture.DateTimeLayout(), text)
	if err == nil {
		return t, nil
	}
	if t, dateErr := time.Parse(c.culture.DateLayout, text); dateErr == nil {
		return t, nil
	}
	return time.Time{}, err
}

func (c Converter) stripGroups(text string) string {
	if c.culture.Group == "" || c.culture.Group == c.culture.Decimal {
		return text
	}
	return strings.ReplaceAll(text, c.culture.Group, "")
}

func (c Converter) otherText(v reflect.Value, kind Kind) (string, error) {
	if m, ok := textMarshaler(v); ok {
		b, err := m.MarshalText()
		if err != nil {
			return "", c.fail(kind, v.Type(), "", err)
		}
		return string(b), nil
	}
	b, err := json.Marshal(v.Interface())
	if err != nil {
		return "", c.fail(kind, v.Type(), "", err)
	}
	return string(b), nil
}

func (c Converter) otherFromText(text string, v reflect.Value) error {
	if u, ok := v.Addr().Interface().(encoding.TextUnmarshaler); ok {
		return u.UnmarshalText([]byte(text))
	}
	return json.Unmarshal([]byte(text), v.Addr().Interface())
}

func (c Converter) fail(kind Kind, typ reflect.Type, text string, err error) error {
	return &ConversionError{Kind: kind, Type: typ, Text: text, Err: err}
}

func textMarshaler(v reflect.Value) (encoding.TextMarshaler, bool) {
	if v.Type().Implements(textMarshalerType) {
		return v.Interface().(encoding.TextMarshaler), true
	}
	if v.CanAddr() && v.Addr().Type().Implements(textMarshalerType) {
		return v.Addr().Interface().(encoding.TextMarshaler), true
	}
	return nil, false
}

func isUnsigned(k reflect.Kind) bool {
	switch k {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}
