package convert

import (
	"errors"
	"reflect"
	"strconv"
	"testing"
	"testing/quick"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"csv-exchange/locale"
)

var (
	nl = New(locale.MustLookup("nl-NL"))
	us = New(locale.MustLookup("en-US"))
	iv = New(locale.Invariant)
)

func toText(t *testing.T, c Converter, v any) string {
	t.Helper()
	rv := reflect.ValueOf(v)
	s, err := c.ToText(rv, KindOf(rv.Type()))
	require.NoError(t, err)
	return s
}

func fromText[T any](t *testing.T, c Converter, text string) T {
	t.Helper()
	typ := reflect.TypeOf((*T)(nil)).Elem()
	v, err := c.FromText(text, KindOf(typ), typ)
	require.NoError(t, err)
	return v.Interface().(T)
}

func TestKindOf(t *testing.T) {
	type role string
	tests := []struct {
		v    any
		want Kind
	}{
		{"x", String},
		{role("admin"), String},
		{true, Boolean},
		{int8(1), Integer},
		{uint64(1), Integer},
		{float32(1), Float},
		{time.Time{}, DateTime},
		{&time.Time{}, DateTime},
		{uuid.UUID{}, Other},
		{[]string{}, Other},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, KindOf(reflect.TypeOf(tt.v)), "%T", tt.v)
	}
}

func TestIsReference(t *testing.T) {
	assert.True(t, IsReference(reflect.TypeOf([]int{})))
	assert.True(t, IsReference(reflect.TypeOf(map[string]int{})))
	assert.True(t, IsReference(reflect.TypeOf(struct{ A int }{})))
	assert.False(t, IsReference(reflect.TypeOf(time.Time{})))
	assert.False(t, IsReference(reflect.TypeOf(uuid.UUID{})))
	assert.False(t, IsReference(reflect.TypeOf("")))
	assert.False(t, Supported(reflect.TypeOf(make(chan int))))
	assert.False(t, Supported(reflect.TypeOf(complex64(0))))
}

func TestToText(t *testing.T) {
	date := time.Date(2018, 12, 23, 0, 0, 0, 0, time.UTC)
	clock := time.Date(2018, 12, 23, 14, 5, 9, 0, time.UTC)

	tests := []struct {
		name string
		c    Converter
		v    any
		want string
	}{
		{"bool true", iv, true, "True"},
		{"bool false", iv, false, "False"},
		{"int", nl, -1234567, "-1234567"},
		{"uint", iv, uint16(65535), "65535"},
		{"float invariant", iv, 1.1, "1.1"},
		{"float nl", nl, 2.2, "2,2"},
		{"float32", iv, float32(0.1), "0.1"},
		{"date nl", nl, date, "23-12-2018"},
		{"date us", us, date, "12/23/2018"},
		{"date invariant", iv, date, "12/23/2018"},
		{"datetime nl", nl, clock, "23-12-2018 14:05:09"},
		{"datetime us", us, clock, "12/23/2018 2:05:09 PM"},
		{"nil pointer", iv, (*int)(nil), ""},
		{"nil slice", iv, []string(nil), ""},
		{"slice", iv, []string{"a", "b"}, `["a","b"]`},
		{"uuid", iv, uuid.MustParse("0f8fad5b-d9cb-469f-a165-70867728950e"), "0f8fad5b-d9cb-469f-a165-70867728950e"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, toText(t, tt.c, tt.v))
		})
	}
}

func TestFromText(t *testing.T) {
	midnight := time.Date(2018, 12, 23, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, true, fromText[bool](t, iv, "TRUE"))
	assert.Equal(t, false, fromText[bool](t, iv, "false"))
	assert.Equal(t, 1234567, fromText[int](t, nl, "1.234.567"))
	assert.Equal(t, 1234567, fromText[int](t, us, "1,234,567"))
	assert.Equal(t, 1234.5, fromText[float64](t, nl, "1.234,5"))
	assert.Equal(t, 1.1, fromText[float64](t, nl, "1,1"))
	assert.Equal(t, midnight, fromText[time.Time](t, nl, "23-12-2018"))
	assert.Equal(t, midnight, fromText[time.Time](t, nl, "23-12-2018 00:00:00"))
	assert.Equal(t, midnight, fromText[time.Time](t, us, "12/23/2018 12:00:00 AM"))
	assert.Equal(t, "", fromText[string](t, iv, ""))
	assert.Nil(t, fromText[*int](t, iv, ""))
	assert.Equal(t, 7, *fromText[*int](t, iv, "7"))
	assert.Equal(t, []string{"a"}, fromText[[]string](t, iv, `["a"]`))
	assert.Nil(t, fromText[[]string](t, iv, ""))
}

func TestFromText_Errors(t *testing.T) {
	tests := []struct {
		name  string
		c     Converter
		text  string
		typ   reflect.Type
		cause error
	}{
		{"empty int", iv, "", reflect.TypeOf(0), ErrEmpty},
		{"empty bool", iv, "", reflect.TypeOf(false), ErrEmpty},
		{"empty time", iv, "", reflect.TypeOf(time.Time{}), ErrEmpty},
		{"bad bool", iv, "yes", reflect.TypeOf(false), errBoolean},
		{"int with decimal", nl, "1,5", reflect.TypeOf(0), strconv.ErrSyntax},
		{"int overflow", iv, "300", reflect.TypeOf(int8(0)), strconv.ErrRange},
		{"negative uint", iv, "-1", reflect.TypeOf(uint(0)), strconv.ErrSyntax},
		{"bad float", iv, "1.1.1", reflect.TypeOf(0.0), strconv.ErrSyntax},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.c.FromText(tt.text, KindOf(tt.typ), tt.typ)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrConversion))
			assert.True(t, errors.Is(err, tt.cause), err.Error())

			var convErr *ConversionError
			require.True(t, errors.As(err, &convErr))
			assert.Equal(t, tt.text, convErr.Text)
			assert.Equal(t, tt.typ, convErr.Type)
		})
	}
}

func TestDateTime_OtherZone(t *testing.T) {
	cest := time.FixedZone("CEST", 2*60*60)

	tests := []struct {
		name string
		v    time.Time
		want string
	}{
		{"with clock", time.Date(2024, 3, 5, 14, 7, 9, 120000000, cest), "03/05/2024 12:07:09.12"},
		{"local midnight", time.Date(2024, 3, 5, 0, 0, 0, 0, cest), "03/04/2024 22:00:00"},
		{"utc midnight", time.Date(2024, 3, 5, 2, 0, 0, 0, cest), "03/05/2024"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := toText(t, iv, tt.v)
			assert.Equal(t, tt.want, text)

			back := fromText[time.Time](t, iv, text)
			assert.True(t, tt.v.Equal(back), "%s read back as %s", tt.v, back)
		})
	}
}

func TestFromText_DateCultureMismatch(t *testing.T) {
	typ := reflect.TypeOf(time.Time{})
	_, err := us.FromText("23-12-2018", DateTime, typ)
	assert.True(t, errors.Is(err, ErrConversion))
}

func TestFloatCultureMismatch(t *testing.T) {
	text := toText(t, nl, 1.1)
	require.Equal(t, "1,1", text)
	assert.Equal(t, 1.1, fromText[float64](t, nl, text))

	v, err := us.FromText(text, Float, reflect.TypeOf(0.0))
	if err == nil {
		assert.NotEqual(t, 1.1, v.Float())
	}
}

func TestRoundTrip_Quick(t *testing.T) {
	cultures := []Converter{iv, nl, us, New(locale.MustLookup("de-DE"))}

	for _, c := range cultures {
		t.Run(c.Culture().Name, func(t *testing.T) {
			require.NoError(t, quick.Check(func(v int64) bool {
				return fromText[int64](t, c, toText(t, c, v)) == v
			}, nil))
			require.NoError(t, quick.Check(func(v uint32) bool {
				return fromText[uint32](t, c, toText(t, c, v)) == v
			}, nil))
			require.NoError(t, quick.Check(func(v float64) bool {
				return fromText[float64](t, c, toText(t, c, v)) == v
			}, nil))
			require.NoError(t, quick.Check(func(v float32) bool {
				return fromText[float32](t, c, toText(t, c, v)) == v
			}, nil))
			require.NoError(t, quick.Check(func(v bool) bool {
				return fromText[bool](t, c, toText(t, c, v)) == v
			}, nil))
			require.NoError(t, quick.Check(func(sec int64, nsec uint32) bool {
				v := time.Unix(sec%(1<<35), int64(nsec%1e9)).UTC()
				return fromText[time.Time](t, c, toText(t, c, v)).Equal(v)
			}, nil))
		})
	}
}
