package schema

import (
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"csv-exchange/convert"
)

type audit struct {
	CreatedAt time.Time `csv:"order:90;optional"`
}

type Extra struct {
	Note string
}

type person struct {
	audit
	*Extra
	ID       uuid.UUID
	Email    string `csv:"title:E-mail;order:1"`
	Name     string `csv:"order:0"`
	Age      *int
	Score    float64 `csv:"name:Points"`
	Tags     []string
	Password string `csv:"-"`
	Internal string `csv:"ignore"`
	secret   string
	Notify   func()
}

func TestStructProvider_Schema(t *testing.T) {
	s, err := Of[person]()
	require.NoError(t, err)

	assert.Equal(t, []string{"Name", "E-mail", "CreatedAt", "ID", "Age", "Points"}, s.Titles())
	assert.Equal(t, reflect.TypeOf(person{}), s.Type())
	assert.Equal(t, 6, s.Len())

	f, ok := s.Lookup("age")
	require.True(t, ok)
	assert.Equal(t, convert.Integer, f.Kind)
	assert.True(t, f.Nullable)

	f, ok = s.Lookup("e-MAIL")
	require.True(t, ok)
	assert.Equal(t, "Email", f.Name)
	assert.False(t, f.Optional)

	f, ok = s.Lookup("email")
	require.True(t, ok, "name lookup falls back after titles")
	assert.Equal(t, "E-mail", f.DisplayName)

	_, ok = s.Lookup("Password")
	assert.False(t, ok)
	_, ok = s.Lookup("Tags")
	assert.False(t, ok)
	_, ok = s.Lookup("Note")
	assert.False(t, ok, "fields behind embedded pointers are skipped")

	f, ok = s.Lookup("CreatedAt")
	require.True(t, ok)
	assert.Equal(t, []int{0, 0}, f.Index)
	assert.Equal(t, convert.DateTime, f.Kind)
	assert.True(t, f.Optional)
}

func TestStructProvider_IncludeReferenceTypes(t *testing.T) {
	s, err := StructProvider{IncludeReferenceTypes: true}.Schema(reflect.TypeOf(&person{}))
	require.NoError(t, err)

	f, ok := s.Lookup("Tags")
	require.True(t, ok)
	assert.Equal(t, convert.Other, f.Kind)
}

func TestStructProvider_Cached(t *testing.T) {
	var wg sync.WaitGroup
	results := make([]*Schema, 8)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = MustOf[person]()
		}()
	}
	wg.Wait()

	for _, s := range results {
		assert.Same(t, results[0], s)
	}
}

func TestStructProvider_NotStruct(t *testing.T) {
	_, err := Of[int]()
	assert.True(t, errors.Is(err, ErrNotStruct))

	_, err = Default.Schema(nil)
	assert.True(t, errors.Is(err, ErrNotStruct))
}

func TestNew(t *testing.T) {
	typ := reflect.TypeOf(struct{ A, B, C string }{})
	s, err := New(typ, []FieldDescriptor{
		{Name: "A", Order: Last, Index: []int{0}},
		{Name: "B", Order: Last, Index: []int{1}, DisplayName: "Bee"},
		{Name: "C", Order: 1, Index: []int{2}},
		{Name: "D", Ignored: true},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "A", "Bee"}, s.Titles())

	rec := s.New()
	require.IsType(t, &struct{ A, B, C string }{}, rec)
}

func TestNew_Duplicates(t *testing.T) {
	typ := reflect.TypeOf(struct{ A, B string }{})

	_, err := New(typ, []FieldDescriptor{{Name: "A"}, {Name: "a", DisplayName: "x"}})
	assert.True(t, errors.Is(err, ErrDuplicateField))

	_, err = New(typ, []FieldDescriptor{{Name: "A", DisplayName: "T"}, {Name: "B", DisplayName: "t"}})
	assert.True(t, errors.Is(err, ErrDuplicateField))

	_, err = New(reflect.TypeOf(0), nil)
	assert.True(t, errors.Is(err, ErrNotStruct))
}

func TestParseTag(t *testing.T) {
	assert.Equal(t, map[string]string{"NAME": "x", "ORDER": "2"}, parseTag("name:x; order:2"))
	assert.Equal(t, map[string]string{"IGNORE": ""}, parseTag("-"))
	assert.Equal(t, map[string]string{"ORDER": "5", "OPTIONAL": ""}, parseTag("order:5;optional"))
	assert.Empty(t, parseTag(""))
}
