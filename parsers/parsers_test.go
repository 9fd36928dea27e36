package parsers

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"csv-exchange/codec"
	"csv-exchange/dialect"
	"csv-exchange/locale"
)

type person struct {
	ID     string    `csv:"name:id"`
	Email  string    `csv:"name:email"`
	Name   string    `csv:"name:name"`
	Active bool      `csv:"name:active"`
	Joined time.Time `csv:"name:joined"`
}

type article struct {
	ID     string   `json:"id"`
	Slug   string   `json:"slug"`
	Title  string   `json:"title"`
	Status string   `json:"status"`
	Tags   []string `json:"tags"`
}

func collect[T any](records <-chan Row[T], errs <-chan error) ([]Row[T], []error) {
	var allRecords []Row[T]
	for record := range records {
		allRecords = append(allRecords, record)
	}
	var allErrors []error
	for err := range errs {
		allErrors = append(allErrors, err)
	}
	return allRecords, allErrors
}

func newCodec(t *testing.T, d dialect.Dialect, opts ...codec.Option) *codec.Codec {
	t.Helper()
	c, err := codec.New(d, opts...)
	require.NoError(t, err)
	return c
}

func TestParseCSV_ValidData(t *testing.T) {
	csvData := `id,email,name,active,joined
user1,test@example.com,Test User,True,03/01/2024
user2,test2@example.com,Test User 2,False,03/02/2024 10:30:00`

	records, errs := ParseCSV[person](context.Background(), strings.NewReader(csvData), newCodec(t, dialect.Default()))
	allRecords, allErrors := collect(records, errs)

	require.Len(t, allRecords, 2, "Should parse 2 records")
	assert.Empty(t, allErrors, "Should have no errors")

	assert.Equal(t, 1, allRecords[0].Number)
	assert.Equal(t, person{
		ID:     "user1",
		Email:  "test@example.com",
		Name:   "Test User",
		Active: true,
		Joined: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}, allRecords[0].Record)

	assert.Equal(t, 2, allRecords[1].Number)
	assert.False(t, allRecords[1].Record.Active)
	assert.Equal(t, time.Date(2024, 3, 2, 10, 30, 0, 0, time.UTC), allRecords[1].Record.Joined)
}

func TestParseCSV_EmptyFile(t *testing.T) {
	records, errs := ParseCSV[person](context.Background(), strings.NewReader(""), newCodec(t, dialect.Default()))
	allRecords, allErrors := collect(records, errs)

	assert.Empty(t, allRecords)
	require.Len(t, allErrors, 1)
	assert.True(t, errors.Is(allErrors[0], codec.ErrMalformedDocument), "empty document has no header")
}

func TestParseCSV_MissingValues(t *testing.T) {
	csvData := `id,email,name
user1,test@example.com
user2,test2@example.com,User 2`

	records, errs := ParseCSV[person](context.Background(), strings.NewReader(csvData), newCodec(t, dialect.Default()))
	allRecords, allErrors := collect(records, errs)

	assert.Empty(t, allErrors)
	require.Len(t, allRecords, 2)
	assert.Equal(t, "", allRecords[0].Record.Name, "Missing value should be empty string")
	assert.Equal(t, "User 2", allRecords[1].Record.Name)
}

func TestParseCSV_SeparatorsInValues(t *testing.T) {
	d := dialect.Default().WithSeparator(';').WithCulture(locale.MustLookup("nl-NL")).WithPlaceholders()
	d.Quoting = dialect.QuoteDouble

	csvData := "sep=,\n" +
		`"id","name","email"` + "\n" +
		`"1","Smith¦ John","john@example.com"` + "\n" +
		`"2","Jane ""JJ""¶Doe","jane@example.com"`

	records, errs := ParseCSV[person](context.Background(), strings.NewReader(csvData), newCodec(t, d))
	allRecords, allErrors := collect(records, errs)

	assert.Empty(t, allErrors)
	require.Len(t, allRecords, 2)
	assert.Equal(t, "Smith, John", allRecords[0].Record.Name)
	assert.Equal(t, "Jane \"JJ\"\nDoe", allRecords[1].Record.Name)
}

func TestParseCSV_ContinueOnError(t *testing.T) {
	csvData := `id,active
a,True
b,maybe
c,False
d,nope`

	c := newCodec(t, dialect.Default(), codec.ContinueOnError())
	records, errs := ParseCSV[person](context.Background(), strings.NewReader(csvData), c)
	allRecords, allErrors := collect(records, errs)

	require.Len(t, allRecords, 2)
	assert.Equal(t, "a", allRecords[0].Record.ID)
	assert.Equal(t, 3, allRecords[1].Number)

	require.Len(t, allErrors, 2)
	var re *codec.RowError
	require.True(t, errors.As(allErrors[0], &re))
	assert.Equal(t, 2, re.Row)
	assert.Equal(t, "active", re.Field)
	require.True(t, errors.As(allErrors[1], &re))
	assert.Equal(t, 4, re.Row)
}

func TestParseCSV_StopsOnFirstError(t *testing.T) {
	csvData := `id,active
a,True
b,maybe
c,False`

	records, errs := ParseCSV[person](context.Background(), strings.NewReader(csvData), newCodec(t, dialect.Default()))
	allRecords, allErrors := collect(records, errs)

	assert.Len(t, allRecords, 1)
	require.Len(t, allErrors, 1)
	var re *codec.RowError
	assert.True(t, errors.As(allErrors[0], &re))
}

func TestParseCSV_Cancel(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("id\n")
	for i := 0; i < 500; i++ {
		sb.WriteString("x\n")
	}

	ctx, cancel := context.WithCancel(context.Background())
	records, errs := ParseCSV[person](ctx, strings.NewReader(sb.String()), newCodec(t, dialect.Default()))

	<-records
	cancel()
	for range records {
	}
	for range errs {
	}
}

func TestParseNDJSON_ValidData(t *testing.T) {
	ndjsonData := `{"id":"article1","slug":"test-article","title":"Test Article","status":"published"}
{"id":"article2","slug":"draft-article","title":"Draft Article","status":"draft"}`

	records, errs := ParseNDJSON[article](context.Background(), strings.NewReader(ndjsonData))
	allRecords, allErrors := collect(records, errs)

	require.Len(t, allRecords, 2, "Should parse 2 records")
	assert.Empty(t, allErrors, "Should have no errors")

	assert.Equal(t, "article1", allRecords[0].Record.ID)
	assert.Equal(t, "test-article", allRecords[0].Record.Slug)
	assert.Equal(t, "published", allRecords[0].Record.Status)
	assert.Equal(t, "draft", allRecords[1].Record.Status)
}

func TestParseNDJSON_EmptyLines(t *testing.T) {
	ndjsonData := `{"id":"article1","title":"First"}

{"id":"article2","title":"Second"}
`

	records, errs := ParseNDJSON[article](context.Background(), strings.NewReader(ndjsonData))
	allRecords, _ := collect(records, errs)

	require.Len(t, allRecords, 2, "Should skip empty lines")
	assert.Equal(t, 1, allRecords[0].Number)
	assert.Equal(t, 3, allRecords[1].Number)
}

func TestParseNDJSON_InvalidJSON(t *testing.T) {
	ndjsonData := `{"id":"article1","title":"Valid"}
{invalid json}
{"id":"article2","title":"Valid Again"}
{"id":"article3","tags":"not-an-array"}`

	records, errs := ParseNDJSON[article](context.Background(), strings.NewReader(ndjsonData))
	allRecords, allErrors := collect(records, errs)

	assert.Len(t, allRecords, 2, "Should parse valid records")
	require.Len(t, allErrors, 2, "Should report the invalid lines")

	var le *LineError
	require.True(t, errors.As(allErrors[0], &le))
	assert.Equal(t, 2, le.Line)
	require.True(t, errors.As(allErrors[1], &le))
	assert.Equal(t, 4, le.Line)
}

func TestParseNDJSON_NestedObjects(t *testing.T) {
	ndjsonData := `{"id":"1","author":{"id":"auth1","name":"John"},"tags":["go","test"]}
{"id":"2","metadata":{"count":5,"active":true}}`

	records, errs := ParseNDJSON[map[string]any](context.Background(), strings.NewReader(ndjsonData))
	allRecords, _ := collect(records, errs)

	require.Len(t, allRecords, 2)

	author := allRecords[0].Record["author"].(map[string]any)
	assert.Equal(t, "auth1", author["id"])
	assert.Equal(t, "John", author["name"])

	tags := allRecords[0].Record["tags"].([]any)
	assert.Len(t, tags, 2)
	assert.Equal(t, "go", tags[0])
}

func TestParseNDJSON_EmptyFile(t *testing.T) {
	records, errs := ParseNDJSON[article](context.Background(), strings.NewReader(""))
	allRecords, allErrors := collect(records, errs)

	assert.Empty(t, allRecords)
	assert.Empty(t, allErrors)
}

func TestParseNDJSON_LineTooLong(t *testing.T) {
	long := `{"title":"` + strings.Repeat("x", maxLine) + `"}`

	records, errs := ParseNDJSON[article](context.Background(), strings.NewReader(long))
	allRecords, allErrors := collect(records, errs)

	assert.Empty(t, allRecords)
	require.Len(t, allErrors, 1)
	var le *LineError
	assert.True(t, errors.As(allErrors[0], &le))
}
