package common

import (
	"reflect"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"csv-exchange/codec"
	"csv-exchange/convert"
)

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		email string
		valid bool
	}{
		{"user@example.com", true},
		{"test.user+tag@domain.co.uk", true},
		{"", false},
		{"invalid", false},
		{"@domain.com", false},
		{"user@", false},
		{"user @domain.com", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.valid, ValidateEmail(tt.email), "ValidateEmail(%q)", tt.email)
	}
}

func TestValidateKebabCase(t *testing.T) {
	tests := []struct {
		input string
		valid bool
	}{
		{"hello-world", true},
		{"my-article-slug", true},
		{"single", true},
		{"with-123-numbers", true},
		{"", false},
		{"Hello-World", false},
		{"hello_world", false},
		{"hello world", false},
		{"-starts-with-dash", false},
		{"ends-with-dash-", false},
		{"double--dash", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.valid, ValidateKebabCase(tt.input), "ValidateKebabCase(%q)", tt.input)
	}
}

func TestCountWords(t *testing.T) {
	tests := []struct {
		input string
		count int
	}{
		{"", 0},
		{"hello", 1},
		{"hello world", 2},
		{"  multiple   spaces   between  ", 3},
		{"word1 word2 word3 word4 word5", 5},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.count, CountWords(tt.input), "CountWords(%q)", tt.input)
	}
}

func TestValidateRequiredAndEnum(t *testing.T) {
	assert.Nil(t, ValidateRequired("name", "Ada"))
	if err := ValidateRequired("name", "   "); assert.NotNil(t, err) {
		assert.Equal(t, "name", err.Field)
	}

	assert.Nil(t, ValidateEnum("role", "admin", []string{"admin", "reader"}))
	if err := ValidateEnum("role", "root", []string{"admin", "reader"}); assert.NotNil(t, err) {
		assert.Equal(t, "role must be one of: admin, reader", err.Message)
	}
}

func TestValidationError(t *testing.T) {
	result := NewResult(1, "test-id")

	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)
	assert.Empty(t, EncodeResults(nil))

	result.AddError("email", "Invalid email format")
	assert.False(t, result.Valid)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "email", result.Errors[0].Field)

	result.AddError("name", "Name is required")
	result.AddError("role", "Invalid role")
	assert.Len(t, result.Errors, 3)
	assert.JSONEq(t, `[{"row_number":1,"record_id":"test-id","valid":false,"errors":[
		{"field":"email","message":"Invalid email format"},
		{"field":"name","message":"Name is required"},
		{"field":"role","message":"Invalid role"}
	]}]`, EncodeResults([]RecordValidationResult{*result}))
}

func TestFromRowError(t *testing.T) {
	re := &codec.RowError{
		Line:  4,
		Row:   3,
		Field: "Active",
		Err: &convert.ConversionError{
			Kind: convert.Boolean,
			Type: reflect.TypeOf(true),
			Text: "yes",
			Err:  strconv.ErrSyntax,
		},
	}

	result := FromRowError(re)
	assert.Equal(t, 3, result.RowNumber)
	assert.False(t, result.Valid)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "Active", result.Errors[0].Field)
	assert.Equal(t, `cannot read "yes" as Boolean`, result.Errors[0].Message)
}

func TestEncodeDecodeResults(t *testing.T) {
	assert.Empty(t, EncodeResults(nil))

	results := []RecordValidationResult{*NewResult(2, "a")}
	results[0].AddError("email", "Email already exists")

	decoded, err := DecodeResults(EncodeResults(results))
	require.NoError(t, err)
	assert.Equal(t, results, decoded)

	none, err := DecodeResults("")
	require.NoError(t, err)
	assert.Nil(t, none)

	_, err = DecodeResults("{")
	assert.Error(t, err)
}
