// Package codec converts between slices of records and delimited text
// documents.
//
// A document consists of an optional separator directive, an optional header
// line, data lines and an optional end-of-data sentinel:
//
//	sep=;
//	RowNumber;Name;Price
//	1;Tea;2,5
//	2;Coffee;3
//	3;EOF
//
// # Dialects
//
// All formatting choices live in a dialect.Dialect, validated once by New.
// Values are converted with the dialect's culture (see package locale), then
// escaped: placeholder substitution replaces separators and line breaks inside
// a value with private characters, and quoting wraps each value in double
// quotes, doubling embedded quotes. Both may be enabled at once. Decoding
// reverses the steps.
//
// Lines are split on the separator before quotes are removed, so quoting
// alone does not protect a separator or line break inside a value. Use
// placeholder substitution for such values.
//
// A separator directive at the top of a document overrides the dialect's
// separator for that decode call only. The Codec and its dialect are never
// modified, so one Codec may serve concurrent calls.
//
// # Columns
//
// Cells are matched to fields by header title, ignoring case. Unknown columns
// are skipped and missing trailing cells leave fields at their zero value. A
// line with more cells than the header has columns is a FormatError. Field
// metadata comes from a schema.Provider, by default the csv struct tags read
// by schema.StructProvider.
//
// # Errors
//
// FormatError (ErrMalformedDocument) reports malformed text with its zero-based
// line index. Conversion failures are RowErrors wrapping a
// convert.ConversionError; with ContinueOnError they are collected into
// RowErrors while decoding continues. InvalidInputError (ErrInvalidInput)
// reports values that are not records.
//
// The whole document is read into memory before decoding starts.
package codec
