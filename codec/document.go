package codec

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"csv-exchange/dialect"
	"csv-exchange/schema"
)

const byteOrderMark = "\uFEFF"

var directivePattern = regexp.MustCompile(`(?i)^sep=(.)$`)

func (c *Codec) encodeDocument(records reflect.Value, s *schema.Schema) (string, error) {
	d := c.dialect
	w := newRowWriter(s, d)

	lines := make([]string, 0, records.Len()+3)
	if d.Separator != ',' {
		lines = append(lines, "sep="+string(d.Separator))
	}
	if d.UseHeader {
		header, err := w.header()
		if err != nil {
			return "", err
		}
		lines = append(lines, header)
	}

	row := 0
	for i := 0; i < records.Len(); i++ {
		row++
		item := records.Index(i)
		if item.Kind() == reflect.Interface {
			item = item.Elem()
		}
		rec, err := recordValue(item, s.Type())
		if err != nil {
			return "", fmt.Errorf("row %d: %w", row, err)
		}
		line, err := w.encode(rec, row)
		if err != nil {
			return "", err
		}
		lines = append(lines, line)
	}

	if d.UseEOFSentinel {
		row++
		sentinel := dialect.EOFToken
		if d.UseRowNumberColumn {
			sentinel = strconv.Itoa(row) + string(d.Separator) + sentinel
		}
		lines = append(lines, sentinel)
	}

	return strings.TrimRightFunc(strings.Join(lines, c.terminator), spaceExcept(d.Separator)), nil
}

// decodeDocument walks directive, header and body, calling emit with a
// pointer to each decoded record.
func (c *Codec) decodeDocument(text string, s *schema.Schema, emit func(row int, rec reflect.Value) error) error {
	text = strings.TrimPrefix(text, byteOrderMark)
	if text == "" {
		return &FormatError{Line: 0, Reason: "empty document"}
	}
	lines := splitLines(text)

	// The directive overrides the separator for this call only; d is a copy.
	d := c.dialect
	pos := 0
	if m := directivePattern.FindStringSubmatch(lines[0]); m != nil {
		sep, _ := utf8.DecodeRuneInString(m[1])
		d.Separator = sep
		if err := d.Validate(); err != nil {
			return &FormatError{Line: 0, Reason: fmt.Sprintf("separator directive: %v", err)}
		}
		c.logger.Debug("csv separator directive", "separator", string(sep), "configured", string(c.dialect.Separator))
		pos++
	}

	var columns []string
	if d.UseHeader {
		if pos >= len(lines) || strings.TrimSpace(lines[pos]) == "" {
			return &FormatError{Line: pos, Reason: "missing header line"}
		}
		cells := newRowReader(s, nil, d)
		for _, cell := range cells.split(lines[pos]) {
			columns = append(columns, cells.unescape(cell))
		}
		pos++
	} else {
		if d.UseRowNumberColumn {
			columns = append(columns, d.RowNumberColumnTitle)
		}
		columns = append(columns, s.Titles()...)
	}

	r := newRowReader(s, columns, d)
	first := 0
	if d.UseRowNumberColumn {
		first = 1
	}

	var failed RowErrors
	row := 0
	for i := pos; i < len(lines); i++ {
		line := lines[i]
		if strings.TrimFunc(line, spaceExcept(d.Separator)) == "" {
			if !d.IgnoreEmptyLines {
				return &FormatError{Line: i, Reason: "empty line"}
			}
			c.logger.Debug("csv skipped empty line", "line", i)
			continue
		}

		parts := r.split(line)
		if len(parts) == first+1 && parts[first] == dialect.EOFToken {
			c.logger.Debug("csv end of data sentinel", "line", i, "ignored_lines", len(lines)-i-1)
			break
		}

		row++
		rec, err := r.decodeParts(parts, i)
		if err != nil {
			rowErr, ok := err.(*RowError)
			if !ok {
				return err
			}
			rowErr.Row = row
			if !c.continueOnError {
				return rowErr
			}
			failed = append(failed, rowErr)
			continue
		}
		if err := emit(row, rec); err != nil {
			return err
		}
	}

	if len(failed) > 0 {
		return failed
	}
	return nil
}

// spaceExcept matches white space other than sep, so a line of empty cells
// split by a tab or space separator is not taken for a blank line.
func spaceExcept(sep rune) func(rune) bool {
	return func(r rune) bool {
		return r != sep && unicode.IsSpace(r)
	}
}

// splitLines accepts "\n" and "\r\n" terminators. One terminator at the end
// of the text does not start another line.
func splitLines(text string) []string {
	lines := strings.Split(text, "\n")
	if n := len(lines); n > 1 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}
