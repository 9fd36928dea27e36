// Package config loads dialect profiles: named, file-based descriptions of a
// dialect.Dialect that can be shared between the service, the CLI and HTTP
// clients.
package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"csv-exchange/dialect"
	"csv-exchange/locale"
)

// Profile is the serialisable form of a dialect. Unset fields keep the value
// of dialect.Default.
type Profile struct {
	Separator        string        `json:"separator,omitempty"`
	Quoting          string        `json:"quoting,omitempty"`
	Escape           string        `json:"escape,omitempty"`
	Placeholders     *Placeholders `json:"placeholders,omitempty"`
	Header           *bool         `json:"header,omitempty"`
	RowNumbers       *bool         `json:"row_numbers,omitempty"`
	RowNumberTitle   string        `json:"row_number_title,omitempty"`
	EOFSentinel      *bool         `json:"eof_sentinel,omitempty"`
	IgnoreEmptyLines *bool         `json:"ignore_empty_lines,omitempty"`
	TrimSpace        *bool         `json:"trim_space,omitempty"`
	Culture          string        `json:"culture,omitempty"`
}

type Placeholders struct {
	Separator string `json:"separator,omitempty"`
	Newline   string `json:"newline,omitempty"`
}

// Dialect resolves p against dialect.Default and validates the result.
func (p Profile) Dialect() (dialect.Dialect, error) {
	d := dialect.Default()

	if p.Separator != "" {
		r, err := singleRune("separator", p.Separator)
		if err != nil {
			return d, err
		}
		d.Separator = r
	}

	switch strings.ToLower(p.Quoting) {
	case "", "none":
		d.Quoting = dialect.QuoteNone
	case "double":
		d.Quoting = dialect.QuoteDouble
	default:
		return d, invalid("quoting", fmt.Sprintf("unknown mode %q", p.Quoting))
	}

	if p.Placeholders != nil {
		if p.Placeholders.Separator != "" {
			r, err := singleRune("placeholders.separator", p.Placeholders.Separator)
			if err != nil {
				return d, err
			}
			d.SeparatorPlaceholder = r
		}
		if p.Placeholders.Newline != "" {
			r, err := singleRune("placeholders.newline", p.Placeholders.Newline)
			if err != nil {
				return d, err
			}
			d.NewlinePlaceholder = r
		}
	}

	switch strings.ToLower(p.Escape) {
	case "", "none":
		d.EscapeMode = dialect.EscapeNone
	case "placeholder", "placeholders":
		d = d.WithPlaceholders()
	default:
		return d, invalid("escape", fmt.Sprintf("unknown mode %q", p.Escape))
	}

	setBool(&d.UseHeader, p.Header)
	setBool(&d.UseRowNumberColumn, p.RowNumbers)
	setBool(&d.UseEOFSentinel, p.EOFSentinel)
	setBool(&d.IgnoreEmptyLines, p.IgnoreEmptyLines)
	setBool(&d.TrimSpace, p.TrimSpace)
	if p.RowNumberTitle != "" {
		d.RowNumberColumnTitle = p.RowNumberTitle
	}

	culture, err := locale.Lookup(p.Culture)
	if err != nil {
		return d, invalid("culture", err.Error())
	}
	d.Culture = culture

	return d, d.Validate()
}

// Merge returns p with every field that is set in o taken from o.
func (p Profile) Merge(o Profile) Profile {
	if o.Separator != "" {
		p.Separator = o.Separator
	}
	if o.Quoting != "" {
		p.Quoting = o.Quoting
	}
	if o.Escape != "" {
		p.Escape = o.Escape
	}
	if o.Placeholders != nil {
		merged := Placeholders{}
		if p.Placeholders != nil {
			merged = *p.Placeholders
		}
		if o.Placeholders.Separator != "" {
			merged.Separator = o.Placeholders.Separator
		}
		if o.Placeholders.Newline != "" {
			merged.Newline = o.Placeholders.Newline
		}
		p.Placeholders = &merged
	}
	for _, f := range []struct{ dst, src **bool }{
		{&p.Header, &o.Header},
		{&p.RowNumbers, &o.RowNumbers},
		{&p.EOFSentinel, &o.EOFSentinel},
		{&p.IgnoreEmptyLines, &o.IgnoreEmptyLines},
		{&p.TrimSpace, &o.TrimSpace},
	} {
		if *f.src != nil {
			*f.dst = *f.src
		}
	}
	if o.RowNumberTitle != "" {
		p.RowNumberTitle = o.RowNumberTitle
	}
	if o.Culture != "" {
		p.Culture = o.Culture
	}
	return p
}

// ProfileFromQuery reads a profile from URL query parameters. Keys match the
// JSON field names; placeholders use separator_placeholder and
// newline_placeholder.
func ProfileFromQuery(q url.Values) (Profile, error) {
	p := Profile{
		Separator:      q.Get("separator"),
		Quoting:        q.Get("quoting"),
		Escape:         q.Get("escape"),
		RowNumberTitle: q.Get("row_number_title"),
		Culture:        q.Get("culture"),
	}
	if sep, nl := q.Get("separator_placeholder"), q.Get("newline_placeholder"); sep != "" || nl != "" {
		p.Placeholders = &Placeholders{Separator: sep, Newline: nl}
	}

	for _, f := range []struct {
		key string
		dst **bool
	}{
		{"header", &p.Header},
		{"row_numbers", &p.RowNumbers},
		{"eof_sentinel", &p.EOFSentinel},
		{"ignore_empty_lines", &p.IgnoreEmptyLines},
		{"trim_space", &p.TrimSpace},
	} {
		raw := q.Get(f.key)
		if raw == "" {
			continue
		}
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return p, invalid(f.key, fmt.Sprintf("not a boolean: %q", raw))
		}
		*f.dst = &b
	}
	return p, nil
}

// Bool returns a pointer to b, for building profiles in code.
func Bool(b bool) *bool {
	return &b
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

var runeAliases = map[string]rune{
	"tab":   '\t',
	"space": ' ',
}

func singleRune(field, s string) (rune, error) {
	if r, ok := runeAliases[strings.ToLower(s)]; ok {
		return r, nil
	}
	if utf8.RuneCountInString(s) != 1 {
		return 0, invalid(field, fmt.Sprintf("must be a single character, got %q", s))
	}
	r, _ := utf8.DecodeRuneInString(s)
	return r, nil
}

func invalid(field, reason string) error {
	return &dialect.ConfigurationError{Field: field, Reason: reason}
}
