// Package dialect describes the formatting choices of one CSV encode or decode call.
package dialect

import (
	"errors"
	"fmt"
	"strings"

	"csv-exchange/locale"
)

// ErrInvalidDialect is matched by every *ConfigurationError.
var ErrInvalidDialect = errors.New("invalid dialect")

// Default placeholder characters installed by WithPlaceholders.
const (
	DefaultSeparatorPlaceholder = '¦'
	DefaultNewlinePlaceholder   = '¶'
	DefaultRowNumberTitle       = "RowNumber"
	EOFToken                    = "EOF"
	Quote                       = '"'
)

// Quoting selects whether values are wrapped in quote characters.
type Quoting int

const (
	QuoteNone Quoting = iota
	QuoteDouble
)

func (q Quoting) String() string {
	switch q {
	case QuoteNone:
		return "none"
	case QuoteDouble:
		return "double"
	default:
		return fmt.Sprintf("Quoting(%d)", int(q))
	}
}

// EscapeMode selects how separators and line breaks inside values are escaped.
type EscapeMode int

const (
	EscapeNone EscapeMode = iota
	EscapePlaceholder
)

func (m EscapeMode) String() string {
	switch m {
	case EscapeNone:
		return "none"
	case EscapePlaceholder:
		return "placeholder"
	default:
		return fmt.Sprintf("EscapeMode(%d)", int(m))
	}
}

// Dialect is a value type. Codecs copy it on entry and never write back.
type Dialect struct {
	Separator            rune
	Quoting              Quoting
	EscapeMode           EscapeMode
	SeparatorPlaceholder rune
	NewlinePlaceholder   rune
	UseHeader            bool
	UseRowNumberColumn   bool
	RowNumberColumnTitle string
	UseEOFSentinel       bool
	IgnoreEmptyLines     bool
	// TrimSpace strips surrounding white space from every cell on decode.
	TrimSpace bool
	Culture   locale.Culture
}

// Default returns the comma separated dialect with a header line and the
// invariant culture.
func Default() Dialect {
	return Dialect{
		Separator:            ',',
		Quoting:              QuoteNone,
		EscapeMode:           EscapeNone,
		UseHeader:            true,
		RowNumberColumnTitle: DefaultRowNumberTitle,
		IgnoreEmptyLines:     true,
		Culture:              locale.Invariant,
	}
}

// WithPlaceholders returns a copy of d with placeholder escaping enabled.
// Placeholders already set on d are kept.
func (d Dialect) WithPlaceholders() Dialect {
	d.EscapeMode = EscapePlaceholder
	if d.SeparatorPlaceholder == 0 {
		d.SeparatorPlaceholder = DefaultSeparatorPlaceholder
	}
	if d.NewlinePlaceholder == 0 {
		d.NewlinePlaceholder = DefaultNewlinePlaceholder
	}
	return d
}

// WithSeparator returns a copy of d using sep.
func (d Dialect) WithSeparator(sep rune) Dialect {
	d.Separator = sep
	return d
}

// WithCulture returns a copy of d using c.
func (d Dialect) WithCulture(c locale.Culture) Dialect {
	d.Culture = c
	return d
}

// Escaping reports whether placeholder substitution is active.
func (d Dialect) Escaping() bool {
	return d.EscapeMode == EscapePlaceholder
}

// Quoted reports whether values are wrapped in quotes.
func (d Dialect) Quoted() bool {
	return d.Quoting == QuoteDouble
}

// Validate checks d before any input is read or output written.
func (d Dialect) Validate() error {
	switch {
	case d.Separator == 0:
		return configErr("Separator", "must be set")
	case isLineBreak(d.Separator):
		return configErr("Separator", "must not be a line break")
	case d.Quoted() && d.Separator == Quote:
		return configErr("Separator", "must differ from the quote character")
	}

	if d.Quoting != QuoteNone && d.Quoting != QuoteDouble {
		return configErr("Quoting", fmt.Sprintf("unsupported value %d", int(d.Quoting)))
	}
	if d.EscapeMode != EscapeNone && d.EscapeMode != EscapePlaceholder {
		return configErr("EscapeMode", fmt.Sprintf("unsupported value %d", int(d.EscapeMode)))
	}
	if d.Culture.IsZero() {
		return configErr("Culture", "must be set explicitly")
	}
	if d.UseRowNumberColumn && d.RowNumberColumnTitle == "" {
		return configErr("RowNumberColumnTitle", "must be set when row numbers are enabled")
	}

	if !d.Escaping() {
		if strings.ContainsRune(cultureText(d.Culture), d.Separator) {
			return configErr("Separator", fmt.Sprintf(
				"%q occurs in numbers or dates written under culture %s; pick another separator or enable placeholder escaping",
				d.Separator, d.Culture))
		}
		return nil
	}
	for _, p := range []struct {
		field string
		r     rune
	}{
		{"SeparatorPlaceholder", d.SeparatorPlaceholder},
		{"NewlinePlaceholder", d.NewlinePlaceholder},
	} {
		if p.r == 0 {
			return configErr(p.field, "must be set when placeholder escaping is enabled")
		}
		if isLineBreak(p.r) {
			return configErr(p.field, "must not be a line break")
		}
		if d.Quoted() && p.r == Quote {
			return configErr(p.field, "must differ from the quote character")
		}
	}
	if d.Separator == d.SeparatorPlaceholder ||
		d.Separator == d.NewlinePlaceholder ||
		d.SeparatorPlaceholder == d.NewlinePlaceholder {
		return configErr("SeparatorPlaceholder", fmt.Sprintf(
			"separator %q and placeholders %q, %q must be distinct",
			d.Separator, d.SeparatorPlaceholder, d.NewlinePlaceholder))
	}
	return nil
}

// cultureText holds every character c may write into a number or date cell.
func cultureText(c locale.Culture) string {
	return "-0123456789" + c.Decimal + c.WriteDateTimeLayout()
}

func isLineBreak(r rune) bool {
	return r == '\n' || r == '\r'
}
