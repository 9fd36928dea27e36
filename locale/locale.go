// Package locale resolves the cultures a dialect formats numbers and dates with.
//
// A Culture is always chosen explicitly by the caller; nothing in this package
// reads the process locale. Number separators come from the CLDR tables shipped
// with go-playground/locales, date and time patterns from the table below.
package locale

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode"

	"github.com/go-playground/locales"
	"github.com/go-playground/locales/de_DE"
	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/en_GB"
	"github.com/go-playground/locales/en_US"
	"github.com/go-playground/locales/fr_FR"
	"github.com/go-playground/locales/nl_NL"
	ut "github.com/go-playground/universal-translator"
	"golang.org/x/text/language"
)

// ErrUnknownCulture is returned by Lookup for tags with no supported culture.
var ErrUnknownCulture = errors.New("locale: unknown culture")

// InvariantName is the name Lookup accepts for the Invariant culture.
const InvariantName = "invariant"

// Culture holds the formatting conventions of one locale.
type Culture struct {
	Name       string       // BCP 47 name, or "invariant"
	Tag        language.Tag // parsed tag, language.Und for Invariant
	Decimal    string       // decimal separator
	Group      string       // digit group separator, accepted on read only
	DateLayout string       // short date pattern (time package layout)
	TimeLayout string       // long time pattern (time package layout)
}

// Invariant is the culture-neutral default used by dialect.Default.
var Invariant = Culture{
	Name:       InvariantName,
	Tag:        language.Und,
	Decimal:    ".",
	Group:      ",",
	DateLayout: "01/02/2006",
	TimeLayout: "15:04:05",
}

// IsZero reports whether c was never set.
func (c Culture) IsZero() bool {
	return c.Name == "" && c.Decimal == ""
}

func (c Culture) String() string {
	return c.Name
}

// DateTimeLayout is the pattern used for values that carry a clock part.
func (c Culture) DateTimeLayout() string {
	return c.DateLayout + " " + c.TimeLayout
}

// WriteDateTimeLayout is DateTimeLayout with fractional seconds, which the time
// package accepts on parse even though the read layout omits them.
func (c Culture) WriteDateTimeLayout() string {
	return c.DateLayout + " " + strings.Replace(c.TimeLayout, "05", "05.999999999", 1)
}

type entry struct {
	tag   language.Tag
	trans func() locales.Translator
	date  string
	time  string
}

var supported = []entry{
	{language.AmericanEnglish, en_US.New, "1/2/2006", "3:04:05 PM"},
	{language.BritishEnglish, en_GB.New, "02/01/2006", "15:04:05"},
	{language.MustParse("nl-NL"), nl_NL.New, "2-1-2006", "15:04:05"},
	{language.MustParse("de-DE"), de_DE.New, "02.01.2006", "15:04:05"},
	{language.MustParse("fr-FR"), fr_FR.New, "02/01/2006", "15:04:05"},
}

var (
	buildOnce sync.Once
	cultures  []Culture
	matcher   language.Matcher
)

func build() {
	translators := make([]locales.Translator, 0, len(supported))
	tags := make([]language.Tag, 0, len(supported))
	for _, e := range supported {
		translators = append(translators, e.trans())
		tags = append(tags, e.tag)
	}
	uni := ut.New(en.New(), translators...)

	cultures = make([]Culture, 0, len(supported))
	for _, e := range supported {
		trans, found := uni.GetTranslator(translatorKey(e.tag))
		if !found {
			panic(fmt.Sprintf("locale: no translator registered for %s", e.tag))
		}
		decimal, group := separators(trans)
		cultures = append(cultures, Culture{
			Name:       e.tag.String(),
			Tag:        e.tag,
			Decimal:    decimal,
			Group:      group,
			DateLayout: e.date,
			TimeLayout: e.time,
		})
	}
	matcher = language.NewMatcher(tags)
}

// Lookup returns the supported culture that best matches name.
// The empty string, "invariant" and "und" select Invariant.
func Lookup(name string) (Culture, error) {
	name = strings.TrimSpace(name)
	switch strings.ToLower(name) {
	case "", InvariantName, "und":
		return Invariant, nil
	}

	tag, err := language.Parse(name)
	if err != nil {
		return Culture{}, fmt.Errorf("%w: %q: %v", ErrUnknownCulture, name, err)
	}

	buildOnce.Do(build)
	_, idx, conf := matcher.Match(tag)
	if conf == language.No {
		return Culture{}, fmt.Errorf("%w: %q", ErrUnknownCulture, name)
	}
	return cultures[idx], nil
}

// MustLookup is Lookup for package-level variables and tests.
func MustLookup(name string) Culture {
	c, err := Lookup(name)
	if err != nil {
		panic(err)
	}
	return c
}

// Supported lists the names Lookup resolves exactly, Invariant first.
func Supported() []string {
	names := []string{InvariantName}
	for _, e := range supported {
		names = append(names, e.tag.String())
	}
	return names
}

// translatorKey maps "nl-NL" to the "nl_NL" key used by go-playground/locales.
func translatorKey(tag language.Tag) string {
	return strings.ReplaceAll(tag.String(), "-", "_")
}

// separators reads the translator's number formatting for its decimal and
// group separators.
func separators(t locales.Translator) (decimal, group string) {
	decimal = strings.TrimFunc(t.FmtNumber(1.5, 1), unicode.IsDigit)
	if decimal == "" {
		decimal = "."
	}
	grouped := strings.TrimLeftFunc(t.FmtNumber(1234567, 0), unicode.IsDigit)
	if i := strings.IndexFunc(grouped, unicode.IsDigit); i > 0 {
		group = grouped[:i]
	}
	return decimal, group
}
