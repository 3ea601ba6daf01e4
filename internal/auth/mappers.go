package auth

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Mapper transforms a directory value before it is stored locally.
type Mapper func(string) string

// Mappers holds the username, email and full name transforms. A nil mapper
// leaves the value unchanged.
type Mappers struct {
	Username Mapper
	Email    Mapper
	FullName Mapper
}

func (m Mapper) apply(value string) string {
	if m == nil {
		return value
	}
	return m(value)
}

func Identity(value string) string {
	return value
}

func Lower(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func Trim(value string) string {
	return strings.Join(strings.Fields(value), " ")
}

// Slugify folds value to lower-case ASCII letters, digits, underscores and
// single dashes, e.g. "José Núñez" becomes "jose-nunez".
func Slugify(value string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, value)
	if err != nil {
		folded = value
	}

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(folded) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'):
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimRight(b.String(), "-")
}

var mappers = map[string]Mapper{
	"":         Identity,
	"identity": Identity,
	"lower":    Lower,
	"trim":     Trim,
	"slug":     Slugify,
}

// MapperByName returns a built-in mapper.
func MapperByName(name string) (Mapper, error) {
	m, ok := mappers[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("unknown mapper %q", name)
	}
	return m, nil
}
