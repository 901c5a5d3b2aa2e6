package task

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks decomposes to NFD and drops combining diacritical marks, so
// "quạt" and "quat" normalize to the same bytes.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))

// NormalizeSearchText builds the accent-insensitive composite string for
// substring search: lower-case, strip diacritics, map the Vietnamese đ
// grapheme to plain d (it carries a stroke, not a combining mark, so NFD
// leaves it alone), join non-empty fields with single spaces and collapse
// whitespace runs. The function is idempotent.
func NormalizeSearchText(fields ...string) string {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f != "" {
			parts = append(parts, f)
		}
	}

	s := strings.ToLower(strings.Join(parts, " "))
	s = strings.Map(func(r rune) rune {
		if r == 'đ' {
			return 'd'
		}
		return r
	}, s)

	if out, _, err := transform.String(stripMarks, s); err == nil {
		s = out
	}

	return strings.Join(strings.Fields(s), " ")
}
