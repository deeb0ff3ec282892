package text

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks decomposes and drops nonspacing marks. The result is left
// decomposed, matching the BERT normalizer.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))

// Clean applies the BERT-style generic cleaning: NUL, U+FFFD and control or
// format characters are dropped, every whitespace rune becomes a single ASCII
// space, accents are stripped and Latin letters are lower-cased. CJK
// characters are kept in place with no separators inserted.
func Clean(s string) string {
	if s == "" {
		return ""
	}

	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r == 0, r == unicode.ReplacementChar:
			return -1
		case isWhitespace(r):
			return ' '
		case isControl(r):
			return -1
		default:
			return r
		}
	}, s)

	stripped, _, err := transform.String(stripMarks, cleaned)
	if err != nil {
		// transform only fails on invalid UTF-8, which strings.Map has already
		// replaced; keep the unstripped text rather than lose input.
		stripped = cleaned
	}

	return strings.ToLower(stripped)
}

func isWhitespace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r':
		return true
	}

	return unicode.Is(unicode.Zs, r)
}

func isControl(r rune) bool {
	switch r {
	case '\t', '\n', '\r':
		return false
	}

	return unicode.In(r, unicode.Cc, unicode.Cf, unicode.Co, unicode.Cs)
}
