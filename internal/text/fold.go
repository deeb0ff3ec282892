package text

import "strings"

const (
	midlineEllipsis  = '\u22EF'
	ideographicSpace = '\u3000'
	fullwidthFirst   = '\uFF01'
	fullwidthLast    = '\uFF5E'
	fullwidthOffset  = 0xFEE0
)

// FoldPunctuation maps CJK typesetting forms onto ASCII, code point by code
// point:
//
//	U+22EF          -> "..."
//	U+3000          -> ' '
//	U+FF01..U+FF5E  -> U+0021..U+007E
//
// Everything else is copied unchanged. The fold is idempotent.
func FoldPunctuation(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	for _, r := range s {
		switch {
		case r == midlineEllipsis:
			b.WriteString("...")
		case r == ideographicSpace:
			b.WriteByte(' ')
		case r >= fullwidthFirst && r <= fullwidthLast:
			b.WriteRune(r - fullwidthOffset)
		default:
			b.WriteRune(r)
		}
	}

	return b.String()
}
