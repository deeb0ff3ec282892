package segment

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/armon/go-radix"
)

// DefaultMaxWordLength is the longest dictionary word, in characters, that
// the Cantonese segmenter will match.
const DefaultMaxWordLength = 5

// Cantonese segments by longest string matching: at each position it takes
// the longest dictionary word starting there, or a single character when no
// word matches. Runs of Latin letters or digits stay whole and whitespace runs
// are emitted as their own segments.
type Cantonese struct {
	words   *radix.Tree
	maxRune int
}

// NewCantonese reads a word list from dictPath. Each non-blank line holds one
// word; anything after the first whitespace (frequency, jyutping) is ignored.
func NewCantonese(dictPath string, maxWordLength int) (*Cantonese, error) {
	if err := checkDictPath(dictPath); err != nil {
		return nil, err
	}

	f, err := os.Open(dictPath)
	if err != nil {
		return nil, fmt.Errorf("open cantonese dictionary: %w", err)
	}
	defer func() { _ = f.Close() }()

	var words []string

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		words = append(words, fields[0])
	}

	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read cantonese dictionary %q: %w", dictPath, err)
	}

	if len(words) == 0 {
		return nil, fmt.Errorf("cantonese dictionary %q has no words", dictPath)
	}

	return NewCantoneseFromWords(words, maxWordLength), nil
}

// NewCantoneseFromWords builds a segmenter over an in-memory word list.
// Words longer than maxWordLength characters are ignored; a non-positive
// maxWordLength selects DefaultMaxWordLength.
func NewCantoneseFromWords(words []string, maxWordLength int) *Cantonese {
	if maxWordLength <= 0 {
		maxWordLength = DefaultMaxWordLength
	}

	tree := radix.New()
	for _, w := range words {
		n := utf8.RuneCountInString(w)
		if n < 2 || n > maxWordLength {
			continue
		}
		tree.Insert(w, struct{}{})
	}

	return &Cantonese{words: tree, maxRune: maxWordLength}
}

// Len reports the number of dictionary words in use.
func (c *Cantonese) Len() int { return c.words.Len() }

// MaxWordLength is the longest word, in characters, the segmenter matches.
func (c *Cantonese) MaxWordLength() int { return c.maxRune }

// Segment cuts text into words.
func (c *Cantonese) Segment(text string) []string {
	if text == "" {
		return nil
	}

	var out []string

	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])

		switch {
		case unicode.IsSpace(r):
			n := runLength(text[i:], unicode.IsSpace)
			out = append(out, text[i:i+n])
			i += n
		case isAlnum(r) && !isHan(r):
			n := runLength(text[i:], func(r rune) bool { return isAlnum(r) && !isHan(r) })
			out = append(out, text[i:i+n])
			i += n
		default:
			n := size
			if word, _, ok := c.words.LongestPrefix(text[i:]); ok {
				n = len(word)
			}
			out = append(out, text[i:i+n])
			i += n
		}
	}

	return out
}

func runLength(s string, keep func(rune) bool) int {
	n := 0
	for _, r := range s {
		if !keep(r) {
			break
		}
		n += utf8.RuneLen(r)
	}

	return n
}

func isAlnum(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func isHan(r rune) bool {
	return unicode.Is(unicode.Han, r)
}

// splitPreserving is the dictionary-free fallback: whitespace runs, Latin or
// digit runs and single characters.
func splitPreserving(text string) []string {
	return (&Cantonese{words: radix.New(), maxRune: 1}).Segment(text)
}
