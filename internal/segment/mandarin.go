package segment

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/go-ego/gse"
)

// Mandarin segments with a jieba-format dictionary: the best route through
// the dictionary DAG by word frequency, with an HMM covering runs of
// characters the dictionary does not know.
type Mandarin struct {
	seg *gse.Segmenter
}

// NewMandarin loads the dictionary at dictPath. Each line holds a word, its
// frequency and an optional part-of-speech tag.
func NewMandarin(dictPath string) (*Mandarin, error) {
	if err := checkDictPath(dictPath); err != nil {
		return nil, err
	}

	seg := &gse.Segmenter{SkipLog: true}
	if err := seg.LoadDict(dictPath); err != nil {
		return nil, fmt.Errorf("load mandarin dictionary %q: %w", dictPath, err)
	}

	return &Mandarin{seg: seg}, nil
}

// Segment cuts text into words.
func (m *Mandarin) Segment(text string) []string {
	if text == "" {
		return nil
	}

	parts := dropEmpty(m.seg.Cut(text, true))
	if strings.Join(parts, "") == text {
		return parts
	}

	// gse lower-cases Latin words; cut the original text at the same rune
	// boundaries instead.
	if restored, ok := restoreCase(text, parts); ok {
		return restored
	}

	return splitPreserving(text)
}

// restoreCase re-slices text along the rune lengths of parts, provided each
// slice matches its part case-insensitively.
func restoreCase(text string, parts []string) ([]string, bool) {
	out := make([]string, 0, len(parts))
	rest := text

	for _, p := range parts {
		n := utf8.RuneCountInString(p)

		end := 0
		for i := 0; i < n; i++ {
			if end >= len(rest) {
				return nil, false
			}
			_, size := utf8.DecodeRuneInString(rest[end:])
			end += size
		}

		if !strings.EqualFold(rest[:end], p) {
			return nil, false
		}

		out = append(out, rest[:end])
		rest = rest[end:]
	}

	if rest != "" {
		return nil, false
	}

	return out, true
}
