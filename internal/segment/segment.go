// Package segment splits normalized Chinese text into word units ahead of
// word-piece encoding.
//
// Every Segmenter keeps the input intact: concatenating its output gives back
// the input exactly, and no segment is empty.
package segment

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrEmptyPath is returned when a segmenter is constructed without a
// dictionary path.
var ErrEmptyPath = errors.New("segmenter dictionary path must not be empty")

// Segmenter splits text into ordered word units.
type Segmenter interface {
	Segment(text string) []string
}

// Join joins segments with single ASCII spaces, the form word-piece models
// were trained on. Whitespace-only segments are skipped.
func Join(segments []string) string {
	words := make([]string, 0, len(segments))
	for _, s := range segments {
		if strings.TrimSpace(s) != "" {
			words = append(words, s)
		}
	}

	return strings.Join(words, " ")
}

func checkDictPath(path string) error {
	if path == "" {
		return ErrEmptyPath
	}

	fi, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat dictionary %q: %w", path, err)
	}

	if fi.IsDir() {
		return fmt.Errorf("dictionary %q is a directory", path)
	}

	return nil
}

// dropEmpty removes empty strings in place.
func dropEmpty(parts []string) []string {
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}

	return out
}
