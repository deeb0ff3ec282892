// Package text implements the normalization applied to raw input before
// segmentation and subword encoding: script conversion, generic cleaning and
// the fullwidth punctuation fold.
package text

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyText is returned when the input text is empty or whitespace-only.
var ErrEmptyText = errors.New("text is empty")

// Converter rewrites text from one script to another.
// It is satisfied by *script.Converter.
type Converter interface {
	Convert(s string) (string, error)
}

// Validate rejects empty or whitespace-only input.
func Validate(s string) error {
	if strings.TrimSpace(s) == "" {
		return ErrEmptyText
	}

	return nil
}

// Normalizer chains script conversion, Clean and FoldPunctuation.
// It holds no mutable state.
type Normalizer struct {
	conv Converter
}

// NewNormalizer returns a Normalizer using conv for script conversion.
// A nil conv skips conversion.
func NewNormalizer(conv Converter) *Normalizer {
	return &Normalizer{conv: conv}
}

// Normalize converts s to traditional script, cleans it and folds fullwidth
// punctuation, in that order.
func (n *Normalizer) Normalize(s string) (string, error) {
	if n.conv != nil {
		converted, err := n.conv.Convert(s)
		if err != nil {
			return "", fmt.Errorf("script conversion: %w", err)
		}
		s = converted
	}

	return FoldPunctuation(Clean(s)), nil
}
