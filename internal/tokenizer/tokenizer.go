// Package tokenizer wraps the pretrained subword vocabularies: SentencePiece
// unigram models and BERT-style WordPiece character vocabularies.
//
// Every Tokenizer is read-only after construction and safe for concurrent
// Encode calls.
package tokenizer

import "errors"

// ErrEmptyPath is returned when a tokenizer is constructed with an empty path.
var ErrEmptyPath = errors.New("tokenizer model path must not be empty")

// Token is one vocabulary piece and its id.
type Token struct {
	Piece string `json:"piece"`
	ID    int    `json:"id"`
}

// Tokenizer encodes text into vocabulary pieces.
//
// Encoding "" yields an empty slice. Text outside the vocabulary maps to the
// model's unknown piece rather than an error.
type Tokenizer interface {
	Encode(text string) ([]Token, error)
}

// WordStart is the SentencePiece word-start marker.
const WordStart = "\u2581"

// UnknownReporter is implemented by tokenizers that expose their unknown id.
type UnknownReporter interface {
	UnknownID() int
}

// AllUnknown reports whether tokens hold nothing but unknown pieces and bare
// word-start markers.
func AllUnknown(tokens []Token, unknownID int) bool {
	for _, t := range tokens {
		if t.ID != unknownID && t.Piece != WordStart {
			return false
		}
	}

	return true
}

// Pieces returns the piece strings of tokens.
func Pieces(tokens []Token) []string {
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = t.Piece
	}

	return out
}

// IDs returns the vocabulary ids of tokens.
func IDs(tokens []Token) []int {
	out := make([]int, len(tokens))
	for i, t := range tokens {
		out[i] = t.ID
	}

	return out
}
