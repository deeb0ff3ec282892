package tokenizer

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"unicode"

	"github.com/example/go-zhtok/internal/text"
	tk "github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/model/wordpiece"
	"github.com/sugarme/tokenizer/pretokenizer"
)

// UnknownToken is the BERT unknown piece.
const UnknownToken = "[UNK]"

// WordPieceTokenizer implements Tokenizer with a BERT vocab.txt (one piece per
// line, id = line number). Chinese characters are split apart before lookup,
// so CJK text is encoded one character piece at a time; Latin words go
// through greedy longest-match-first subword splitting with "##" continuation
// pieces. No [CLS]/[SEP] markers are added.
type WordPieceTokenizer struct {
	t     *tk.Tokenizer
	unkID int
	log   *slog.Logger
}

// NewWordPieceTokenizer loads vocabPath and builds a BERT tokenizer. Input is
// cleaned with text.Clean (lower-cased, accents stripped) before lookup.
func NewWordPieceTokenizer(vocabPath string) (*WordPieceTokenizer, error) {
	if vocabPath == "" {
		return nil, ErrEmptyPath
	}

	fi, err := os.Stat(vocabPath)
	if err != nil {
		return nil, fmt.Errorf("stat wordpiece vocab %q: %w", vocabPath, err)
	}

	if fi.IsDir() {
		return nil, fmt.Errorf("wordpiece vocab %q is a directory", vocabPath)
	}

	wp, err := wordpiece.NewWordPieceFromFile(vocabPath, UnknownToken)
	if err != nil {
		return nil, fmt.Errorf("load wordpiece vocab %q: %w", vocabPath, err)
	}

	t := tk.NewTokenizer(wp)
	t.WithPreTokenizer(pretokenizer.NewBertPreTokenizer())

	unkID, ok := t.TokenToId(UnknownToken)
	if !ok {
		return nil, fmt.Errorf("wordpiece vocab %q has no %s entry", vocabPath, UnknownToken)
	}

	return &WordPieceTokenizer{t: t, unkID: unkID, log: slog.Default()}, nil
}

// UnknownID returns the id of [UNK].
func (w *WordPieceTokenizer) UnknownID() int { return w.unkID }

// Encode splits text into character-level WordPiece tokens.
//
// A panic inside the upstream tokenizer degrades the input to one [UNK] per
// word and is logged at warn level.
func (w *WordPieceTokenizer) Encode(input string) (tokens []Token, err error) {
	spaced := strings.Join(strings.Fields(spaceHan(text.Clean(input))), " ")
	if spaced == "" {
		return []Token{}, nil
	}

	defer func() {
		if r := recover(); r != nil {
			w.log.Warn("wordpiece encode panicked; emitting unknown pieces",
				slog.Any("panic", r),
				slog.Int("input_len", len(input)),
			)
			tokens, err = w.unknownPerWord(spaced), nil
		}
	}()

	enc, err := w.t.Encode(tk.NewSingleEncodeInput(tk.NewInputSequence(spaced)), false)
	if err != nil {
		return nil, fmt.Errorf("wordpiece encode: %w", err)
	}

	tokens = make([]Token, len(enc.Ids))
	for i, id := range enc.Ids {
		tokens[i] = Token{Piece: enc.Tokens[i], ID: id}
	}

	return tokens, nil
}

// spaceHan surrounds every Han character with spaces so the pre-tokenizer
// emits each one as its own word.
func spaceHan(s string) string {
	var b strings.Builder
	b.Grow(len(s) + len(s)/2)

	for _, r := range s {
		if unicode.Is(unicode.Han, r) {
			b.WriteByte(' ')
			b.WriteRune(r)
			b.WriteByte(' ')
			continue
		}
		b.WriteRune(r)
	}

	return b.String()
}

func (w *WordPieceTokenizer) unknownPerWord(text string) []Token {
	fields := strings.FieldsFunc(text, unicode.IsSpace)

	out := make([]Token, len(fields))
	for i := range fields {
		out[i] = Token{Piece: UnknownToken, ID: w.unkID}
	}

	return out
}
