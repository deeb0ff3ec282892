package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownLanguage is returned when a language name cannot be parsed.
	ErrUnknownLanguage = errors.New("unknown language")
	// ErrUnknownMethod is returned when a tokenization method cannot be parsed.
	ErrUnknownMethod = errors.New("unknown tokenization method")
)

// Language selects the segmenter and the encoder family.
type Language int

const (
	Mandarin Language = iota
	Cantonese
)

// Languages lists every supported language in display order.
var Languages = []Language{Mandarin, Cantonese}

func (l Language) String() string {
	switch l {
	case Mandarin:
		return "mandarin"
	case Cantonese:
		return "cantonese"
	default:
		return fmt.Sprintf("language(%d)", int(l))
	}
}

// Title is the display name, e.g. "Mandarin".
func (l Language) Title() string {
	switch l {
	case Mandarin:
		return "Mandarin"
	case Cantonese:
		return "Cantonese"
	default:
		return l.String()
	}
}

func (l Language) valid() bool { return l == Mandarin || l == Cantonese }

// ParseLanguage accepts the language name, its ISO 639 code or the common
// Chinese name, case-insensitively.
func ParseLanguage(raw string) (Language, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "mandarin", "zh", "cmn", "普通話", "普通话":
		return Mandarin, nil
	case "cantonese", "yue", "廣東話", "广东话", "粵語", "粤语":
		return Cantonese, nil
	default:
		return 0, fmt.Errorf("%w %q (expected mandarin|cantonese)", ErrUnknownLanguage, raw)
	}
}

// Method selects the subword vocabulary and whether the text is segmented
// into words first.
type Method int

const (
	WordPiece Method = iota
	SentencePiece
	CharacterPiece
)

// Methods lists every tokenization method in display order.
var Methods = []Method{WordPiece, SentencePiece, CharacterPiece}

func (m Method) String() string {
	switch m {
	case WordPiece:
		return "word-piece"
	case SentencePiece:
		return "sentence-piece"
	case CharacterPiece:
		return "character-piece"
	default:
		return fmt.Sprintf("method(%d)", int(m))
	}
}

// Title is the display name, e.g. "Word Piece".
func (m Method) Title() string {
	switch m {
	case WordPiece:
		return "Word Piece"
	case SentencePiece:
		return "SentencePiece"
	case CharacterPiece:
		return "Character Piece"
	default:
		return m.String()
	}
}

func (m Method) valid() bool { return m >= WordPiece && m <= CharacterPiece }

// ParseMethod accepts "word-piece", "wordpiece", "word piece", "word" and the
// matching spellings of the other methods, case-insensitively.
func ParseMethod(raw string) (Method, error) {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.NewReplacer("-", "", "_", "", " ", "").Replace(key)

	switch key {
	case "wordpiece", "word", "wp":
		return WordPiece, nil
	case "sentencepiece", "sentence", "sp":
		return SentencePiece, nil
	case "characterpiece", "charpiece", "character", "char":
		return CharacterPiece, nil
	default:
		return 0, fmt.Errorf("%w %q (expected word-piece|sentence-piece|character-piece)", ErrUnknownMethod, raw)
	}
}
