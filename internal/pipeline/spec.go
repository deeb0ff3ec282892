package pipeline

import "fmt"

// ModelKind is the on-disk format of a vocabulary model.
type ModelKind string

const (
	// KindSentencePiece is a serialized SentencePiece ModelProto (*.model).
	KindSentencePiece ModelKind = "sentencepiece"
	// KindWordPieceVocab is a BERT vocab.txt, one piece per line.
	KindWordPieceVocab ModelKind = "wordpiece-vocab"
)

// EncoderSpec describes one of the six encoder instances. The instances differ
// only in these fields, so the orchestrator has a single code path.
type EncoderSpec struct {
	Language Language
	Method   Method
	Kind     ModelKind
	// DropLeading drops the first piece: the model always emits a sentinel
	// there.
	DropLeading bool
	// Segment runs the language's segmenter and joins the words with single
	// spaces before encoding.
	Segment bool
}

// Label is the human-readable tokenizer name, e.g. "Mandarin Word Piece".
func (s EncoderSpec) Label() string {
	return s.Language.Title() + " " + s.Method.Title()
}

var encoderSpecs = [2][3]EncoderSpec{
	Mandarin: {
		WordPiece:      {Language: Mandarin, Method: WordPiece, Kind: KindSentencePiece, Segment: true},
		SentencePiece:  {Language: Mandarin, Method: SentencePiece, Kind: KindSentencePiece, DropLeading: true},
		CharacterPiece: {Language: Mandarin, Method: CharacterPiece, Kind: KindWordPieceVocab},
	},
	Cantonese: {
		WordPiece:      {Language: Cantonese, Method: WordPiece, Kind: KindSentencePiece, Segment: true},
		SentencePiece:  {Language: Cantonese, Method: SentencePiece, Kind: KindSentencePiece},
		CharacterPiece: {Language: Cantonese, Method: CharacterPiece, Kind: KindSentencePiece, DropLeading: true},
	},
}

// SpecFor returns the encoder descriptor for a (language, method) pair.
func SpecFor(lang Language, method Method) (EncoderSpec, error) {
	if !lang.valid() {
		return EncoderSpec{}, fmt.Errorf("%w %d", ErrUnknownLanguage, int(lang))
	}

	if !method.valid() {
		return EncoderSpec{}, fmt.Errorf("%w %d", ErrUnknownMethod, int(method))
	}

	return encoderSpecs[lang][method], nil
}

// Specs returns all six descriptors, Mandarin first.
func Specs() []EncoderSpec {
	out := make([]EncoderSpec, 0, len(Languages)*len(Methods))
	for _, l := range Languages {
		for _, m := range Methods {
			out = append(out, encoderSpecs[l][m])
		}
	}

	return out
}
