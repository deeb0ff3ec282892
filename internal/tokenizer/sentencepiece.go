package tokenizer

import (
	"fmt"
	"os"

	gosp "github.com/vikesh-raj/go-sentencepiece-encoder/sentencepiece"
	"google.golang.org/protobuf/proto"
)

// SentencePieceTokenizer implements Tokenizer using a pure-Go UNIGRAM SentencePiece model.
// Piece strings come from the model's own piece table so ids and pieces
// always agree.
type SentencePieceTokenizer struct {
	proc    gosp.Sentencepiece
	pieces  []string
	unknown int
}

// NewSentencePieceTokenizer loads a SentencePiece model from the given path.
func NewSentencePieceTokenizer(modelPath string) (*SentencePieceTokenizer, error) {
	if modelPath == "" {
		return nil, ErrEmptyPath
	}

	data, err := os.ReadFile(modelPath)
	if err != nil {
		return nil, fmt.Errorf("read sentencepiece model %q: %w", modelPath, err)
	}

	pieces, unknown, err := pieceTable(data)
	if err != nil {
		return nil, fmt.Errorf("parse sentencepiece model %q: %w", modelPath, err)
	}

	proc, err := gosp.NewSentencepieceFromFile(modelPath, false)
	if err != nil {
		return nil, fmt.Errorf("load sentencepiece model %q: %w", modelPath, err)
	}

	return &SentencePieceTokenizer{proc: proc, pieces: pieces, unknown: unknown}, nil
}

func pieceTable(data []byte) ([]string, int, error) {
	var model gosp.ModelProto
	if err := proto.Unmarshal(data, &model); err != nil {
		return nil, 0, err
	}

	if len(model.GetPieces()) == 0 {
		return nil, 0, fmt.Errorf("model has no pieces")
	}

	pieces := make([]string, len(model.GetPieces()))
	unknown := 0

	for i, p := range model.GetPieces() {
		pieces[i] = p.GetPiece()
		if p.GetType() == gosp.ModelProto_SentencePiece_UNKNOWN {
			unknown = i
		}
	}

	return pieces, unknown, nil
}

// UnknownID returns the id of the model's unknown piece.
func (t *SentencePieceTokenizer) UnknownID() int { return t.unknown }

// VocabSize returns the number of pieces in the model.
func (t *SentencePieceTokenizer) VocabSize() int { return len(t.pieces) }

// Encode tokenizes text into SentencePiece pieces. Like the reference
// implementation, a word-start marker is prepended, so the first piece is
// often a bare "▁".
func (t *SentencePieceTokenizer) Encode(text string) ([]Token, error) {
	if text == "" {
		return []Token{}, nil
	}

	ids := t.proc.TokenizeToIDs(text)

	result := make([]Token, len(ids))
	for i, id := range ids {
		result[i] = t.token(int(id))
	}

	return result, nil
}

func (t *SentencePieceTokenizer) token(id int) Token {
	if id < 0 || id >= len(t.pieces) {
		return Token{Piece: t.pieces[t.unknown], ID: t.unknown}
	}

	return Token{Piece: t.pieces[id], ID: id}
}
