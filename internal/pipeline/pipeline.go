// Package pipeline turns raw Chinese text into subword pieces: it normalizes
// the text, segments it into words when the method needs that, and encodes
// it with one of six pretrained vocabularies selected by language and method.
package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/example/go-zhtok/internal/segment"
	"github.com/example/go-zhtok/internal/text"
	"github.com/example/go-zhtok/internal/tokenizer"
)

// ErrRejected marks input the pipeline refuses to process: empty or
// whitespace-only text. It wraps text.ErrEmptyText and is a user-facing
// outcome, not a fault.
var ErrRejected = fmt.Errorf("input rejected: %w", text.ErrEmptyText)

// ErrTooLong is returned by CheckLength for input over the configured bound.
var ErrTooLong = errors.New("input exceeds maximum length")

// CheckLength reports ErrTooLong when input has more than maxChars code
// points. A non-positive maxChars disables the check.
func CheckLength(input string, maxChars int) error {
	if maxChars <= 0 {
		return nil
	}

	if n := utf8.RuneCountInString(input); n > maxChars {
		return fmt.Errorf("%w: %d characters, limit %d", ErrTooLong, n, maxChars)
	}

	return nil
}

// Result is the outcome of one tokenization.
type Result struct {
	Language Language `json:"-"`
	Method   Method   `json:"-"`
	// Tokenizer is the display label, e.g. "Cantonese SentencePiece".
	Tokenizer string `json:"tokenizer"`
	// Normalized is the text after conversion, cleaning and folding.
	Normalized string `json:"normalized"`
	// Segments holds the word units fed to word-piece models; nil for the
	// other methods.
	Segments []string `json:"segments,omitempty"`
	// Encoded is the exact string handed to the encoder.
	Encoded string   `json:"-"`
	Pieces  []string `json:"pieces"`
	IDs     []int    `json:"ids"`
}

// Normalizer is satisfied by *text.Normalizer.
type Normalizer interface {
	Normalize(s string) (string, error)
}

// Pipeline runs the tokenization stages in order. It is safe for concurrent
// use: it only reads its ModelSet.
type Pipeline struct {
	norm   Normalizer
	models *ModelSet
	log    *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger used for debug traces.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.log = l }
}

// New returns a Pipeline over an already loaded ModelSet.
func New(norm Normalizer, models *ModelSet, opts ...Option) *Pipeline {
	p := &Pipeline{
		norm:   norm,
		models: models,
		log:    slog.Default(),
	}
	for _, fn := range opts {
		fn(p)
	}

	return p
}

// Tokenize normalizes input, segments it when the method is WordPiece and
// encodes it with the (lang, method) vocabulary.
//
// Empty or whitespace-only input, before or after normalization, returns
// ErrRejected and reaches no encoder.
func (p *Pipeline) Tokenize(input string, lang Language, method Method) (Result, error) {
	spec, err := SpecFor(lang, method)
	if err != nil {
		return Result{}, err
	}

	if err := text.Validate(input); err != nil {
		return Result{}, ErrRejected
	}

	normalized, err := p.norm.Normalize(input)
	if err != nil {
		return Result{}, fmt.Errorf("normalize: %w", err)
	}

	if errors.Is(text.Validate(normalized), text.ErrEmptyText) {
		return Result{}, ErrRejected
	}

	res := Result{
		Language:   lang,
		Method:     method,
		Tokenizer:  spec.Label(),
		Normalized: normalized,
		Encoded:    normalized,
	}

	if spec.Segment {
		res.Segments = p.models.Segmenter(lang).Segment(normalized)
		res.Encoded = segment.Join(res.Segments)
	}

	tokens, err := p.models.Encoder(lang, method).Encode(res.Encoded)
	if err != nil {
		return Result{}, fmt.Errorf("%s encode: %w", spec.Label(), err)
	}

	if spec.DropLeading && len(tokens) > 0 {
		tokens = tokens[1:]
	}

	res.Pieces = tokenizer.Pieces(tokens)
	res.IDs = tokenizer.IDs(tokens)

	p.log.Debug("tokenized",
		slog.String("tokenizer", res.Tokenizer),
		slog.Int("input_runes", utf8.RuneCountInString(input)),
		slog.Int("segments", len(res.Segments)),
		slog.Int("pieces", len(res.Pieces)),
	)

	return res, nil
}

// String renders r the way the command line prints it.
func (r Result) String() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Tokeniser - %s\n", r.Tokenizer)
	fmt.Fprintf(&b, "Normalized: %s\n", r.Normalized)
	if r.Segments != nil {
		fmt.Fprintf(&b, "Words: %s\n", strings.Join(r.Segments, " | "))
	}
	fmt.Fprintf(&b, "Segmentation result: %q\n", r.Pieces)
	fmt.Fprintf(&b, "Tokenization result: %v\n", r.IDs)

	return b.String()
}
