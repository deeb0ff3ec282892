package pipeline

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/example/go-zhtok/internal/segment"
	"github.com/example/go-zhtok/internal/tokenizer"
)

// Paths locates every model resource the pipeline needs.
type Paths struct {
	// Models holds one path per (language, method), indexed like encoderSpecs.
	Models [2][3]string

	MandarinDict           string
	CantoneseDict          string
	CantoneseMaxWordLength int
}

// ModelPath returns the configured path of one encoder model.
func (p Paths) ModelPath(lang Language, method Method) string {
	if !lang.valid() || !method.valid() {
		return ""
	}

	return p.Models[lang][method]
}

// DictPath returns the segmenter dictionary of lang.
func (p Paths) DictPath(lang Language) string {
	switch lang {
	case Mandarin:
		return p.MandarinDict
	case Cantonese:
		return p.CantoneseDict
	default:
		return ""
	}
}

// Store loads model resources. It is called once per resource at startup.
type Store interface {
	LoadEncoder(kind ModelKind, path string) (tokenizer.Tokenizer, error)
	LoadSegmenter(lang Language, path string) (segment.Segmenter, error)
}

// FileStore loads models from the local filesystem.
type FileStore struct {
	// CantoneseMaxWordLength bounds dictionary matches; 0 selects the default.
	CantoneseMaxWordLength int
}

// LoadEncoder implements Store.
func (s FileStore) LoadEncoder(kind ModelKind, path string) (tokenizer.Tokenizer, error) {
	switch kind {
	case KindSentencePiece:
		return tokenizer.NewSentencePieceTokenizer(path)
	case KindWordPieceVocab:
		return tokenizer.NewWordPieceTokenizer(path)
	default:
		return nil, fmt.Errorf("unsupported model kind %q", kind)
	}
}

// LoadSegmenter implements Store.
func (s FileStore) LoadSegmenter(lang Language, path string) (segment.Segmenter, error) {
	switch lang {
	case Mandarin:
		return segment.NewMandarin(path)
	case Cantonese:
		return segment.NewCantonese(path, s.CantoneseMaxWordLength)
	default:
		return nil, fmt.Errorf("%w %d", ErrUnknownLanguage, int(lang))
	}
}

// LoadError reports a model resource that could not be loaded. The pipeline
// cannot serve requests without it.
type LoadError struct {
	Resource string
	Kind     ModelKind
	Path     string
	Err      error
}

func (e *LoadError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("load %s (%s) from %q: %v", e.Resource, e.Kind, e.Path, e.Err)
	}
	return fmt.Sprintf("load %s from %q: %v", e.Resource, e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// ModelSet holds the six encoders and two segmenters. It is never mutated
// after construction and is shared read-only by concurrent requests.
type ModelSet struct {
	encoders   [2][3]tokenizer.Tokenizer
	segmenters [2]segment.Segmenter
}

// Encoder returns the encoder for a (language, method) pair.
func (m *ModelSet) Encoder(lang Language, method Method) tokenizer.Tokenizer {
	return m.encoders[lang][method]
}

// Segmenter returns the segmenter of lang.
func (m *ModelSet) Segmenter(lang Language) segment.Segmenter {
	return m.segmenters[lang]
}

// ModelSetBuilder assembles a ModelSet from already constructed models, for
// tests and embedders that load models themselves.
type ModelSetBuilder struct {
	set ModelSet
}

// WithEncoder sets the encoder of one (language, method) pair.
func (b *ModelSetBuilder) WithEncoder(lang Language, method Method, enc tokenizer.Tokenizer) *ModelSetBuilder {
	b.set.encoders[lang][method] = enc
	return b
}

// WithSegmenter sets the segmenter of lang.
func (b *ModelSetBuilder) WithSegmenter(lang Language, seg segment.Segmenter) *ModelSetBuilder {
	b.set.segmenters[lang] = seg
	return b
}

// Build checks that every slot is filled and returns the set.
func (b *ModelSetBuilder) Build() (*ModelSet, error) {
	for _, spec := range Specs() {
		if b.set.encoders[spec.Language][spec.Method] == nil {
			return nil, fmt.Errorf("model set: missing %s encoder", spec.Label())
		}
	}

	for _, l := range Languages {
		if b.set.segmenters[l] == nil {
			return nil, fmt.Errorf("model set: missing %s segmenter", l.Title())
		}
	}

	set := b.set
	return &set, nil
}

// LoadModelSet loads every encoder and segmenter named by paths. The first
// failure is returned as a *LoadError.
func LoadModelSet(paths Paths, store Store, log *slog.Logger) (*ModelSet, error) {
	if log == nil {
		log = slog.Default()
	}

	var b ModelSetBuilder

	for _, spec := range Specs() {
		path := paths.ModelPath(spec.Language, spec.Method)
		start := time.Now()

		enc, err := store.LoadEncoder(spec.Kind, path)
		if err != nil {
			return nil, &LoadError{Resource: spec.Label() + " model", Kind: spec.Kind, Path: path, Err: err}
		}

		log.Info("loaded tokenizer model",
			slog.String("language", spec.Language.String()),
			slog.String("method", spec.Method.String()),
			slog.String("kind", string(spec.Kind)),
			slog.String("path", path),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
		b.WithEncoder(spec.Language, spec.Method, enc)
	}

	for _, lang := range Languages {
		path := paths.DictPath(lang)
		start := time.Now()

		seg, err := store.LoadSegmenter(lang, path)
		if err != nil {
			return nil, &LoadError{Resource: lang.Title() + " segmenter dictionary", Path: path, Err: err}
		}

		log.Info("loaded segmenter",
			slog.String("language", lang.String()),
			slog.String("path", path),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
		b.WithSegmenter(lang, seg)
	}

	return b.Build()
}

// Loader loads a ModelSet at most once. Concurrent first callers block on the
// same load and all observe its result, error included.
type Loader struct {
	once sync.Once
	load func() (*ModelSet, error)
	set  *ModelSet
	err  error
}

// NewLoader returns a Loader that calls LoadModelSet on first use.
func NewLoader(paths Paths, store Store, log *slog.Logger) *Loader {
	return NewLoaderFunc(func() (*ModelSet, error) {
		return LoadModelSet(paths, store, log)
	})
}

// NewLoaderFunc returns a Loader around an arbitrary load function.
func NewLoaderFunc(load func() (*ModelSet, error)) *Loader {
	return &Loader{load: load}
}

// Get returns the loaded ModelSet, loading it on the first call.
func (l *Loader) Get() (*ModelSet, error) {
	l.once.Do(func() {
		l.set, l.err = l.load()
	})

	return l.set, l.err
}
