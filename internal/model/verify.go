package model

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/example/go-zhtok/internal/pipeline"
	"github.com/example/go-zhtok/internal/tokenizer"
)

// DefaultSample is encoded by every model during verification.
const DefaultSample = "你好世界，今日天氣好好。"

type VerifyOptions struct {
	Paths pipeline.Paths
	// Store loads each resource; nil selects a pipeline.FileStore.
	Store  pipeline.Store
	Sample string
	Stdout io.Writer
	Stderr io.Writer
}

// Verify loads every configured encoder and segmenter and runs the sample
// through it, printing one PASS or FAIL line per resource.
func Verify(opts VerifyOptions) error {
	if opts.Store == nil {
		opts.Store = pipeline.FileStore{CantoneseMaxWordLength: opts.Paths.CantoneseMaxWordLength}
	}

	if strings.TrimSpace(opts.Sample) == "" {
		opts.Sample = DefaultSample
	}

	if opts.Stdout == nil {
		opts.Stdout = io.Discard
	}

	if opts.Stderr == nil {
		opts.Stderr = io.Discard
	}

	var failures []string

	for _, spec := range pipeline.Specs() {
		path := opts.Paths.ModelPath(spec.Language, spec.Method)

		n, err := smokeEncoder(opts.Store, spec, path, opts.Sample)
		if err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "FAIL %s (%s): %v\n", spec.Label(), path, err)
			failures = append(failures, spec.Label())

			continue
		}

		_, _ = fmt.Fprintf(opts.Stdout, "PASS %s (%d pieces)\n", spec.Label(), n)
	}

	for _, lang := range pipeline.Languages {
		path := opts.Paths.DictPath(lang)
		label := lang.Title() + " segmenter"

		n, err := smokeSegmenter(opts.Store, lang, path, opts.Sample)
		if err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "FAIL %s (%s): %v\n", label, path, err)
			failures = append(failures, label)

			continue
		}

		_, _ = fmt.Fprintf(opts.Stdout, "PASS %s (%d words)\n", label, n)
	}

	if len(failures) > 0 {
		return fmt.Errorf("verify failed for %d resource(s): %s", len(failures), strings.Join(failures, ", "))
	}

	return nil
}

func smokeEncoder(store pipeline.Store, spec pipeline.EncoderSpec, path, sample string) (int, error) {
	enc, err := store.LoadEncoder(spec.Kind, path)
	if err != nil {
		return 0, fmt.Errorf("load: %w", err)
	}

	tokens, err := enc.Encode(sample)
	if err != nil {
		return 0, fmt.Errorf("encode: %w", err)
	}

	if len(tokens) == 0 {
		return 0, errors.New("encode produced no pieces")
	}

	if u, ok := enc.(tokenizer.UnknownReporter); ok && tokenizer.AllUnknown(tokens, u.UnknownID()) {
		return 0, fmt.Errorf("encode produced only unknown pieces (%d)", len(tokens))
	}

	return len(tokens), nil
}

func smokeSegmenter(store pipeline.Store, lang pipeline.Language, path, sample string) (int, error) {
	seg, err := store.LoadSegmenter(lang, path)
	if err != nil {
		return 0, fmt.Errorf("load: %w", err)
	}

	words := seg.Segment(sample)
	if strings.Join(words, "") != sample {
		return 0, errors.New("segmentation does not reconstruct the input")
	}

	return len(words), nil
}
