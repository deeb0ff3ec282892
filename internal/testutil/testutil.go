// Package testutil provides shared skip helpers for tests that need the real
// model assets.
//
// Each helper calls t.Skip with a clear human-readable reason when the named
// prerequisite is absent, so integration tests remain runnable in partial
// environments without failing noisily.
//
// Typical usage:
//
//	func TestRealModels(t *testing.T) {
//	    paths := testutil.RequireModelPaths(t)
//	    ...
//	}
package testutil

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/example/go-zhtok/internal/config"
	"github.com/example/go-zhtok/internal/pipeline"
)

// RepoRoot walks up from the working directory to the directory holding
// go.mod.
func RepoRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("go.mod not found above working directory")
		}
		dir = parent
	}
}

// RequireAsset returns the path of a model asset, skipping the test when it
// does not exist. The environment variable env overrides rel, which is
// resolved against the repository root.
func RequireAsset(tb testing.TB, env, rel string) string {
	tb.Helper()

	if p := os.Getenv(env); p != "" {
		if _, err := os.Stat(p); err != nil {
			tb.Skipf("asset not found at %s=%q", env, p)
			return ""
		}
		return p
	}

	root, err := RepoRoot()
	if err != nil {
		tb.Skipf("cannot locate repository root: %v", err)
		return ""
	}

	p := filepath.Join(root, filepath.FromSlash(rel))
	if _, err := os.Stat(p); err != nil {
		tb.Skipf("asset %q not available; run `zhtok model download` or set %s", rel, env)
		return ""
	}

	return p
}

// RequireModelPaths resolves all six encoder models and both dictionaries
// from the default configuration, skipping the test if any is missing.
func RequireModelPaths(tb testing.TB) pipeline.Paths {
	tb.Helper()

	d := config.DefaultConfig()
	m := d.Models

	var p pipeline.Paths
	p.Models[pipeline.Mandarin][pipeline.WordPiece] = RequireAsset(tb, "ZHTOK_MODELS_ZH_WORD", m.ZhWord)
	p.Models[pipeline.Mandarin][pipeline.SentencePiece] = RequireAsset(tb, "ZHTOK_MODELS_ZH_SENTENCEPIECE", m.ZhSentencePiece)
	p.Models[pipeline.Mandarin][pipeline.CharacterPiece] = RequireAsset(tb, "ZHTOK_MODELS_ZH_CHAR_VOCAB", m.ZhCharVocab)
	p.Models[pipeline.Cantonese][pipeline.WordPiece] = RequireAsset(tb, "ZHTOK_MODELS_YUE_WORD", m.YueWord)
	p.Models[pipeline.Cantonese][pipeline.SentencePiece] = RequireAsset(tb, "ZHTOK_MODELS_YUE_SENTENCEPIECE", m.YueSentencePiece)
	p.Models[pipeline.Cantonese][pipeline.CharacterPiece] = RequireAsset(tb, "ZHTOK_MODELS_YUE_CHAR", m.YueChar)
	p.MandarinDict = RequireAsset(tb, "ZHTOK_DICTIONARIES_MANDARIN", d.Dictionaries.Mandarin)
	p.CantoneseDict = RequireAsset(tb, "ZHTOK_DICTIONARIES_CANTONESE", d.Dictionaries.Cantonese)
	p.CantoneseMaxWordLength = d.Dictionaries.CantoneseMaxWordLength

	return p
}
