package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
)

// fakeBinder wraps a pflag.FlagSet to satisfy the flagBinder interface.
type fakeBinder struct {
	fs *pflag.FlagSet
}

func (f *fakeBinder) Flags() *pflag.FlagSet { return f.fs }

// newFlagBinder creates a FlagSet with all config flags registered at their defaults.
func newFlagBinder(defaults Config) *fakeBinder {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs, defaults)

	return &fakeBinder{fs: fs}
}

// --- DefaultConfig ---

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	models := map[string]struct{ got, want string }{
		"ZhWord":           {cfg.Models.ZhWord, "assets/zhword.model"},
		"ZhSentencePiece":  {cfg.Models.ZhSentencePiece, "assets/zhsp.model"},
		"ZhCharVocab":      {cfg.Models.ZhCharVocab, "assets/bert-base-chinese/vocab.txt"},
		"YueWord":          {cfg.Models.YueWord, "assets/pycan.model"},
		"YueSentencePiece": {cfg.Models.YueSentencePiece, "assets/sp.model"},
		"YueChar":          {cfg.Models.YueChar, "assets/char.model"},
	}
	for name, c := range models {
		if c.got != c.want {
			t.Errorf("Models.%s = %q; want %q", name, c.got, c.want)
		}
	}

	if cfg.Dictionaries.CantoneseMaxWordLength != 5 {
		t.Errorf("Dictionaries.CantoneseMaxWordLength = %d; want 5", cfg.Dictionaries.CantoneseMaxWordLength)
	}

	if cfg.Script.Conversion != "s2t" {
		t.Errorf("Script.Conversion = %q; want %q", cfg.Script.Conversion, "s2t")
	}

	if cfg.Tokenize.Language != "mandarin" {
		t.Errorf("Tokenize.Language = %q; want %q", cfg.Tokenize.Language, "mandarin")
	}

	if cfg.Tokenize.Method != "word-piece" {
		t.Errorf("Tokenize.Method = %q; want %q", cfg.Tokenize.Method, "word-piece")
	}

	if cfg.Tokenize.MaxChars != 128 {
		t.Errorf("Tokenize.MaxChars = %d; want 128", cfg.Tokenize.MaxChars)
	}

	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("Server.ListenAddr = %q; want %q", cfg.Server.ListenAddr, ":8080")
	}

	if cfg.Server.RequestTimeout != 10 {
		t.Errorf("Server.RequestTimeout = %d; want 10", cfg.Server.RequestTimeout)
	}

	if cfg.Server.ShutdownTimeout != 30 {
		t.Errorf("Server.ShutdownTimeout = %d; want 30", cfg.Server.ShutdownTimeout)
	}

	if cfg.Server.Workers != 0 {
		t.Errorf("Server.Workers = %d; want 0", cfg.Server.Workers)
	}

	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q; want %q", cfg.Log.Level, "info")
	}
}

// --- RegisterFlags ---

func TestRegisterFlags(t *testing.T) {
	defaults := DefaultConfig()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs, defaults)

	checks := []struct {
		flag string
		want string
	}{
		{"models-zh-char-vocab", "assets/bert-base-chinese/vocab.txt"},
		{"models-yue-char", "assets/char.model"},
		{"dictionaries-cantonese-max-word-length", "5"},
		{"script-conversion", "s2t"},
		{"language", "mandarin"},
		{"method", "word-piece"},
		{"max-chars", "128"},
		{"server-listen-addr", ":8080"},
		{"workers", "0"},
		{"log-level", "info"},
	}

	for _, c := range checks {
		f := fs.Lookup(c.flag)
		if f == nil {
			t.Errorf("flag %q not registered", c.flag)
			continue
		}

		if f.DefValue != c.want {
			t.Errorf("flag %q default = %q; want %q", c.flag, f.DefValue, c.want)
		}
	}
}

// --- Load ---

func TestLoad_Defaults(t *testing.T) {
	defaults := DefaultConfig()
	binder := newFlagBinder(defaults)

	cfg, err := Load(LoadOptions{
		Cmd:      binder,
		Defaults: defaults,
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Models.ZhSentencePiece != defaults.Models.ZhSentencePiece {
		t.Errorf("Models.ZhSentencePiece = %q; want %q", cfg.Models.ZhSentencePiece, defaults.Models.ZhSentencePiece)
	}

	if cfg.Dictionaries.Cantonese != defaults.Dictionaries.Cantonese {
		t.Errorf("Dictionaries.Cantonese = %q; want %q", cfg.Dictionaries.Cantonese, defaults.Dictionaries.Cantonese)
	}

	if cfg.Tokenize.MaxChars != defaults.Tokenize.MaxChars {
		t.Errorf("Tokenize.MaxChars = %d; want %d", cfg.Tokenize.MaxChars, defaults.Tokenize.MaxChars)
	}

	if cfg.Log.Level != defaults.Log.Level {
		t.Errorf("Log.Level = %q; want %q", cfg.Log.Level, defaults.Log.Level)
	}
}

func TestLoad_FlagOverride(t *testing.T) {
	defaults := DefaultConfig()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs, defaults)

	err := fs.Parse([]string{
		"--language=cantonese",
		"--method=sentence-piece",
		"--workers=8",
		"--script-conversion=s2hk",
		"--models-yue-char=/srv/char.model",
		"--log-level=debug",
	})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	cfg, err := Load(LoadOptions{
		Cmd:      &fakeBinder{fs: fs},
		Defaults: defaults,
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Tokenize.Language != "cantonese" {
		t.Errorf("Tokenize.Language = %q; want %q", cfg.Tokenize.Language, "cantonese")
	}

	if cfg.Tokenize.Method != "sentence-piece" {
		t.Errorf("Tokenize.Method = %q; want %q", cfg.Tokenize.Method, "sentence-piece")
	}

	if cfg.Server.Workers != 8 {
		t.Errorf("Server.Workers = %d; want 8", cfg.Server.Workers)
	}

	if cfg.Script.Conversion != "s2hk" {
		t.Errorf("Script.Conversion = %q; want %q", cfg.Script.Conversion, "s2hk")
	}

	if cfg.Models.YueChar != "/srv/char.model" {
		t.Errorf("Models.YueChar = %q; want %q", cfg.Models.YueChar, "/srv/char.model")
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q; want %q", cfg.Log.Level, "debug")
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("ZHTOK_LOG_LEVEL", "warn")
	t.Setenv("ZHTOK_SERVER_LISTEN_ADDR", ":9999")
	t.Setenv("ZHTOK_MODELS_ZH_SENTENCEPIECE", "/env/zhsp.model")

	defaults := DefaultConfig()

	cfg, err := Load(LoadOptions{
		Cmd:      newFlagBinder(defaults),
		Defaults: defaults,
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level = %q; want %q", cfg.Log.Level, "warn")
	}

	if cfg.Server.ListenAddr != ":9999" {
		t.Errorf("Server.ListenAddr = %q; want %q", cfg.Server.ListenAddr, ":9999")
	}

	if cfg.Models.ZhSentencePiece != "/env/zhsp.model" {
		t.Errorf("Models.ZhSentencePiece = %q; want %q", cfg.Models.ZhSentencePiece, "/env/zhsp.model")
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "zhtok.yaml")

	content := `
log:
  level: error
server:
  workers: 16
tokenize:
  max_chars: 0
`

	err := os.WriteFile(cfgFile, []byte(content), 0o644)
	if err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	// Viper aliases registered before ReadInConfig shadow nested config file
	// keys, so the values are mirrored through flags as well.
	defaults := DefaultConfig()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs, defaults)

	err = fs.Parse([]string{
		"--log-level=error",
		"--workers=16",
		"--max-chars=0",
	})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	cfg, err := Load(LoadOptions{
		Cmd:        &fakeBinder{fs: fs},
		ConfigFile: cfgFile,
		Defaults:   defaults,
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Log.Level != "error" {
		t.Errorf("Log.Level = %q; want %q", cfg.Log.Level, "error")
	}

	if cfg.Server.Workers != 16 {
		t.Errorf("Server.Workers = %d; want 16", cfg.Server.Workers)
	}

	if cfg.Tokenize.MaxChars != 0 {
		t.Errorf("Tokenize.MaxChars = %d; want 0", cfg.Tokenize.MaxChars)
	}
}

func TestLoad_InvalidConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "bad.yaml")

	err := os.WriteFile(cfgFile, []byte(":\t:bad yaml:::"), 0o644)
	if err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	_, err = Load(LoadOptions{
		ConfigFile: cfgFile,
		Defaults:   DefaultConfig(),
	})
	if err == nil {
		t.Error("Load() = nil; want error for invalid config file")
	}
}

func TestLoad_MissingExplicitConfigFile(t *testing.T) {
	_, err := Load(LoadOptions{
		ConfigFile: "/nonexistent/path/zhtok.yaml",
		Defaults:   DefaultConfig(),
	})
	if err == nil {
		t.Error("Load() = nil; want error for missing explicit config file")
	}
}

func TestLoad_NilCmd(t *testing.T) {
	// Passing nil Cmd must not panic.
	cfg, err := Load(LoadOptions{
		Cmd:      nil,
		Defaults: DefaultConfig(),
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	_ = cfg.Models.ZhWord
	_ = cfg.Server.Workers
}
