package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Models       ModelsConfig       `mapstructure:"models"`
	Dictionaries DictionariesConfig `mapstructure:"dictionaries"`
	Script       ScriptConfig       `mapstructure:"script"`
	Tokenize     TokenizeConfig     `mapstructure:"tokenize"`
	Server       ServerConfig       `mapstructure:"server"`
	Log          LogConfig          `mapstructure:"log"`
}

// ModelsConfig holds one resource path per (language, method).
type ModelsConfig struct {
	ZhWord           string `mapstructure:"zh_word"`
	ZhSentencePiece  string `mapstructure:"zh_sentencepiece"`
	ZhCharVocab      string `mapstructure:"zh_char_vocab"`
	YueWord          string `mapstructure:"yue_word"`
	YueSentencePiece string `mapstructure:"yue_sentencepiece"`
	YueChar          string `mapstructure:"yue_char"`
}

type DictionariesConfig struct {
	Mandarin               string `mapstructure:"mandarin"`
	Cantonese              string `mapstructure:"cantonese"`
	CantoneseMaxWordLength int    `mapstructure:"cantonese_max_word_length"`
}

type ScriptConfig struct {
	Conversion string `mapstructure:"conversion"`
}

type TokenizeConfig struct {
	Language string `mapstructure:"language"`
	Method   string `mapstructure:"method"`
	MaxChars int    `mapstructure:"max_chars"`
}

type ServerConfig struct {
	ListenAddr      string `mapstructure:"listen_addr"`
	RequestTimeout  int    `mapstructure:"request_timeout"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"`
	Workers         int    `mapstructure:"workers"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type LoadOptions struct {
	Cmd        flagBinder
	ConfigFile string
	Defaults   Config
}

type flagBinder interface {
	Flags() *pflag.FlagSet
}

func DefaultConfig() Config {
	return Config{
		Models: ModelsConfig{
			ZhWord:           "assets/zhword.model",
			ZhSentencePiece:  "assets/zhsp.model",
			ZhCharVocab:      "assets/bert-base-chinese/vocab.txt",
			YueWord:          "assets/pycan.model",
			YueSentencePiece: "assets/sp.model",
			YueChar:          "assets/char.model",
		},
		Dictionaries: DictionariesConfig{
			Mandarin:               "assets/jieba.dict.txt",
			Cantonese:              "assets/yue.words.txt",
			CantoneseMaxWordLength: 5,
		},
		Script: ScriptConfig{
			Conversion: "s2t",
		},
		Tokenize: TokenizeConfig{
			Language: "mandarin",
			Method:   "word-piece",
			MaxChars: 128,
		},
		Server: ServerConfig{
			ListenAddr:      ":8080",
			RequestTimeout:  10,
			ShutdownTimeout: 30,
			Workers:         0,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func RegisterFlags(fs *pflag.FlagSet, defaults Config) {
	fs.String("models-zh-word", defaults.Models.ZhWord, "Mandarin word-piece SentencePiece model")
	fs.String("models-zh-sentencepiece", defaults.Models.ZhSentencePiece, "Mandarin SentencePiece model")
	fs.String("models-zh-char-vocab", defaults.Models.ZhCharVocab, "Mandarin character-piece WordPiece vocab.txt")
	fs.String("models-yue-word", defaults.Models.YueWord, "Cantonese word-piece SentencePiece model")
	fs.String("models-yue-sentencepiece", defaults.Models.YueSentencePiece, "Cantonese SentencePiece model")
	fs.String("models-yue-char", defaults.Models.YueChar, "Cantonese character-piece SentencePiece model")
	fs.String("dictionaries-mandarin", defaults.Dictionaries.Mandarin, "Mandarin segmenter dictionary (jieba format)")
	fs.String("dictionaries-cantonese", defaults.Dictionaries.Cantonese, "Cantonese segmenter word list")
	fs.Int("dictionaries-cantonese-max-word-length", defaults.Dictionaries.CantoneseMaxWordLength, "Longest Cantonese dictionary word considered, in characters")
	fs.String("script-conversion", defaults.Script.Conversion, "OpenCC conversion applied before tokenization")
	fs.String("language", defaults.Tokenize.Language, "Default language (mandarin|cantonese)")
	fs.String("method", defaults.Tokenize.Method, "Default method (word-piece|sentence-piece|character-piece)")
	fs.Int("max-chars", defaults.Tokenize.MaxChars, "Maximum input length in characters (0 disables)")
	fs.String("server-listen-addr", defaults.Server.ListenAddr, "HTTP listen address")
	fs.Int("request-timeout", defaults.Server.RequestTimeout, "Per-request timeout in seconds")
	fs.Int("shutdown-timeout", defaults.Server.ShutdownTimeout, "Graceful shutdown timeout in seconds")
	fs.Int("workers", defaults.Server.Workers, "Max concurrent tokenize requests (0 = unlimited)")
	fs.String("log-level", defaults.Log.Level, "Log level (debug|info|warn|error)")
}

func Load(opts LoadOptions) (Config, error) {
	v := viper.New()

	setDefaults(v, opts.Defaults)
	if opts.Cmd != nil {
		if err := v.BindPFlags(opts.Cmd.Flags()); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}
	registerAliases(v)

	v.SetEnvPrefix("ZHTOK")
	replacer := strings.NewReplacer("-", "_", ".", "_", "__", "_")
	v.SetEnvKeyReplacer(replacer)
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName("zhtok")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, c Config) {
	v.SetDefault("models.zh_word", c.Models.ZhWord)
	v.SetDefault("models.zh_sentencepiece", c.Models.ZhSentencePiece)
	v.SetDefault("models.zh_char_vocab", c.Models.ZhCharVocab)
	v.SetDefault("models.yue_word", c.Models.YueWord)
	v.SetDefault("models.yue_sentencepiece", c.Models.YueSentencePiece)
	v.SetDefault("models.yue_char", c.Models.YueChar)
	v.SetDefault("dictionaries.mandarin", c.Dictionaries.Mandarin)
	v.SetDefault("dictionaries.cantonese", c.Dictionaries.Cantonese)
	v.SetDefault("dictionaries.cantonese_max_word_length", c.Dictionaries.CantoneseMaxWordLength)
	v.SetDefault("script.conversion", c.Script.Conversion)
	v.SetDefault("tokenize.language", c.Tokenize.Language)
	v.SetDefault("tokenize.method", c.Tokenize.Method)
	v.SetDefault("tokenize.max_chars", c.Tokenize.MaxChars)
	v.SetDefault("server.listen_addr", c.Server.ListenAddr)
	v.SetDefault("server.request_timeout", c.Server.RequestTimeout)
	v.SetDefault("server.shutdown_timeout", c.Server.ShutdownTimeout)
	v.SetDefault("server.workers", c.Server.Workers)
	v.SetDefault("log.level", c.Log.Level)
}

func registerAliases(v *viper.Viper) {
	v.RegisterAlias("models.zh_word", "models-zh-word")
	v.RegisterAlias("models.zh_sentencepiece", "models-zh-sentencepiece")
	v.RegisterAlias("models.zh_char_vocab", "models-zh-char-vocab")
	v.RegisterAlias("models.yue_word", "models-yue-word")
	v.RegisterAlias("models.yue_sentencepiece", "models-yue-sentencepiece")
	v.RegisterAlias("models.yue_char", "models-yue-char")
	v.RegisterAlias("dictionaries.mandarin", "dictionaries-mandarin")
	v.RegisterAlias("dictionaries.cantonese", "dictionaries-cantonese")
	v.RegisterAlias("dictionaries.cantonese_max_word_length", "dictionaries-cantonese-max-word-length")
	v.RegisterAlias("script.conversion", "script-conversion")
	v.RegisterAlias("tokenize.language", "language")
	v.RegisterAlias("tokenize.method", "method")
	v.RegisterAlias("tokenize.max_chars", "max-chars")
	v.RegisterAlias("server.listen_addr", "server-listen-addr")
	v.RegisterAlias("server.request_timeout", "request-timeout")
	v.RegisterAlias("server.shutdown_timeout", "shutdown-timeout")
	v.RegisterAlias("server.workers", "workers")
	v.RegisterAlias("log.level", "log-level")
}
