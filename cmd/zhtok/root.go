package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/example/go-zhtok/internal/config"
	"github.com/example/go-zhtok/internal/pipeline"
	"github.com/example/go-zhtok/internal/script"
	"github.com/example/go-zhtok/internal/server"
	"github.com/example/go-zhtok/internal/text"
	"github.com/spf13/cobra"
)

var (
	cfgFile   string
	activeCfg config.Config
)

// buildPipeline loads every model and returns a ready tokenizer. Tests swap it
// for a fake.
var buildPipeline = newPipeline

func NewRootCmd() *cobra.Command {
	defaults := config.DefaultConfig()

	cmd := &cobra.Command{
		Use:           "zhtok",
		Short:         "Chinese text normalization and subword tokenization",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			loaded, err := config.Load(config.LoadOptions{
				Cmd:        cmd,
				ConfigFile: cfgFile,
				Defaults:   defaults,
			})
			if err != nil {
				return err
			}
			activeCfg = loaded
			setupLogger(loaded.Log.Level)
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Optional config file (yaml|toml|json)")
	config.RegisterFlags(cmd.PersistentFlags(), defaults)

	cmd.AddCommand(newTokenizeCmd())
	cmd.AddCommand(newModelCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newHealthCmd())
	cmd.AddCommand(newDoctorCmd())

	return cmd
}

// setupLogger configures the process-wide slog default logger.
func setupLogger(levelStr string) {
	lvl, err := server.ParseLogLevel(levelStr)
	if err != nil {
		lvl = slog.LevelInfo
	}
	h := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(h))
}

func requireConfig() (config.Config, error) {
	if activeCfg.Models.ZhWord == "" {
		return config.Config{}, fmt.Errorf("configuration not loaded")
	}
	return activeCfg, nil
}

// modelPaths maps the configured model and dictionary locations onto the
// pipeline's (language, method) grid.
func modelPaths(cfg config.Config) pipeline.Paths {
	var p pipeline.Paths
	p.Models[pipeline.Mandarin][pipeline.WordPiece] = cfg.Models.ZhWord
	p.Models[pipeline.Mandarin][pipeline.SentencePiece] = cfg.Models.ZhSentencePiece
	p.Models[pipeline.Mandarin][pipeline.CharacterPiece] = cfg.Models.ZhCharVocab
	p.Models[pipeline.Cantonese][pipeline.WordPiece] = cfg.Models.YueWord
	p.Models[pipeline.Cantonese][pipeline.SentencePiece] = cfg.Models.YueSentencePiece
	p.Models[pipeline.Cantonese][pipeline.CharacterPiece] = cfg.Models.YueChar
	p.MandarinDict = cfg.Dictionaries.Mandarin
	p.CantoneseDict = cfg.Dictionaries.Cantonese
	p.CantoneseMaxWordLength = cfg.Dictionaries.CantoneseMaxWordLength
	return p
}

func newPipeline(cfg config.Config) (server.Tokenizer, error) {
	conv, err := script.New(cfg.Script.Conversion)
	if err != nil {
		return nil, err
	}

	paths := modelPaths(cfg)
	store := pipeline.FileStore{CantoneseMaxWordLength: paths.CantoneseMaxWordLength}

	models, err := pipeline.NewLoader(paths, store, slog.Default()).Get()
	if err != nil {
		return nil, err
	}

	return pipeline.New(text.NewNormalizer(conv), models, pipeline.WithLogger(slog.Default())), nil
}
