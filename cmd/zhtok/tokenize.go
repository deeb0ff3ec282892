package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/example/go-zhtok/internal/pipeline"
	"github.com/spf13/cobra"
)

func newTokenizeCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "tokenize [text...]",
		Short: "Normalize and tokenize text with one of the six encoders",
		Long: "Normalize and tokenize text. The text is taken from the arguments, " +
			"or from stdin when no arguments are given.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			lang, err := pipeline.ParseLanguage(cfg.Tokenize.Language)
			if err != nil {
				return err
			}
			method, err := pipeline.ParseMethod(cfg.Tokenize.Method)
			if err != nil {
				return err
			}

			input, err := readTokenizeInput(args, cmd.InOrStdin())
			if err != nil {
				return err
			}
			if err := pipeline.CheckLength(input, cfg.Tokenize.MaxChars); err != nil {
				return err
			}

			tok, err := buildPipeline(cfg)
			if err != nil {
				return fmt.Errorf("load models: %w", err)
			}

			res, err := tok.Tokenize(input, lang, method)
			if err != nil {
				return err
			}

			return writeResult(cmd.OutOrStdout(), res, asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")

	return cmd
}

func readTokenizeInput(args []string, stdin io.Reader) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}

	b, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}

	return strings.TrimRight(string(b), "\r\n"), nil
}

func writeResult(w io.Writer, res pipeline.Result, asJSON bool) error {
	if !asJSON {
		_, err := io.WriteString(w, res.String())
		return err
	}

	if res.Pieces == nil {
		res.Pieces = []string{}
	}
	if res.IDs == nil {
		res.IDs = []int{}
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
