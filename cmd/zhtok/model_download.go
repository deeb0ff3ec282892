package main

import (
	"fmt"
	"os"

	"github.com/example/go-zhtok/internal/model"
	"github.com/spf13/cobra"
)

func newModelDownloadCmd() *cobra.Command {
	var hfRepo string
	var outDir string
	var hfToken string
	var baseURL string

	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download the Mandarin character vocabulary from Hugging Face",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if hfToken == "" {
				hfToken = os.Getenv("HF_TOKEN")
			}

			err := model.Download(model.DownloadOptions{
				Repo:    hfRepo,
				OutDir:  outDir,
				HFToken: hfToken,
				BaseURL: baseURL,
				Stdout:  cmd.OutOrStdout(),
				Stderr:  cmd.ErrOrStderr(),
			})
			if err != nil {
				return fmt.Errorf("model download failed: %w", err)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&hfRepo, "hf-repo", model.DefaultRepo, "Hugging Face model repository")
	cmd.Flags().StringVar(&outDir, "out-dir", "assets/bert-base-chinese", "Directory where model files are stored")
	cmd.Flags().StringVar(&hfToken, "hf-token", "", "Hugging Face token (falls back to HF_TOKEN env var)")
	cmd.Flags().StringVar(&baseURL, "base-url", model.DefaultBaseURL, "Hugging Face endpoint or mirror")

	return cmd
}
