package main

import (
	"github.com/example/go-zhtok/internal/model"
	"github.com/example/go-zhtok/internal/pipeline"
	"github.com/spf13/cobra"
)

func newModelVerifyCmd() *cobra.Command {
	var sample string

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Load every configured model and run a smoke tokenization",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			paths := modelPaths(cfg)

			return model.Verify(model.VerifyOptions{
				Paths:  paths,
				Store:  pipeline.FileStore{CantoneseMaxWordLength: paths.CantoneseMaxWordLength},
				Sample: sample,
				Stdout: cmd.OutOrStdout(),
				Stderr: cmd.ErrOrStderr(),
			})
		},
	}

	cmd.Flags().StringVar(&sample, "sample", model.DefaultSample, "Text used for the smoke tokenization")

	return cmd
}
