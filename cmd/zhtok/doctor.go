package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/example/go-zhtok/internal/config"
	"github.com/example/go-zhtok/internal/doctor"
	"github.com/example/go-zhtok/internal/model"
	"github.com/example/go-zhtok/internal/pipeline"
	"github.com/example/go-zhtok/internal/script"
	"github.com/spf13/cobra"
)

func newDoctorCmd() *cobra.Command {
	var verify bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the script converter, model files and dictionaries",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			stdout := cmd.OutOrStdout()
			stderr := cmd.ErrOrStderr()

			result := doctor.Run(doctorConfig(cfg), stdout)

			if !verify {
				_, _ = fmt.Fprintf(stdout, "%s model verify: skipped (pass --verify to load every model)\n", doctor.PassMark)
			} else if !result.Failed() {
				verifyErr := model.Verify(model.VerifyOptions{
					Paths:  modelPaths(cfg),
					Stdout: io.Discard,
					Stderr: io.Discard,
				})
				if verifyErr != nil {
					result.AddFailure(fmt.Sprintf("model verify: %v", verifyErr))
					_, _ = fmt.Fprintf(stdout, "%s model verify: %v\n", doctor.FailMark, verifyErr)
				} else {
					_, _ = fmt.Fprintf(stdout, "%s model verify: ok\n", doctor.PassMark)
				}
			}

			if result.Failed() {
				for _, f := range result.Failures() {
					_, _ = fmt.Fprintf(stderr, "FAIL: %s\n", f)
				}

				return errors.New("doctor checks failed")
			}

			_, _ = fmt.Fprintln(stdout, "doctor checks passed")

			return nil
		},
	}

	cmd.Flags().BoolVar(&verify, "verify", false, "Also load every model and run a smoke tokenization")

	return cmd
}

func doctorConfig(cfg config.Config) doctor.Config {
	paths := modelPaths(cfg)

	models := make([]doctor.Resource, 0, len(pipeline.Specs()))
	for _, spec := range pipeline.Specs() {
		models = append(models, doctor.Resource{
			Label: spec.Label(),
			Path:  paths.ModelPath(spec.Language, spec.Method),
		})
	}

	return doctor.Config{
		Conversion: cfg.Script.Conversion,
		LoadConverter: func(name string) error {
			_, err := script.New(name)
			return err
		},
		Models:        models,
		MandarinDict:  doctor.Resource{Label: "Mandarin (jieba)", Path: paths.MandarinDict},
		CantoneseDict: doctor.Resource{Label: "Cantonese", Path: paths.CantoneseDict},
	}
}
