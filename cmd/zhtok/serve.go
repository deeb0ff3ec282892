package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/example/go-zhtok/internal/server"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the tokenizer HTTP server",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			tok, err := buildPipeline(cfg)
			if err != nil {
				return fmt.Errorf("load models: %w", err)
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return server.New(cfg, tok).Start(ctx)
		},
	}

	return cmd
}
