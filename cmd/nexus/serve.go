package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"nexus-support-service/internal/app"
	"nexus-support-service/internal/config"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, gRPC admin server and transcription poller",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := app.New(ctx, config.Load())
			if err != nil {
				return err
			}
			return a.Run(ctx)
		},
	}
}
