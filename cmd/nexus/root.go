package main

import (
	"github.com/spf13/cobra"

	"nexus-support-service/internal/config"
	"nexus-support-service/internal/observability/logging"
)

func newRootCmd() *cobra.Command {
	var (
		envFiles []string
		logLevel string
	)

	root := &cobra.Command{
		Use:          "nexus",
		Short:        "NEXUS customer support backend",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.LoadDotEnv(envFiles...); err != nil {
				return err
			}
			cfg := config.Load()
			if logLevel != "" {
				cfg.Observability.LogLevel = logLevel
			}
			logging.InitWriter(logging.Config{
				Level:   cfg.Observability.LogLevel,
				Format:  cfg.Observability.LogFormat,
				Service: cfg.Service.Name,
			}, cmd.ErrOrStderr())
			return nil
		},
	}
	root.PersistentFlags().StringSliceVar(&envFiles, "env-file", []string{".env"}, "dotenv files to load before reading the environment")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "override LOG_LEVEL")

	serve := newServeCmd()
	root.AddCommand(serve, newGroupCmd(), newWatchCmd())
	root.RunE = serve.RunE
	return root
}
