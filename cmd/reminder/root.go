package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"assetloan-backend/internal/app"
	"assetloan-backend/internal/config"
	"assetloan-backend/internal/infrastructure/logging"
)

// opener builds the application graph. Tests swap it for one over sqlite.
type opener func(configPath string) (*app.App, error)

func openApp(configPath string) (*app.App, error) {
	if configPath != "" {
		if err := os.Setenv("CONFIG_FILE", configPath); err != nil {
			return nil, err
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return app.New(cfg, logger, prometheus.NewRegistry())
}

type commandContext struct {
	open       opener
	configPath string
}

func (c *commandContext) withApp(fn func(a *app.App) error) error {
	a, err := c.open(c.configPath)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func newRootCommand(open opener) *cobra.Command {
	ctx := &commandContext{open: open}

	rootCmd := &cobra.Command{
		Use:           "reminder",
		Short:         "Asset loan reminder and notification tooling",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	rootCmd.PersistentFlags().StringVarP(&ctx.configPath, "config", "c", "", "Configuration file path")

	rootCmd.AddCommand(newSweepCommand(ctx))
	rootCmd.AddCommand(newTriggerCommand(ctx))
	rootCmd.AddCommand(newReplayCommand(ctx))
	return rootCmd
}
