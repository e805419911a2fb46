package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/harunnryd/nightowl/cmd/nightowl/runtime"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bot with every configured transport",
	Long:  `Starts nightowl as a long-running service: Telegram and Slack adapters, the HTTP ingest and health endpoints, and the background sweeps.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			return fmt.Errorf("config not loaded")
		}

		r, err := runtime.NewRuntimeBuilder().
			WithConfig(cfg).
			WithMode(runtime.ModeServe).
			Build()
		if err != nil {
			return err
		}

		slog.Info("nightowl starting up...", "port", cfg.Server.Port, "city", cfg.City.Name)
		err = r.Daemon.Start(context.Background())
		if err != nil {
			// Cancellation via signal/context is a graceful shutdown case for CLI.
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				slog.Info("nightowl stopped gracefully")
				return nil
			}
			return fmt.Errorf("daemon failed: %w", err)
		}

		slog.Info("nightowl stopped gracefully")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
