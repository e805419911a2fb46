package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/harunnryd/nightowl/cmd/nightowl/runtime"

	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to nightowl in the terminal",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			return fmt.Errorf("config not loaded")
		}

		r, err := runtime.NewRuntimeBuilder().
			WithConfig(cfg).
			WithMode(runtime.ModeChat).
			WithOutput(cmd.OutOrStdout()).
			Build()
		if err != nil {
			return err
		}

		sig := NewSignalHandler(cmd.Context())
		sig.Start()
		defer sig.Stop()
		ctx, cancel := context.WithCancel(sig.Context())
		defer cancel()

		errCh := make(chan error, 1)
		go func() { errCh <- r.Daemon.Start(ctx) }()

		select {
		case <-r.Daemon.Ready():
		case err := <-errCh:
			return fmt.Errorf("chat failed to start: %w", err)
		}

		if err := r.CLI.Start(ctx); err != nil {
			return err
		}
		replErr := runtime.NewREPL(r, os.Stdin, cmd.OutOrStdout()).Run(ctx)
		cancel()

		if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return replErr
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
}
