package main

import (
	"fmt"
	"strings"

	"github.com/harunnryd/nightowl/internal/config"
	"github.com/harunnryd/nightowl/internal/daemon/components"
	"github.com/harunnryd/nightowl/internal/formatter"

	"github.com/spf13/cobra"
)

var areasOutput string

var areasCmd = &cobra.Command{
	Use:   "areas",
	Short: "Browse the neighborhood registry",
}

var areasListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every known neighborhood",
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := areasFormatter()
		if err != nil {
			return err
		}
		registry, err := components.BuildRegistry(cfg)
		if err != nil {
			return err
		}

		out, err := f.FormatAreas(registry.Areas())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
		return nil
	},
}

var areasResolveCmd = &cobra.Command{
	Use:   "resolve <place>",
	Short: "Show which neighborhood a place name resolves to, and what's nearby",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := areasFormatter()
		if err != nil {
			return err
		}
		registry, err := components.BuildRegistry(cfg)
		if err != nil {
			return err
		}

		text := strings.Join(args, " ")
		area, ok := registry.Resolve(text, nil)
		if !ok {
			return fmt.Errorf("no neighborhood matches %q", text)
		}

		hops := cfg.Conversation.AdjacentHops
		if hops <= 0 {
			hops = config.DefaultConversationAdjacentHops
		}
		out, err := f.FormatArea(area, registry.Adjacent(area.Name, hops))
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
		return nil
	},
}

func areasFormatter() (formatter.Formatter, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config not loaded")
	}
	format, err := formatter.ParseOutputFormat(areasOutput)
	if err != nil {
		return nil, err
	}
	return formatter.New(format)
}

func init() {
	areasCmd.PersistentFlags().StringVarP(&areasOutput, "output", "o", string(formatter.OutputFormatTable), "output format (table, json, yaml)")
	areasCmd.AddCommand(areasListCmd)
	areasCmd.AddCommand(areasResolveCmd)
	rootCmd.AddCommand(areasCmd)
}
