package main

import (
	"fmt"

	"github.com/harunnryd/nightowl/internal/daemon/components"
	"github.com/harunnryd/nightowl/internal/formatter"

	"github.com/spf13/cobra"
)

var cacheOutput string

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect the listings cache",
}

var cacheStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show cache size, age and per-source health",
	Long:  `Loads the cache snapshot, if any, and prints what a running bot would start with. No sources are fetched.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := cacheFormatter()
		if err != nil {
			return err
		}
		catalog, err := initCatalog(cmd)
		if err != nil {
			return err
		}
		return printCacheStatus(cmd, f, catalog)
	},
}

var cacheRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Fetch every source now and rewrite the snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := cacheFormatter()
		if err != nil {
			return err
		}
		catalog, err := initCatalog(cmd)
		if err != nil {
			return err
		}

		sig := NewSignalHandler(cmd.Context())
		sig.Start()
		defer sig.Stop()

		if err := catalog.GetAggregator().Refresh(sig.Context()); err != nil {
			return fmt.Errorf("refresh failed: %w", err)
		}
		return printCacheStatus(cmd, f, catalog)
	},
}

func cacheFormatter() (formatter.Formatter, error) {
	format, err := formatter.ParseOutputFormat(cacheOutput)
	if err != nil {
		return nil, err
	}
	return formatter.New(format)
}

func initCatalog(cmd *cobra.Command) (*components.CatalogComponent, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config not loaded")
	}
	catalog := components.NewCatalogComponent(cfg)
	if err := catalog.Init(cmd.Context()); err != nil {
		return nil, fmt.Errorf("failed to initialize catalog: %w", err)
	}
	return catalog, nil
}

func printCacheStatus(cmd *cobra.Command, f formatter.Formatter, catalog *components.CatalogComponent) error {
	out, err := f.FormatCacheStatus(catalog.GetAggregator().Status())
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}

func init() {
	cacheCmd.PersistentFlags().StringVarP(&cacheOutput, "output", "o", string(formatter.OutputFormatTable), "output format (table, json, yaml)")
	cacheCmd.AddCommand(cacheStatusCmd)
	cacheCmd.AddCommand(cacheRefreshCmd)
	rootCmd.AddCommand(cacheCmd)
}
