package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "ceres",
	Short: "Ceres - persistent multi-tier rate limiting gateway",
	Long: `Ceres is a persistent rate limiting engine and admission gateway.

It fronts an upstream HTTP service and admits or rejects each request
against durable fixed-window counters, providing:
  - Per-identifier, per-endpoint, per-class request quotas
  - Durable counters shared across processes via SQLite
  - Fail-open behavior when the counter store is unavailable
  - An append-only admission event log with retention and export
  - Standard X-RateLimit response headers and structured 429 rejections`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
