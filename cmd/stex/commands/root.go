package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose bool
	asJSON  bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "stex",
	Short: "stex - signal scoring & strategy selection",
	Long: `stex Unified CLI

Composite signal scoring over the watchlist, rule-based stock
strategies and a next-day hit-rate backtest.

Usage:
  go run ./cmd/stex [command]

Examples:
  go run ./cmd/stex api
  go run ./cmd/stex score --date 2024-03-01
  go run ./cmd/stex strategy growth,trend_following --combine and
  go run ./cmd/stex backtest --window 20
  go run ./cmd/stex weights show`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().BoolVar(&asJSON, "json", false, "print results as JSON")
}
