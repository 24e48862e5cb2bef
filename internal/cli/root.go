// Package cli implements the pointsd command line interface.
// Every command except serve talks to a running daemon over its local API.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/adsbot-network/pointsd/internal/api"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "pointsd",
	Short: "Telegram rewards agent",
	Long: `pointsd is the headless client agent for the AdsBot rewards Mini App.
It earns ad-watch points against the remote ledger, tracks social tasks
through a durable outbox, and serves a local API for the app shell.

Start the agent with 'pointsd serve', then drive it:

  pointsd earn main        Watch an ad in the main slot
  pointsd balance          Show the cached point balance
  pointsd tasks            List social tasks
  pointsd flush            Force an outbox flush`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default ~/.pointsd/config.toml)")
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the agent version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(os.Stdout, "pointsd %s\n", api.Version)
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
