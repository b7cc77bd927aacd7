package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "framevault",
	Short: "Usage meter for billable photo downloads",
	Long: `FrameVault records photo downloads for subscribed users and reports
each one to metered billing.

Quick start:
  framevault serve      # Start the HTTP server
  framevault validate   # Validate configuration

Local testing:
  framevault token --user <id>   # Mint an access token (jwt mode)
  framevault usage <id>          # Show a user's stored download count`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "framevault.yaml", "config file path")
}
