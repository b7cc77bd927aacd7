package main

import (
	"fmt"
	"os"

	"github.com/AR-937/framevault-app/bootstrap"
	"github.com/AR-937/framevault-app/config"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	hotReload bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the usage meter server",
	Long: `Start the FrameVault usage meter.

The server will:
  - Load configuration from framevault.yaml (or --config)
  - Or load configuration from FRAMEVAULT_* environment variables
  - Connect to the database
  - Serve POST /api/usage-meter

Environment variables (for Docker deployments):
  FRAMEVAULT_AUTH_JWT_SECRET   - Project JWT secret (jwt mode)
  FRAMEVAULT_AUTH_REMOTE_URL   - Auth service URL (remote mode)
  FRAMEVAULT_DATABASE_DRIVER   - sqlite, postgres, or memory
  FRAMEVAULT_DATABASE_DSN      - Database DSN (default: framevault.db)
  FRAMEVAULT_BILLING_MODE      - stripe, dummy, or none
  FRAMEVAULT_BILLING_STRIPE_KEY - Stripe secret key
  FRAMEVAULT_LOG_LEVEL         - Log level: debug, info, warn, error

Examples:
  framevault serve
  framevault serve --config /etc/framevault/config.yaml
  framevault serve --hot-reload=false`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&hotReload, "hot-reload", true, "enable hot reload of configuration")
}

func runServe(cmd *cobra.Command, args []string) error {
	hasConfigFile := false
	if _, err := os.Stat(cfgFile); err == nil {
		hasConfigFile = true
	}

	if !hasConfigFile && !config.HasEnvConfig() {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "No configuration found.")
		fmt.Fprintln(out)
		fmt.Fprintf(out, "Option 1: Create %s\n", cfgFile)
		fmt.Fprintln(out, "Option 2: Set FRAMEVAULT_AUTH_JWT_SECRET environment variable")
		return nil
	}

	var (
		cfg    *config.Config
		holder *config.Holder
		err    error
	)

	if hasConfigFile && hotReload {
		// Hot reload only works with config file
		logger := zerolog.New(os.Stderr).With().Timestamp().Str("component", "config").Logger()
		holder, err = config.NewHolder(cfgFile, logger)
		if err != nil {
			return fmt.Errorf("error loading config: %w", err)
		}
		if err := holder.WatchFile(); err != nil {
			logger.Warn().Err(err).Msg("file watching disabled")
		}
		holder.WatchSignals()
		cfg = holder.Get()
	} else {
		cfg, err = config.LoadWithFallback(cfgFile)
		if err != nil {
			return fmt.Errorf("error loading config: %w", err)
		}
		if !hasConfigFile {
			fmt.Fprintln(cmd.OutOrStdout(), "Running with environment variables (no config file)")
		}
	}

	app, err := bootstrap.New(cfg, bootstrap.Options{
		Holder:  holder,
		Version: version,
	})
	if err != nil {
		if holder != nil {
			holder.Stop()
		}
		return fmt.Errorf("error initializing: %w", err)
	}

	// Run (blocks until shutdown)
	return app.Run()
}
