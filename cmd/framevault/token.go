package main

import (
	"fmt"
	"time"

	"github.com/AR-937/framevault-app/adapters/auth"
	"github.com/AR-937/framevault-app/config"
	"github.com/spf13/cobra"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint an access token for local testing",
	Long: `Mint an HS256 access token signed with auth.jwt_secret.

Only available in jwt auth mode.

Examples:
  framevault token --user 6f1c0d2e-...
  framevault token --user u1 --email u1@example.com --ttl 24h`,
	RunE: runToken,
}

var (
	tokenUser  string
	tokenEmail string
	tokenTTL   time.Duration
)

func init() {
	rootCmd.AddCommand(tokenCmd)

	tokenCmd.Flags().StringVar(&tokenUser, "user", "", "user ID (token subject)")
	tokenCmd.Flags().StringVar(&tokenEmail, "email", "", "email claim")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", time.Hour, "token lifetime")
	tokenCmd.MarkFlagRequired("user")
}

func runToken(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadWithFallback(cfgFile)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}
	if cfg.Auth.Mode != "jwt" {
		return fmt.Errorf("token minting requires auth.mode jwt, got %s", cfg.Auth.Mode)
	}

	svc := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.Audience, tokenTTL)
	token, expiresAt, err := svc.GenerateToken(tokenUser, tokenEmail)
	if err != nil {
		return fmt.Errorf("generate token: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), token)
	fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", expiresAt.Format(time.RFC3339))
	return nil
}
