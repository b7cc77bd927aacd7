package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AR-937/framevault-app/bootstrap"
	"github.com/AR-937/framevault-app/config"
	"github.com/AR-937/framevault-app/domain/customer"
	"github.com/spf13/cobra"
)

var usageCmd = &cobra.Command{
	Use:   "usage <user-id>",
	Short: "Show a user's stored download usage",
	Long: `Show the download counter and the number of recorded download events
for a user. Read-only.

Examples:
  framevault usage 6f1c0d2e-...
  framevault usage 6f1c0d2e-... --events 20`,
	Args: cobra.ExactArgs(1),
	RunE: runUsage,
}

var usageEvents int

func init() {
	usageCmd.Flags().IntVar(&usageEvents, "events", 0, "List the N most recent download events")
	rootCmd.AddCommand(usageCmd)
}

func runUsage(cmd *cobra.Command, args []string) error {
	userID := args[0]

	cfg, err := config.LoadWithFallback(cfgFile)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stores, err := bootstrap.OpenStores(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer stores.Close()

	out := cmd.OutOrStdout()

	c, err := stores.Customers.GetByUserID(ctx, userID)
	if errors.Is(err, customer.ErrNotFound) {
		fmt.Fprintf(out, "No customer record for %s\n", userID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("lookup customer: %w", err)
	}

	events, err := stores.Downloads.CountByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("count downloads: %w", err)
	}

	subscription := c.SubscriptionID
	if subscription == "" {
		subscription = "(none)"
	}

	fmt.Fprintf(out, "User:             %s\n", c.UserID)
	fmt.Fprintf(out, "Customer:         %s\n", c.ProviderCustomerID)
	fmt.Fprintf(out, "Subscription:     %s\n", subscription)
	fmt.Fprintf(out, "Total downloads:  %d\n", c.TotalDownloads)
	fmt.Fprintf(out, "Download events:  %d\n", events)

	if usageEvents <= 0 {
		return nil
	}
	recent, err := stores.History.ListByUser(ctx, userID, usageEvents)
	if err != nil {
		return fmt.Errorf("list downloads: %w", err)
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Recent downloads:")
	for _, e := range recent {
		fmt.Fprintf(out, "  %s  %s  %s\n", e.CreatedAt.UTC().Format(time.RFC3339), e.ID, e.Image)
	}
	return nil
}
