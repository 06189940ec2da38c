// Package cmd — list command.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Fox6935/kemono-epub-creator/core/api"
)

var listCmd = &cobra.Command{
	Use:   "list <service> <creator-id>",
	Short: "List a creator's posts (id, date, title)",
	Args:  cobra.ExactArgs(2),
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	service, creatorID := args[0], args[1]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	client := api.New(api.Options{
		SiteURL:   cfg.SiteURL,
		UserAgent: cfg.UserAgent,
		Limiter:   api.NewRateLimiter(cfg.RateDelay()),
	})

	stubs, err := fetchAllStubs(context.Background(), client, service, creatorID)
	if err != nil {
		return err
	}

	for _, stub := range stubs {
		date := ""
		if !stub.PublishedAt.IsZero() {
			date = stub.PublishedAt.Format("2006-01-02")
		}
		fmt.Fprintf(os.Stdout, "%-12s  %-10s  %s\n", stub.ID, date, stub.Title)
	}
	fmt.Fprintf(os.Stdout, "\n%d posts\n", len(stubs))
	return nil
}
