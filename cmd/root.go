// Package cmd implements the CLI commands for the EPUB creator using
// Cobra.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Fox6935/kemono-epub-creator/core/config"
)

var flagConfig string

var rootCmd = &cobra.Command{
	Use:   "kepub",
	Short: "Package a creator's posts into an EPUB",
	Long: `kepub extracts a creator's posts from a kemono-style content host and
assembles selected posts into a single EPUB, embedding remote images and
rewriting markup into well-formed XHTML.

Usage:
  kepub list <service> <creator-id>
  kepub epub <service> <creator-id> [flags]
  kepub export <service> <creator-id> --markdown|--pdf [flags]`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to a TOML config file")
}

// loadConfig resolves the effective configuration for a command.
func loadConfig() (config.Config, error) {
	return config.Load(flagConfig)
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
