// Package main implements the catalog_agent CLI for importing WhatsApp catalog
// scrapes and tracking product lifecycle.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "catalog_agent",
	Short: "WhatsApp catalog tracker",
	Long: `catalog_agent loads sellers, imports scrape sessions produced by the catalog scraper,
keeps each product's lifecycle (active, removed, reactivated) in step with the latest
scrape, and reports on the result.

Configuration can be loaded from a JSON file using --config. Command-line flags override
config file values, and DATABASE_URL is read from the environment or a .env file.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadSettings,
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
