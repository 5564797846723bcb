package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/catalog-tracker/internal/ingest"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import a scrape session JSON file",
	Long: `Validates a scrape session written by the scraper and imports it in one transaction:
the scrape job, its sellers and products are upserted, then products of the scraped sellers
that were not seen are marked removed and removed products that reappeared are reactivated.`,
	RunE: runImport,
}

var (
	importInput        string
	importValidateOnly bool
)

func init() {
	importCmd.Flags().StringVarP(&importInput, "in", "i", "", "Path to scrape session JSON file (required)")
	importCmd.Flags().BoolVar(&importValidateOnly, "validate-only", false, "Validate the file without touching the database")

	if err := importCmd.MarkFlagRequired("in"); err != nil {
		panic(fmt.Sprintf("failed to mark in flag as required: %v", err))
	}

	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	printer := newPrinter()

	session, err := ingest.LoadSession(importInput)
	if err != nil {
		return fmt.Errorf("failed to load scrape session: %w", err)
	}
	printer.PrintSession(session)

	if importValidateOnly {
		_, _ = fmt.Fprintf(os.Stdout, "Scrape session is valid\n")
		return nil
	}

	database, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer database.Close()

	summary, err := ingest.NewImporter(database, nil, slog.Default()).Import(ctx, session)
	if err != nil {
		return err
	}
	printer.PrintImportSummary(summary)

	overview, err := database.GetOverview(ctx)
	if err != nil {
		return err
	}
	printer.PrintOverview(overview)
	return nil
}
