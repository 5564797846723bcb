package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/jonathan/catalog-tracker/internal/ingest"
)

var loadSellersCmd = &cobra.Command{
	Use:   "load-sellers",
	Short: "Load sellers from a CSV file",
	Long: `Reads a CSV with name and catalogue_link columns (seller_name and catalogue_url are also
accepted, plus optional city and contact) and inserts or updates each seller by name.
Rows without a catalogue URL are skipped.`,
	RunE: runLoadSellers,
}

var loadSellersInput string

func init() {
	loadSellersCmd.Flags().StringVarP(&loadSellersInput, "in", "i", "", "Path to sellers CSV file (required)")

	if err := loadSellersCmd.MarkFlagRequired("in"); err != nil {
		panic(fmt.Sprintf("failed to mark in flag as required: %v", err))
	}

	rootCmd.AddCommand(loadSellersCmd)
}

func runLoadSellers(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	rows, err := ingest.LoadSellersCSV(loadSellersInput)
	if err != nil {
		return fmt.Errorf("failed to load sellers: %w", err)
	}
	for _, index := range rows.Skipped {
		slog.Warn("sellers.csv.skip", "row", index, "reason", "no catalogue URL")
	}

	database, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer database.Close()

	summary, err := ingest.NewSellerLoader(database, slog.Default()).Load(ctx, rows.Sellers)
	if err != nil {
		return fmt.Errorf("failed to load sellers: %w", err)
	}
	summary.Skipped = len(rows.Skipped)

	active, err := database.CountActiveSellers(ctx)
	if err != nil {
		return err
	}

	newPrinter().PrintLoadSummary(summary, active)
	return nil
}
