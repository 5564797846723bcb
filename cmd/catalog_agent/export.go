package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jonathan/catalog-tracker/internal/report"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the report views to an XLSX workbook",
	Long:  "Writes one sheet per report: overview, seller lifecycle, seller weekly metrics, daily scrapes, latest products and active products.",
	RunE:  runExport,
}

var (
	exportOutput string
	exportDays   int
	exportLimit  int
)

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "out", "o", "", "Path to output XLSX file (required)")
	exportCmd.Flags().IntVar(&exportDays, "days", 0, "Days of daily scrape stats to include (defaults to report_days)")
	exportCmd.Flags().IntVar(&exportLimit, "limit", 0, "Maximum active product rows (defaults to export_limit)")

	if err := exportCmd.MarkFlagRequired("out"); err != nil {
		panic(fmt.Sprintf("failed to mark out flag as required: %v", err))
	}

	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	opts := report.Options{Days: settings.ReportDays, ActiveLimit: settings.ExportLimit}
	if cmd.Flags().Changed("days") {
		opts.Days = exportDays
	}
	if cmd.Flags().Changed("limit") {
		opts.ActiveLimit = exportLimit
	}

	database, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer database.Close()

	b, err := report.NewExporter(database, opts, slog.Default()).Export(ctx)
	if err != nil {
		return err
	}

	// Ensure output directory exists
	if err := os.MkdirAll(filepath.Dir(exportOutput), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(exportOutput, b, 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}

	_, _ = fmt.Fprintf(os.Stdout, "Report written to %s\n", exportOutput)
	return nil
}
