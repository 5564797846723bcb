package main

import (
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show database and seller lifecycle statistics",
	RunE:  runStats,
}

var statsJobs int

func init() {
	statsCmd.Flags().IntVar(&statsJobs, "jobs", 5, "Number of recent scrape jobs to show")

	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	database, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer database.Close()

	overview, err := database.GetOverview(ctx)
	if err != nil {
		return err
	}
	lifecycleStats, err := database.ListSellerLifecycleStats(ctx)
	if err != nil {
		return err
	}

	printer := newPrinter()
	printer.PrintOverview(overview)
	printer.PrintSellerLifecycle(lifecycleStats)

	if statsJobs > 0 {
		jobs, err := database.ListScrapeJobs(ctx, statsJobs)
		if err != nil {
			return err
		}
		printer.PrintScrapeJobs(jobs)
	}
	return nil
}
