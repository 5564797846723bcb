package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	Long:  "Applies the embedded schema: sellers, scrape_jobs and products tables, triggers and report views. Safe to run repeatedly.",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	database, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := database.Migrate(ctx); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(os.Stdout, "Schema is up to date\n")
	return nil
}
