package main

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/catalog-tracker/internal/lifecycle"
	"github.com/jonathan/catalog-tracker/internal/store"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Run a lifecycle reconciliation pass",
	Long: `Applies the evidence of a completed scrape without importing products: removed products
whose link is in the links file are reactivated, and active products of the given sellers whose
link is not in the file (or who have no link) are marked removed.

The links file holds one product link per line; blank lines and lines starting with # are ignored.`,
	RunE: runReconcile,
}

var (
	reconcileJob       string
	reconcileSellers   []string
	reconcileLinksFile string
)

func init() {
	reconcileCmd.Flags().StringVar(&reconcileJob, "job", "", "Scrape job ID the links were captured by (required)")
	reconcileCmd.Flags().StringSliceVar(&reconcileSellers, "seller", nil, "Seller ID in scope of the pass (repeatable)")
	reconcileCmd.Flags().StringVar(&reconcileLinksFile, "links-file", "", "File with the product links seen by the pass (required)")

	if err := reconcileCmd.MarkFlagRequired("job"); err != nil {
		panic(fmt.Sprintf("failed to mark job flag as required: %v", err))
	}
	if err := reconcileCmd.MarkFlagRequired("links-file"); err != nil {
		panic(fmt.Sprintf("failed to mark links-file flag as required: %v", err))
	}

	rootCmd.AddCommand(reconcileCmd)
}

func runReconcile(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	jobID, err := parseID("job", reconcileJob)
	if err != nil {
		return err
	}
	sellerIDs, err := parseIDs("seller", reconcileSellers)
	if err != nil {
		return err
	}

	f, err := os.Open(reconcileLinksFile)
	if err != nil {
		return fmt.Errorf("failed to open links file: %w", err)
	}
	links, err := readLinks(f)
	_ = f.Close()
	if err != nil {
		return fmt.Errorf("failed to read links file: %w", err)
	}

	database, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer database.Close()

	job, err := database.GetScrapeJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job == nil {
		return fmt.Errorf("%w: scrape job %s not found", store.ErrInvalidArgument, jobID)
	}

	reconciler := lifecycle.NewReconciler(database, lifecycle.WithLogger(slog.Default()))
	result, err := reconciler.Reconcile(ctx, lifecycle.Pass{
		JobID:     jobID,
		SellerIDs: sellerIDs,
		Links:     links,
	})
	if err != nil {
		return err
	}

	newPrinter().PrintPassResult(jobID, result)
	return nil
}

func parseID(what, s string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid %s id %q", store.ErrInvalidArgument, what, s)
	}
	return id, nil
}

func parseIDs(what string, values []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(values))
	for _, v := range values {
		id, err := parseID(what, v)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// readLinks returns the non-blank, non-comment lines of r, trimmed.
func readLinks(r io.Reader) ([]string, error) {
	var links []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		links = append(links, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return links, nil
}
