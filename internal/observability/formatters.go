// Package observability provides formatted output and logging for the CLI.
package observability

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/catalog-tracker/internal/db"
	"github.com/jonathan/catalog-tracker/internal/ingest"
	"github.com/jonathan/catalog-tracker/internal/lifecycle"
	"github.com/jonathan/catalog-tracker/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for CLI summaries
type Printer struct {
	out     io.Writer
	verbose bool
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// SetVerbose lists every row instead of the first few.
func (p *Printer) SetVerbose(verbose bool) {
	p.verbose = verbose
}

func (p *Printer) limit(n int) int {
	if p.verbose {
		return n
	}
	return min(n, maxItemsToShow)
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %s │\n", pad(title, boxWidth-4))
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		fmt.Fprintf(p.out, "│ %s │\n", pad(clip(line, boxWidth-4), boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// clip shortens s to n runes, marking the cut with "...".
func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// pad right-pads s with spaces to n runes.
func pad(s string, n int) string {
	if w := len([]rune(s)); w < n {
		return s + strings.Repeat(" ", n-w)
	}
	return s
}

// PrintSession outputs what a scrape session file contains.
func (p *Printer) PrintSession(session *types.ScrapeSession) {
	if session == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Scrape Job: %s\n", session.ScrapeJob.ID))
	sb.WriteString(fmt.Sprintf("Status:     %s\n", session.ScrapeJob.Status))
	if !session.ScrapeJob.StartedAt.IsZero() {
		sb.WriteString(fmt.Sprintf("Started:    %s\n", session.ScrapeJob.StartedAt.UTC().Format("2006-01-02 15:04:05")))
	}
	sb.WriteString(fmt.Sprintf("Sellers:    %d\n", len(session.Sellers)))
	sb.WriteString(fmt.Sprintf("Products:   %d (%d with link)", len(session.Products), len(session.Links())))

	p.printBox("SCRAPE SESSION", sb.String())
}

// PrintImportSummary outputs the counts of a scrape session import.
func (p *Printer) PrintImportSummary(summary *ingest.Summary) {
	if summary == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Scrape Job: %s\n\n", summary.JobID))
	sb.WriteString(fmt.Sprintf("New products inserted:      %d\n", summary.Inserted))
	sb.WriteString(fmt.Sprintf("Existing products updated:  %d\n", summary.Updated))
	sb.WriteString(fmt.Sprintf("Products marked as removed: %d (%d new)\n", summary.Removed, summary.NewlyRemoved))
	sb.WriteString(fmt.Sprintf("Products reactivated:       %d\n", summary.Reactivated))
	sb.WriteString(fmt.Sprintf("Total processed:            %d", summary.TotalProcessed))
	if summary.DuplicatesMerged > 0 {
		sb.WriteString(fmt.Sprintf("\nDuplicate links merged:     %d", summary.DuplicatesMerged))
	}

	p.printBox("IMPORT COMPLETE", sb.String())
}

// PrintPassResult outputs the outcome of a reconciliation pass.
func (p *Printer) PrintPassResult(jobID uuid.UUID, result *lifecycle.PassResult) {
	if result == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Scrape Job:  %s\n\n", jobID))
	sb.WriteString(fmt.Sprintf("Removed:     %d\n", result.Removed.Marked))
	sb.WriteString(fmt.Sprintf("  first time %d, again %d\n", result.Removed.Newly, result.Removed.Rerun()))
	sb.WriteString(fmt.Sprintf("Reactivated: %d", result.Reactivated))

	p.printBox("RECONCILIATION", sb.String())
}

// PrintLoadSummary outputs the counts of a seller load.
func (p *Printer) PrintLoadSummary(summary *ingest.LoadSummary, activeSellers int) {
	if summary == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("New sellers inserted:     %d\n", summary.Inserted))
	sb.WriteString(fmt.Sprintf("Existing sellers updated: %d\n", summary.Updated))
	if summary.Failed > 0 {
		sb.WriteString(fmt.Sprintf("Failed rows:              %d\n", summary.Failed))
	}
	if summary.Skipped > 0 {
		sb.WriteString(fmt.Sprintf("Skipped (no catalogue):   %d\n", summary.Skipped))
	}
	sb.WriteString(fmt.Sprintf("Total processed:          %d\n\n", summary.Processed()))
	sb.WriteString(fmt.Sprintf("Database now has %d active sellers", activeSellers))

	p.printBox("SELLERS LOADED", sb.String())
}

// PrintSellers lists sellers by name.
func (p *Printer) PrintSellers(sellers []types.Seller) {
	if len(sellers) == 0 {
		p.printBox("SELLERS", "No sellers found")
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Total sellers: %d\n\n", len(sellers)))

	count := p.limit(len(sellers))
	for i := 0; i < count; i++ {
		s := sellers[i]
		status := "✓"
		if !s.IsActive {
			status = "✗"
		}
		sb.WriteString(fmt.Sprintf("%s %s", status, s.Name))
		if s.City != "" {
			sb.WriteString(fmt.Sprintf(" (%s)", s.City))
		}
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("    %s\n", s.CatalogueURL))
	}
	if len(sellers) > count {
		sb.WriteString(fmt.Sprintf("\n... and %d more sellers", len(sellers)-count))
	}

	p.printBox("SELLERS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintSellerProducts lists one seller's products, newest first.
func (p *Printer) PrintSellerProducts(seller *types.Seller, products []types.Product) {
	if seller == nil {
		return
	}
	title := fmt.Sprintf("PRODUCTS: %s", seller.Name)
	if len(products) == 0 {
		p.printBox(title, "No products found")
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Total products: %d\n\n", len(products)))

	count := p.limit(len(products))
	for i := 0; i < count; i++ {
		prod := products[i]
		status := "active"
		if prod.Removed() {
			status = "removed"
		}
		sb.WriteString(fmt.Sprintf("%-7s %s", status, prod.Title))
		if prod.Price != "" {
			sb.WriteString(fmt.Sprintf(" - %s", prod.Price))
		}
		sb.WriteString("\n")
		link := prod.LinkValue()
		if link == "" {
			link = "(no link)"
		}
		sb.WriteString(fmt.Sprintf("    %s\n", link))
	}
	if len(products) > count {
		sb.WriteString(fmt.Sprintf("\n... and %d more products", len(products)-count))
	}

	p.printBox(title, strings.TrimSuffix(sb.String(), "\n"))
}

// PrintOverview outputs the headline database counts.
func (p *Printer) PrintOverview(o *db.Overview) {
	if o == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Active sellers:        %d\n", o.ActiveSellers))
	sb.WriteString(fmt.Sprintf("Active products:       %d\n", o.ActiveProducts))
	sb.WriteString(fmt.Sprintf("Removed products:      %d\n", o.RemovedProducts))
	sb.WriteString(fmt.Sprintf("Completed scrape jobs: %d", o.CompletedJobs))

	p.printBox("DATABASE STATS", sb.String())
}

// PrintSellerLifecycle outputs per-seller product lifecycle counts.
func (p *Printer) PrintSellerLifecycle(stats []db.SellerLifecycleStats) {
	if len(stats) == 0 {
		return
	}

	var sb strings.Builder
	count := p.limit(len(stats))
	for i := 0; i < count; i++ {
		s := stats[i]
		sb.WriteString(fmt.Sprintf("%s\n", s.SellerName))
		sb.WriteString(fmt.Sprintf("    active %d, removed %d, reactivated %d\n",
			s.ActiveProducts, s.RemovedProducts, s.ReactivatedProducts))
		if s.RemovedLast7Days > 0 {
			sb.WriteString(fmt.Sprintf("    removed in last 7 days: %d\n", s.RemovedLast7Days))
		}
	}
	if len(stats) > count {
		sb.WriteString(fmt.Sprintf("\n... and %d more sellers", len(stats)-count))
	}

	p.printBox("SELLER LIFECYCLE", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintScrapeJobs lists recent scrape jobs, newest first.
func (p *Printer) PrintScrapeJobs(jobs []types.ScrapeJob) {
	if len(jobs) == 0 {
		return
	}

	var sb strings.Builder
	count := p.limit(len(jobs))
	for i := 0; i < count; i++ {
		job := jobs[i]
		sb.WriteString(fmt.Sprintf("%s  %-9s %s\n",
			job.StartedAt.UTC().Format("2006-01-02 15:04"), job.Status, job.ID.String()[:8]))
		sb.WriteString(fmt.Sprintf("    %d items from %d sellers", job.TotalItems, job.TotalSellers))
		if job.Finished() && job.CompletedAt != nil {
			sb.WriteString(fmt.Sprintf(", took %s", job.CompletedAt.Sub(job.StartedAt).Round(time.Second)))
		}
		if job.ErrorMessage != nil && *job.ErrorMessage != "" {
			sb.WriteString(fmt.Sprintf("\n    error: %s", *job.ErrorMessage))
		}
		sb.WriteString("\n")
	}
	if len(jobs) > count {
		sb.WriteString(fmt.Sprintf("\n... and %d more jobs", len(jobs)-count))
	}

	p.printBox("RECENT SCRAPE JOBS", strings.TrimSuffix(sb.String(), "\n"))
}
