// Package report renders the catalog report views as an XLSX workbook.
package report

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/catalog-tracker/internal/db"
)

// Sheet names, in workbook order.
const (
	SheetOverview   = "Overview"
	SheetLifecycle  = "Seller Lifecycle"
	SheetWeekly     = "Seller Weekly"
	SheetDaily      = "Daily Scrapes"
	SheetLatest     = "Latest Products"
	SheetActive     = "Active Products"
	timestampLayout = "2006-01-02 15:04:05"
)

// Source provides the report rows. *db.DB implements it.
type Source interface {
	GetOverview(ctx context.Context) (*db.Overview, error)
	ListActiveProducts(ctx context.Context, limit int) ([]db.ActiveProduct, error)
	ListLatestProducts(ctx context.Context) ([]db.LatestProduct, error)
	ListDailyScrapeStats(ctx context.Context, days int) ([]db.DailyScrapeStats, error)
	ListSellerLifecycleStats(ctx context.Context) ([]db.SellerLifecycleStats, error)
	ListSellerWeeklyMetrics(ctx context.Context) ([]db.SellerWeeklyMetrics, error)
}

// Options bound the exported rows.
type Options struct {
	Days        int // days of daily scrape stats
	ActiveLimit int // max active product rows
}

// Data is everything a workbook is built from.
type Data struct {
	Overview  *db.Overview
	Active    []db.ActiveProduct
	Latest    []db.LatestProduct
	Daily     []db.DailyScrapeStats
	Lifecycle []db.SellerLifecycleStats
	Weekly    []db.SellerWeeklyMetrics
}

// Exporter produces XLSX bytes from a Source.
type Exporter struct {
	source Source
	opts   Options
	logger *slog.Logger
}

// NewExporter creates an Exporter.
func NewExporter(source Source, opts Options, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Days <= 0 {
		opts.Days = 30
	}
	return &Exporter{source: source, opts: opts, logger: logger}
}

// Fetch reads all report views concurrently.
func (e *Exporter) Fetch(ctx context.Context) (*Data, error) {
	var data Data
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		data.Overview, err = e.source.GetOverview(ctx)
		return err
	})
	g.Go(func() (err error) {
		data.Active, err = e.source.ListActiveProducts(ctx, e.opts.ActiveLimit)
		return err
	})
	g.Go(func() (err error) {
		data.Latest, err = e.source.ListLatestProducts(ctx)
		return err
	})
	g.Go(func() (err error) {
		data.Daily, err = e.source.ListDailyScrapeStats(ctx, e.opts.Days)
		return err
	})
	g.Go(func() (err error) {
		data.Lifecycle, err = e.source.ListSellerLifecycleStats(ctx)
		return err
	})
	g.Go(func() (err error) {
		data.Weekly, err = e.source.ListSellerWeeklyMetrics(ctx)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to fetch report data: %w", err)
	}
	return &data, nil
}

// Export returns the report workbook as bytes.
func (e *Exporter) Export(ctx context.Context) ([]byte, error) {
	start := time.Now()

	data, err := e.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	f, err := Build(data)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	e.logger.Info("export.xlsx.ok",
		"active_products", len(data.Active),
		"sellers", len(data.Lifecycle),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// Build lays out one sheet per report view.
func Build(data *Data) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetOverview); err != nil {
		return nil, err
	}

	overview := data.Overview
	if overview == nil {
		overview = &db.Overview{}
	}
	rows := [][]any{
		{"Metric", "Value"},
		{"Active sellers", overview.ActiveSellers},
		{"Active products", overview.ActiveProducts},
		{"Removed products", overview.RemovedProducts},
		{"Completed scrape jobs", overview.CompletedJobs},
	}
	if err := writeSheet(f, SheetOverview, rows); err != nil {
		return nil, err
	}
	_ = f.SetColWidth(SheetOverview, "A", "A", 24)

	rows = [][]any{{"Seller", "Active", "Total", "Listed", "Removed", "Reactivated", "Removed (7d)", "First Seen", "Last Scraped"}}
	for _, r := range data.Lifecycle {
		rows = append(rows, []any{
			r.SellerName, r.IsActive, r.TotalProducts, r.ActiveProducts, r.RemovedProducts,
			r.ReactivatedProducts, r.RemovedLast7Days, formatTime(r.FirstSeenAt), formatTime(r.LastScrapedAt),
		})
	}
	if err := writeSheet(f, SheetLifecycle, rows); err != nil {
		return nil, err
	}
	_ = f.SetColWidth(SheetLifecycle, "A", "A", 28)
	_ = f.SetColWidth(SheetLifecycle, "H", "I", 20)

	rows = [][]any{{"Seller", "Weeks Tracked", "Avg Listed / Week", "Avg Removed / Week", "Avg Active Price"}}
	for _, r := range data.Weekly {
		rows = append(rows, []any{r.SellerName, r.WeeksTracked, r.AvgListedPerWeek, r.AvgRemovedPerWeek, r.AvgActivePrice})
	}
	if err := writeSheet(f, SheetWeekly, rows); err != nil {
		return nil, err
	}
	_ = f.SetColWidth(SheetWeekly, "A", "A", 28)

	rows = [][]any{{"Day", "Jobs", "Completed", "Failed", "Items", "Sellers", "Avg Duration (s)"}}
	for _, r := range data.Daily {
		rows = append(rows, []any{
			r.Day.Format("2006-01-02"), r.Jobs, r.CompletedJobs, r.FailedJobs, r.TotalItems, r.TotalSellers, r.AvgDurationSeconds,
		})
	}
	if err := writeSheet(f, SheetDaily, rows); err != nil {
		return nil, err
	}

	rows = [][]any{{"Seller", "Title", "Price", "Link", "Seen At"}}
	for _, r := range data.Latest {
		rows = append(rows, []any{r.SellerName, r.Title, r.Price, deref(r.Link), r.SeenAt.UTC().Format(timestampLayout)})
	}
	if err := writeSheet(f, SheetLatest, rows); err != nil {
		return nil, err
	}
	_ = f.SetColWidth(SheetLatest, "A", "B", 28)
	_ = f.SetColWidth(SheetLatest, "D", "D", 40)

	rows = [][]any{{"Seller", "City", "Title", "Price", "Link", "Photos", "Out of Stock", "Scraped At"}}
	for _, r := range data.Active {
		rows = append(rows, []any{
			r.SellerName, r.SellerCity, truncate(r.Title, 140), r.Price, deref(r.Link),
			r.PhotoCount, r.IsOutOfStock, formatTime(r.ScrapedAt),
		})
	}
	if err := writeSheet(f, SheetActive, rows); err != nil {
		return nil, err
	}
	_ = f.SetColWidth(SheetActive, "A", "A", 28)
	_ = f.SetColWidth(SheetActive, "C", "C", 48)
	_ = f.SetColWidth(SheetActive, "E", "E", 40)

	f.SetActiveSheet(0)
	return f, nil
}

func writeSheet(f *excelize.File, sheet string, rows [][]any) error {
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("failed to create sheet %q: %w", sheet, err)
		}
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(timestampLayout)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
