package report

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/jonathan/catalog-tracker/internal/db"
)

type fakeSource struct {
	overview  *db.Overview
	active    []db.ActiveProduct
	latest    []db.LatestProduct
	daily     []db.DailyScrapeStats
	lifecycle []db.SellerLifecycleStats
	weekly    []db.SellerWeeklyMetrics
	err       error

	gotLimit atomic.Int64
	gotDays  atomic.Int64
}

func (f *fakeSource) GetOverview(context.Context) (*db.Overview, error) {
	return f.overview, nil
}

func (f *fakeSource) ListActiveProducts(_ context.Context, limit int) ([]db.ActiveProduct, error) {
	f.gotLimit.Store(int64(limit))
	return f.active, nil
}

func (f *fakeSource) ListLatestProducts(context.Context) ([]db.LatestProduct, error) {
	return f.latest, nil
}

func (f *fakeSource) ListDailyScrapeStats(_ context.Context, days int) ([]db.DailyScrapeStats, error) {
	f.gotDays.Store(int64(days))
	return f.daily, nil
}

func (f *fakeSource) ListSellerLifecycleStats(context.Context) ([]db.SellerLifecycleStats, error) {
	return f.lifecycle, f.err
}

func (f *fakeSource) ListSellerWeeklyMetrics(context.Context) ([]db.SellerWeeklyMetrics, error) {
	return f.weekly, nil
}

func sampleSource() *fakeSource {
	link := "https://wa.me/p/1"
	scraped := time.Date(2025, 6, 1, 10, 5, 0, 0, time.UTC)
	return &fakeSource{
		overview: &db.Overview{ActiveSellers: 2, ActiveProducts: 3, RemovedProducts: 1, CompletedJobs: 4},
		active: []db.ActiveProduct{
			{ID: uuid.New(), SellerName: "Phone Hub", SellerCity: "Mumbai", Title: "iPhone 13", Price: "₹38,000", Link: &link, PhotoCount: 4, ScrapedAt: &scraped},
		},
		latest: []db.LatestProduct{
			{SellerName: "Phone Hub", Title: "iPhone 13", Price: "₹38,000", Link: &link, SeenAt: scraped},
		},
		daily: []db.DailyScrapeStats{
			{Day: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), Jobs: 2, CompletedJobs: 2, TotalItems: 10},
		},
		lifecycle: []db.SellerLifecycleStats{
			{SellerName: "Phone Hub", IsActive: true, TotalProducts: 4, ActiveProducts: 3, RemovedProducts: 1},
		},
		weekly: []db.SellerWeeklyMetrics{
			{SellerName: "Phone Hub", WeeksTracked: 2, AvgListedPerWeek: 2.5},
		},
	}
}

func TestExport_Workbook(t *testing.T) {
	src := sampleSource()
	exporter := NewExporter(src, Options{ActiveLimit: 50}, nil)

	b, err := exporter.Export(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, b)

	assert.Equal(t, int64(50), src.gotLimit.Load())
	assert.Equal(t, int64(30), src.gotDays.Load(), "days default to 30")

	f, err := excelize.OpenReader(bytes.NewReader(b))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t,
		[]string{SheetOverview, SheetLifecycle, SheetWeekly, SheetDaily, SheetLatest, SheetActive},
		f.GetSheetList(),
	)

	v, err := f.GetCellValue(SheetOverview, "B3")
	require.NoError(t, err)
	assert.Equal(t, "3", v)

	rows, err := f.GetRows(SheetActive)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Seller", rows[0][0])
	assert.Equal(t, "iPhone 13", rows[1][2])
	assert.Equal(t, "https://wa.me/p/1", rows[1][4])
	assert.Equal(t, "2025-06-01 10:05:00", rows[1][7])

	rows, err = f.GetRows(SheetDaily)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "2025-06-01", rows[1][0])
}

func TestExport_EmptyData(t *testing.T) {
	exporter := NewExporter(&fakeSource{}, Options{Days: 7}, nil)

	b, err := exporter.Export(context.Background())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(b))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(SheetLifecycle)
	require.NoError(t, err)
	assert.Len(t, rows, 1, "header only")

	v, err := f.GetCellValue(SheetOverview, "B2")
	require.NoError(t, err)
	assert.Equal(t, "0", v)
}

func TestExport_SourceError(t *testing.T) {
	src := sampleSource()
	src.err = errors.New("relation does not exist")

	_, err := NewExporter(src, Options{}, nil).Export(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to fetch report data")
	assert.ErrorIs(t, err, src.err)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abc…", truncate("abcdef", 4))
	assert.Equal(t, "₹₹…", truncate("₹₹₹₹", 3))
	assert.Equal(t, "abc", truncate("abc", 0))
}
