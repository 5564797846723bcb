package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// GetOverview returns the headline counts across sellers, products and jobs.
func (db *DB) GetOverview(ctx context.Context) (*Overview, error) {
	var o Overview
	err := db.pool.QueryRow(ctx,
		`SELECT
		     (SELECT count(*) FROM sellers WHERE is_active = true),
		     (SELECT count(*) FROM active_products),
		     (SELECT count(*) FROM products WHERE is_removed = true),
		     (SELECT count(*) FROM scrape_jobs WHERE status = 'completed')`,
	).Scan(&o.ActiveSellers, &o.ActiveProducts, &o.RemovedProducts, &o.CompletedJobs)
	if err != nil {
		return nil, fmt.Errorf("failed to get overview: %w", classify(err))
	}
	return &o, nil
}

// ListActiveProducts reads the active_products view
func (db *DB) ListActiveProducts(ctx context.Context, limit int) ([]ActiveProduct, error) {
	if limit <= 0 {
		limit = 1000
	}
	return collect(ctx, db, "active products",
		`SELECT id, seller_id, seller_name, COALESCE(seller_city, ''), COALESCE(title, ''),
		        COALESCE(price, ''), product_link, photo_count, is_out_of_stock, scraped_at,
		        last_seen_scrape_job_id, created_at
		   FROM active_products
		  ORDER BY seller_name, created_at DESC
		  LIMIT $1`,
		[]any{limit},
		func(rows pgx.Rows) (ActiveProduct, error) {
			var r ActiveProduct
			err := rows.Scan(&r.ID, &r.SellerID, &r.SellerName, &r.SellerCity, &r.Title, &r.Price,
				&r.Link, &r.PhotoCount, &r.IsOutOfStock, &r.ScrapedAt, &r.LastSeenJobID, &r.CreatedAt)
			return r, err
		},
	)
}

// ListLatestProducts reads the latest_products_per_seller view
func (db *DB) ListLatestProducts(ctx context.Context) ([]LatestProduct, error) {
	return collect(ctx, db, "latest products",
		`SELECT seller_id, seller_name, product_id, COALESCE(title, ''), COALESCE(price, ''),
		        product_link, seen_at
		   FROM latest_products_per_seller
		  ORDER BY seller_name`,
		nil,
		func(rows pgx.Rows) (LatestProduct, error) {
			var r LatestProduct
			err := rows.Scan(&r.SellerID, &r.SellerName, &r.ProductID, &r.Title, &r.Price, &r.Link, &r.SeenAt)
			return r, err
		},
	)
}

// ListDailyScrapeStats reads the daily_scrape_stats view, newest day first
func (db *DB) ListDailyScrapeStats(ctx context.Context, days int) ([]DailyScrapeStats, error) {
	if days <= 0 {
		days = 30
	}
	return collect(ctx, db, "daily scrape stats",
		`SELECT day, jobs, completed_jobs, failed_jobs, total_items, total_sellers, avg_duration_seconds
		   FROM daily_scrape_stats
		  ORDER BY day DESC
		  LIMIT $1`,
		[]any{days},
		func(rows pgx.Rows) (DailyScrapeStats, error) {
			var r DailyScrapeStats
			err := rows.Scan(&r.Day, &r.Jobs, &r.CompletedJobs, &r.FailedJobs, &r.TotalItems,
				&r.TotalSellers, &r.AvgDurationSeconds)
			return r, err
		},
	)
}

// ListSellerLifecycleStats reads the seller_lifecycle_stats view
func (db *DB) ListSellerLifecycleStats(ctx context.Context) ([]SellerLifecycleStats, error) {
	return collect(ctx, db, "seller lifecycle stats",
		`SELECT seller_id, seller_name, is_active, total_products, active_products, removed_products,
		        reactivated_products, removed_last_7_days, first_seen_at, last_scraped_at
		   FROM seller_lifecycle_stats
		  ORDER BY seller_name`,
		nil,
		func(rows pgx.Rows) (SellerLifecycleStats, error) {
			var r SellerLifecycleStats
			err := rows.Scan(&r.SellerID, &r.SellerName, &r.IsActive, &r.TotalProducts, &r.ActiveProducts,
				&r.RemovedProducts, &r.ReactivatedProducts, &r.RemovedLast7Days, &r.FirstSeenAt, &r.LastScrapedAt)
			return r, err
		},
	)
}

// ListSellerWeeklyMetrics reads the seller_weekly_metrics view
func (db *DB) ListSellerWeeklyMetrics(ctx context.Context) ([]SellerWeeklyMetrics, error) {
	return collect(ctx, db, "seller weekly metrics",
		`SELECT seller_id, seller_name, weeks_tracked, avg_listed_per_week, avg_removed_per_week, avg_active_price
		   FROM seller_weekly_metrics
		  ORDER BY seller_name`,
		nil,
		func(rows pgx.Rows) (SellerWeeklyMetrics, error) {
			var r SellerWeeklyMetrics
			err := rows.Scan(&r.SellerID, &r.SellerName, &r.WeeksTracked, &r.AvgListedPerWeek,
				&r.AvgRemovedPerWeek, &r.AvgActivePrice)
			return r, err
		},
	)
}

// collect runs a report query and scans every row with scan.
func collect[T any](ctx context.Context, db *DB, what, query string, args []any, scan func(pgx.Rows) (T, error)) ([]T, error) {
	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", what, classify(err))
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", what, err)
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", what, classify(err))
	}
	return out, nil
}
