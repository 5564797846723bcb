package db

import (
	"time"

	"github.com/google/uuid"
)

// Overview holds the headline counts printed after an import.
type Overview struct {
	ActiveSellers   int `json:"active_sellers"`
	ActiveProducts  int `json:"active_products"`
	RemovedProducts int `json:"removed_products"`
	CompletedJobs   int `json:"completed_jobs"`
}

// ActiveProduct is a row of the active_products view
type ActiveProduct struct {
	ID            uuid.UUID  `json:"id"`
	SellerID      uuid.UUID  `json:"seller_id"`
	SellerName    string     `json:"seller_name"`
	SellerCity    string     `json:"seller_city,omitempty"`
	Title         string     `json:"title"`
	Price         string     `json:"price"`
	Link          *string    `json:"product_link,omitempty"`
	PhotoCount    int        `json:"photo_count"`
	IsOutOfStock  bool       `json:"is_out_of_stock"`
	ScrapedAt     *time.Time `json:"scraped_at,omitempty"`
	LastSeenJobID *uuid.UUID `json:"last_seen_scrape_job_id,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// LatestProduct is a row of the latest_products_per_seller view
type LatestProduct struct {
	SellerID   uuid.UUID `json:"seller_id"`
	SellerName string    `json:"seller_name"`
	ProductID  uuid.UUID `json:"product_id"`
	Title      string    `json:"title"`
	Price      string    `json:"price"`
	Link       *string   `json:"product_link,omitempty"`
	SeenAt     time.Time `json:"seen_at"`
}

// DailyScrapeStats is a row of the daily_scrape_stats view
type DailyScrapeStats struct {
	Day                time.Time `json:"day"`
	Jobs               int       `json:"jobs"`
	CompletedJobs      int       `json:"completed_jobs"`
	FailedJobs         int       `json:"failed_jobs"`
	TotalItems         int       `json:"total_items"`
	TotalSellers       int       `json:"total_sellers"`
	AvgDurationSeconds float64   `json:"avg_duration_seconds"`
}

// SellerLifecycleStats is a row of the seller_lifecycle_stats view
type SellerLifecycleStats struct {
	SellerID            uuid.UUID  `json:"seller_id"`
	SellerName          string     `json:"seller_name"`
	IsActive            bool       `json:"is_active"`
	TotalProducts       int        `json:"total_products"`
	ActiveProducts      int        `json:"active_products"`
	RemovedProducts     int        `json:"removed_products"`
	ReactivatedProducts int        `json:"reactivated_products"`
	RemovedLast7Days    int        `json:"removed_last_7_days"`
	FirstSeenAt         *time.Time `json:"first_seen_at,omitempty"`
	LastScrapedAt       *time.Time `json:"last_scraped_at,omitempty"`
}

// SellerWeeklyMetrics is a row of the seller_weekly_metrics view
type SellerWeeklyMetrics struct {
	SellerID          uuid.UUID `json:"seller_id"`
	SellerName        string    `json:"seller_name"`
	WeeksTracked      int       `json:"weeks_tracked"`
	AvgListedPerWeek  float64   `json:"avg_listed_per_week"`
	AvgRemovedPerWeek float64   `json:"avg_removed_per_week"`
	AvgActivePrice    float64   `json:"avg_active_price"`
}
