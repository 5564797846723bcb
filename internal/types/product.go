package types

import (
	"time"

	"github.com/google/uuid"
)

// Product is a listing belonging to one seller. Link is the dedup key across
// scrape passes and is unique when present.
type Product struct {
	ID                  uuid.UUID      `json:"id"`
	SellerID            uuid.UUID      `json:"seller_id" validate:"required"`
	ScrapeJobID         uuid.UUID      `json:"scrape_job_id" validate:"required"`
	Title               string         `json:"title"`
	Price               string         `json:"price"`
	Description         string         `json:"description"`
	Images              []string       `json:"images"`
	Link                *string        `json:"product_link"`
	IsOutOfStock        bool           `json:"is_out_of_stock"`
	Metadata            map[string]any `json:"metadata,omitempty"`
	PhotoCount          int            `json:"photo_count"`
	ScrapedAt           *time.Time     `json:"scraped_at,omitempty"`
	LastSeenScrapeJobID *uuid.UUID     `json:"last_seen_scrape_job_id,omitempty"`
	IsRemoved           *bool          `json:"is_removed"`
	RemovedAt           *time.Time     `json:"removed_at,omitempty"`
	RemovalCount        int            `json:"removal_count"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
}

// Removed reports the lifecycle flag. A NULL flag counts as not removed.
func (p Product) Removed() bool {
	return p.IsRemoved != nil && *p.IsRemoved
}

// HasLink reports whether the product carries a usable link.
func (p Product) HasLink() bool {
	return p.Link != nil && *p.Link != ""
}

// LinkValue returns the link or "" when it is NULL.
func (p Product) LinkValue() string {
	if p.Link == nil {
		return ""
	}
	return *p.Link
}

// MarkRemoved flips the product to removed. removed_at is always set together
// with the flag.
func (p *Product) MarkRemoved(at time.Time) {
	removed := true
	p.IsRemoved = &removed
	p.RemovedAt = &at
	p.RemovalCount++
}

// MarkActive flips the product back to active and records the job that saw it.
func (p *Product) MarkActive(jobID uuid.UUID) {
	removed := false
	p.IsRemoved = &removed
	p.RemovedAt = nil
	p.LastSeenScrapeJobID = &jobID
}

// Clone returns a deep copy of the product's pointer fields.
func (p Product) Clone() Product {
	c := p
	if p.Link != nil {
		link := *p.Link
		c.Link = &link
	}
	if p.IsRemoved != nil {
		removed := *p.IsRemoved
		c.IsRemoved = &removed
	}
	if p.RemovedAt != nil {
		at := *p.RemovedAt
		c.RemovedAt = &at
	}
	if p.ScrapedAt != nil {
		at := *p.ScrapedAt
		c.ScrapedAt = &at
	}
	if p.LastSeenScrapeJobID != nil {
		id := *p.LastSeenScrapeJobID
		c.LastSeenScrapeJobID = &id
	}
	if p.Images != nil {
		c.Images = append([]string(nil), p.Images...)
	}
	return c
}

// StrPtr returns a pointer to s.
func StrPtr(s string) *string {
	return &s
}
