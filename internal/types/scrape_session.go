package types

import (
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// ScrapeSession is the JSON document written by the scraper at the end of a pass.
type ScrapeSession struct {
	ScrapeJob ScrapeJob         `json:"scrape_job"`
	Sellers   map[string]Seller `json:"sellers" validate:"dive"`
	Products  []Product         `json:"products" validate:"dive"`
}

// Validate validates the session and every nested seller and product.
func (s *ScrapeSession) Validate() error {
	validate := validator.New()
	if err := validate.Struct(s); err != nil {
		return err
	}
	for i, p := range s.Products {
		if p.ScrapeJobID != s.ScrapeJob.ID {
			return fmt.Errorf("product %d belongs to scrape job %s, expected %s", i, p.ScrapeJobID, s.ScrapeJob.ID)
		}
	}
	return nil
}

// SellerList returns the sellers ordered by name.
func (s *ScrapeSession) SellerList() []Seller {
	sellers := make([]Seller, 0, len(s.Sellers))
	for _, seller := range s.Sellers {
		sellers = append(sellers, seller)
	}
	sort.Slice(sellers, func(i, j int) bool {
		return sellers[i].Name < sellers[j].Name
	})
	return sellers
}

// SellerIDs returns the distinct seller ids referenced by the session's products.
func (s *ScrapeSession) SellerIDs() []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(s.Products))
	var ids []uuid.UUID
	for _, p := range s.Products {
		if _, ok := seen[p.SellerID]; ok {
			continue
		}
		seen[p.SellerID] = struct{}{}
		ids = append(ids, p.SellerID)
	}
	return ids
}

// Links returns every non-empty product link in the session, in order.
func (s *ScrapeSession) Links() []string {
	var links []string
	for i := range s.Products {
		if s.Products[i].HasLink() {
			links = append(links, *s.Products[i].Link)
		}
	}
	return links
}

// LiftMetadata copies photo_count and scraped_at from product metadata into the
// product columns when the scraper only wrote them there.
func (p *Product) LiftMetadata() {
	if p.Metadata == nil {
		return
	}
	if p.PhotoCount == 0 {
		switch v := p.Metadata["photo_count"].(type) {
		case float64:
			p.PhotoCount = int(v)
		case int:
			p.PhotoCount = v
		}
	}
	if p.ScrapedAt == nil {
		if raw, ok := p.Metadata["scraped_at"].(string); ok {
			if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
				p.ScrapedAt = &t
			}
		}
	}
}
