package ingest

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/jonathan/catalog-tracker/internal/schemas"
	"github.com/jonathan/catalog-tracker/internal/types"
	schemadefs "github.com/jonathan/catalog-tracker/schemas"
)

// LoadSession reads and validates a scrape session file.
func LoadSession(path string) (*types.ScrapeSession, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{
			Message: fmt.Sprintf("failed to read file %s", path),
			Cause:   err,
		}
	}
	return ParseSession(content)
}

// ParseSession validates content against the scrape session schema and the
// model's struct tags, then decodes it. Metadata-only photo_count and
// scraped_at values are lifted into the product fields.
func ParseSession(content []byte) (*types.ScrapeSession, error) {
	if err := schemas.ValidateJSONBytes(schemadefs.ScrapeSession, content); err != nil {
		return nil, &LoadError{
			Message: "scrape session does not match schema",
			Cause:   err,
		}
	}

	var session types.ScrapeSession
	if err := json.Unmarshal(content, &session); err != nil {
		return nil, &LoadError{
			Message: "failed to unmarshal JSON",
			Cause:   err,
		}
	}

	for i := range session.Products {
		session.Products[i].LiftMetadata()
	}

	if err := session.Validate(); err != nil {
		return nil, &LoadError{
			Message: "invalid scrape session",
			Cause:   err,
		}
	}

	return &session, nil
}
