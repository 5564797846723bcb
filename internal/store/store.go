// Package store defines the storage port used by the lifecycle reconciler and
// the scrape-session importer, plus an in-memory implementation.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/catalog-tracker/internal/types"
)

// Storage error taxonomy. Implementations wrap these so callers can use errors.Is.
var (
	// ErrConstraintViolation is returned when a write collides with an existing
	// product's link.
	ErrConstraintViolation = errors.New("constraint violation")
	// ErrStorageUnavailable is returned when a unit of work cannot begin or commit.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrInvalidArgument is returned for malformed identifiers.
	ErrInvalidArgument = errors.New("invalid argument")
)

// RemovalCounts is the outcome of a removal update.
type RemovalCounts struct {
	// Marked is the number of products transitioned to removed.
	Marked int `json:"marked"`
	// Newly is the subset of Marked being removed for the first time.
	Newly int `json:"newly"`
}

// Tx is the set of operations available inside one unit of work.
type Tx interface {
	// MarkMissingAsRemoved removes active products of sellerIDs whose link is
	// NULL or not in links.
	MarkMissingAsRemoved(ctx context.Context, sellerIDs []uuid.UUID, jobID uuid.UUID, links []string, at time.Time) (RemovalCounts, error)
	// MarkReappearedAsActive reactivates removed products whose link is in links,
	// regardless of seller.
	MarkReappearedAsActive(ctx context.Context, jobID uuid.UUID, links []string, at time.Time) (int, error)

	UpsertScrapeJob(ctx context.Context, job *types.ScrapeJob) error
	UpsertSellers(ctx context.Context, sellers []types.Seller) error
	// ProductIDsByLink maps each known link to the id of the product holding it.
	ProductIDsByLink(ctx context.Context, links []string) (map[string]uuid.UUID, error)
	InsertProducts(ctx context.Context, products []types.Product) error
	UpdateProducts(ctx context.Context, products []types.Product) error
}

// SellerResolver is implemented by stores that can look sellers up by name
// outside a pass.
type SellerResolver interface {
	// SellerIDsByName maps each known seller name to its id.
	SellerIDsByName(ctx context.Context, names []string) (map[string]uuid.UUID, error)
}

// Store runs units of work. InPass executes fn atomically: when fn returns an
// error nothing it wrote is kept. sellerIDs names the sellers the pass covers so
// implementations can serialise overlapping passes.
type Store interface {
	InPass(ctx context.Context, sellerIDs []uuid.UUID, fn func(tx Tx) error) error
}
