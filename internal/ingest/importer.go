package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/jonathan/catalog-tracker/internal/lifecycle"
	"github.com/jonathan/catalog-tracker/internal/store"
	"github.com/jonathan/catalog-tracker/internal/types"
)

// Summary reports the outcome of one scrape session import.
type Summary struct {
	JobID            uuid.UUID `json:"scrape_job_id"`
	Sellers          int       `json:"sellers"`
	Inserted         int       `json:"inserted"`
	Updated          int       `json:"updated"`
	Removed          int       `json:"removed"`
	NewlyRemoved     int       `json:"newly_removed"`
	Reactivated      int       `json:"reactivated"`
	TotalProcessed   int       `json:"total_processed"`
	DuplicatesMerged int       `json:"duplicates_merged"`
}

// Importer writes scrape sessions to a store and reconciles product lifecycle.
type Importer struct {
	store      store.Store
	reconciler *lifecycle.Reconciler
	logger     *slog.Logger
}

// NewImporter creates an Importer. A nil reconciler gets one over s.
func NewImporter(s store.Store, reconciler *lifecycle.Reconciler, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	if reconciler == nil {
		reconciler = lifecycle.NewReconciler(s, lifecycle.WithLogger(logger))
	}
	return &Importer{store: s, reconciler: reconciler, logger: logger}
}

// productPlan is the split of a session's products into rows to write.
type productPlan struct {
	withLink    []types.Product
	withoutLink []types.Product
	links       []string
	duplicates  int
}

// planProducts separates linked from unlinked products and collapses repeated
// links, keeping the last occurrence at the position of the first.
func planProducts(products []types.Product, jobID uuid.UUID) productPlan {
	var plan productPlan
	index := make(map[string]int, len(products))
	for _, p := range products {
		p = p.Clone()
		p.LastSeenScrapeJobID = &jobID
		if !p.HasLink() {
			p.Link = nil
			plan.withoutLink = append(plan.withoutLink, p)
			continue
		}
		link := *p.Link
		if i, ok := index[link]; ok {
			plan.withLink[i] = p
			plan.duplicates++
			continue
		}
		index[link] = len(plan.withLink)
		plan.withLink = append(plan.withLink, p)
		plan.links = append(plan.links, link)
	}
	return plan
}

// Import writes the session's job, sellers and products and reconciles the
// lifecycle of the sellers' products, all in one unit of work. On error
// nothing is persisted.
func (im *Importer) Import(ctx context.Context, session *types.ScrapeSession) (*Summary, error) {
	if session == nil {
		return nil, fmt.Errorf("scrape session is nil")
	}

	job := session.ScrapeJob
	session, err := im.resolveSellers(ctx, session)
	if err != nil {
		im.logger.Error("import.failed", "job_id", job.ID.String(), "err", err)
		return nil, &ImportError{JobID: job.ID.String(), Cause: err}
	}
	sellerIDs := session.SellerIDs()
	sellers := session.SellerList()

	var summary *Summary
	err = im.store.InPass(ctx, sellerIDs, func(tx store.Tx) error {
		summary = &Summary{
			JobID:          job.ID,
			Sellers:        len(sellers),
			TotalProcessed: len(session.Products),
		}

		if err := tx.UpsertScrapeJob(ctx, &job); err != nil {
			return err
		}
		if len(sellers) > 0 {
			if err := tx.UpsertSellers(ctx, sellers); err != nil {
				return err
			}
		}
		if len(session.Products) == 0 {
			return nil
		}

		plan := planProducts(session.Products, job.ID)
		summary.DuplicatesMerged = plan.duplicates

		existing := map[string]uuid.UUID{}
		if len(plan.links) > 0 {
			var err error
			existing, err = tx.ProductIDsByLink(ctx, plan.links)
			if err != nil {
				return err
			}
		}

		var toInsert, toUpdate []types.Product
		for _, p := range plan.withLink {
			if id, ok := existing[*p.Link]; ok {
				p.ID = id
				toUpdate = append(toUpdate, p)
				continue
			}
			toInsert = append(toInsert, p)
		}
		toInsert = append(toInsert, plan.withoutLink...)

		if len(toInsert) > 0 {
			if err := tx.InsertProducts(ctx, toInsert); err != nil {
				return err
			}
		}
		if len(toUpdate) > 0 {
			if err := tx.UpdateProducts(ctx, toUpdate); err != nil {
				return err
			}
		}
		summary.Inserted = len(toInsert)
		summary.Updated = len(toUpdate)

		if len(sellerIDs) == 0 || len(plan.links) == 0 {
			im.logger.Debug("import.reconcile.skip", "job_id", job.ID.String())
			return nil
		}
		result, err := im.reconciler.ReconcileTx(ctx, tx, lifecycle.Pass{
			JobID:     job.ID,
			SellerIDs: sellerIDs,
			Links:     plan.links,
		})
		if err != nil {
			return err
		}
		summary.Removed = result.Removed.Marked
		summary.NewlyRemoved = result.Removed.Newly
		summary.Reactivated = result.Reactivated
		return nil
	})
	if err != nil {
		im.logger.Error("import.failed", "job_id", job.ID.String(), "err", err)
		return nil, &ImportError{JobID: job.ID.String(), Cause: err}
	}

	im.logger.Info("import.ok",
		"job_id", job.ID.String(),
		"inserted", summary.Inserted,
		"updated", summary.Updated,
		"removed", summary.Removed,
		"reactivated", summary.Reactivated,
	)
	return summary, nil
}

// resolveSellers maps session sellers whose name is already stored under a
// different id onto that id, in the seller list and in the products. The
// scraper mints a new seller id on every run. The session is not modified.
func (im *Importer) resolveSellers(ctx context.Context, session *types.ScrapeSession) (*types.ScrapeSession, error) {
	resolver, ok := im.store.(store.SellerResolver)
	if !ok || len(session.Sellers) == 0 {
		return session, nil
	}

	names := make([]string, 0, len(session.Sellers))
	for _, s := range session.Sellers {
		names = append(names, s.Name)
	}
	known, err := resolver.SellerIDsByName(ctx, names)
	if err != nil {
		return nil, err
	}

	remap := make(map[uuid.UUID]uuid.UUID)
	for _, s := range session.Sellers {
		if id, ok := known[s.Name]; ok && id != s.ID {
			remap[s.ID] = id
		}
	}
	if len(remap) == 0 {
		return session, nil
	}

	resolved := *session
	resolved.Sellers = make(map[string]types.Seller, len(session.Sellers))
	for key, s := range session.Sellers {
		if id, ok := remap[s.ID]; ok {
			s.ID = id
		}
		resolved.Sellers[key] = s
	}
	resolved.Products = make([]types.Product, len(session.Products))
	for i, p := range session.Products {
		if id, ok := remap[p.SellerID]; ok {
			p.SellerID = id
		}
		resolved.Products[i] = p
	}

	im.logger.Info("import.sellers.resolved", "job_id", session.ScrapeJob.ID.String(), "remapped", len(remap))
	return &resolved, nil
}
