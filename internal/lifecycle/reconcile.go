// Package lifecycle keeps product lifecycle state (active, removed, active
// again) consistent with the most recent scrape evidence.
package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/catalog-tracker/internal/store"
)

// RemovalResult reports a removal update. Newly counts first-time removals;
// Marked - Newly products had been removed before and reactivated since.
type RemovalResult struct {
	Marked int `json:"products_marked_removed"`
	Newly  int `json:"newly_removed_count"`
}

// Rerun returns the number of re-removed products.
func (r RemovalResult) Rerun() int {
	return r.Marked - r.Newly
}

// Pass is the evidence of one completed scrape pass.
type Pass struct {
	JobID     uuid.UUID
	SellerIDs []uuid.UUID
	Links     []string
}

// PassResult reports both halves of a reconciliation pass.
type PassResult struct {
	Removed     RemovalResult `json:"removed"`
	Reactivated int           `json:"reactivated"`
}

// Reconciler applies scrape evidence to the product store.
type Reconciler struct {
	store  store.Store
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithClock overrides the removal timestamp source.
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) { r.now = now }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reconciler) { r.logger = logger }
}

// NewReconciler creates a Reconciler over s.
func NewReconciler(s store.Store, opts ...Option) *Reconciler {
	r := &Reconciler{store: s, now: time.Now, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// MarkMissingAsRemoved marks active products of sellerIDs that were not seen in
// links as removed. Products without a link are always missing. An empty seller
// or link set matches nothing.
func (r *Reconciler) MarkMissingAsRemoved(ctx context.Context, sellerIDs []uuid.UUID, jobID uuid.UUID, links []string) (RemovalResult, error) {
	var result RemovalResult
	err := r.store.InPass(ctx, normalizeIDs(sellerIDs), func(tx store.Tx) error {
		var err error
		result, err = r.removeTx(ctx, tx, sellerIDs, jobID, links)
		return err
	})
	if err != nil {
		return RemovalResult{}, err
	}
	return result, nil
}

// MarkReappearedAsActive reactivates removed products whose link is in links.
// It is not scoped by seller.
func (r *Reconciler) MarkReappearedAsActive(ctx context.Context, jobID uuid.UUID, links []string) (int, error) {
	var reactivated int
	err := r.store.InPass(ctx, nil, func(tx store.Tx) error {
		var err error
		reactivated, err = r.reactivateTx(ctx, tx, jobID, links)
		return err
	})
	if err != nil {
		return 0, err
	}
	return reactivated, nil
}

// Reconcile runs reactivation and removal for one pass in a single unit of work.
func (r *Reconciler) Reconcile(ctx context.Context, pass Pass) (*PassResult, error) {
	var result *PassResult
	err := r.store.InPass(ctx, normalizeIDs(pass.SellerIDs), func(tx store.Tx) error {
		var err error
		result, err = r.ReconcileTx(ctx, tx, pass)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ReconcileTx runs a pass inside a unit of work owned by the caller. Both halves
// see the same link set; their order does not affect the outcome because they
// start from disjoint states.
func (r *Reconciler) ReconcileTx(ctx context.Context, tx store.Tx, pass Pass) (*PassResult, error) {
	reactivated, err := r.reactivateTx(ctx, tx, pass.JobID, pass.Links)
	if err != nil {
		return nil, err
	}
	removed, err := r.removeTx(ctx, tx, pass.SellerIDs, pass.JobID, pass.Links)
	if err != nil {
		return nil, err
	}
	return &PassResult{Removed: removed, Reactivated: reactivated}, nil
}

func (r *Reconciler) removeTx(ctx context.Context, tx store.Tx, sellerIDs []uuid.UUID, jobID uuid.UUID, links []string) (RemovalResult, error) {
	sellers := normalizeIDs(sellerIDs)
	current := normalizeLinks(links)
	if len(sellers) == 0 || len(current) == 0 {
		r.logger.Debug("lifecycle.remove.skip", "job_id", jobID.String(), "sellers", len(sellers), "links", len(current))
		return RemovalResult{}, nil
	}

	counts, err := tx.MarkMissingAsRemoved(ctx, sellers, jobID, current, r.now().UTC())
	if err != nil {
		return RemovalResult{}, fmt.Errorf("failed to mark missing products as removed: %w", err)
	}
	r.logger.Info("lifecycle.remove.ok",
		"job_id", jobID.String(),
		"sellers", len(sellers),
		"marked", counts.Marked,
		"newly", counts.Newly,
	)
	return RemovalResult{Marked: counts.Marked, Newly: counts.Newly}, nil
}

func (r *Reconciler) reactivateTx(ctx context.Context, tx store.Tx, jobID uuid.UUID, links []string) (int, error) {
	current := normalizeLinks(links)
	if len(current) == 0 {
		return 0, nil
	}

	n, err := tx.MarkReappearedAsActive(ctx, jobID, current, r.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to mark reappeared products as active: %w", err)
	}
	r.logger.Info("lifecycle.reactivate.ok", "job_id", jobID.String(), "reactivated", n)
	return n, nil
}

// normalizeIDs drops nil ids and duplicates and sorts the rest.
func normalizeIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// normalizeLinks drops empty links and duplicates, preserving first-seen order.
func normalizeLinks(links []string) []string {
	seen := make(map[string]struct{}, len(links))
	out := make([]string, 0, len(links))
	for _, link := range links {
		if link == "" {
			continue
		}
		if _, ok := seen[link]; ok {
			continue
		}
		seen[link] = struct{}{}
		out = append(out, link)
	}
	return out
}
