package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/catalog-tracker/internal/types"
)

// Memory is an in-process Store. Passes are serialised by a single mutex and
// rolled back from a snapshot when the pass function fails.
type Memory struct {
	mu        sync.Mutex
	state     memState
	commitErr error
}

type memState struct {
	sellers  map[uuid.UUID]types.Seller
	jobs     map[uuid.UUID]types.ScrapeJob
	products map[uuid.UUID]types.Product
	byLink   map[string]uuid.UUID
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{state: newMemState()}
}

func newMemState() memState {
	return memState{
		sellers:  make(map[uuid.UUID]types.Seller),
		jobs:     make(map[uuid.UUID]types.ScrapeJob),
		products: make(map[uuid.UUID]types.Product),
		byLink:   make(map[string]uuid.UUID),
	}
}

func (s memState) clone() memState {
	c := newMemState()
	for id, seller := range s.sellers {
		c.sellers[id] = seller
	}
	for id, job := range s.jobs {
		c.jobs[id] = job
	}
	for id, p := range s.products {
		c.products[id] = p.Clone()
	}
	for link, id := range s.byLink {
		c.byLink[link] = id
	}
	return c
}

// FailNextCommit makes the next pass fail at commit time with err wrapped in
// ErrStorageUnavailable.
func (m *Memory) FailNextCommit(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commitErr = err
}

// InPass implements Store.
func (m *Memory) InPass(ctx context.Context, _ []uuid.UUID, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.state.clone()
	if err := fn(&memTx{state: &m.state}); err != nil {
		m.state = snapshot
		return err
	}
	if m.commitErr != nil {
		err := m.commitErr
		m.commitErr = nil
		m.state = snapshot
		return fmt.Errorf("%w: failed to commit: %v", ErrStorageUnavailable, err)
	}
	return nil
}

// PutSeller stores a seller directly, outside any pass.
func (m *Memory) PutSeller(seller types.Seller) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.sellers[seller.ID] = seller
}

// PutProduct stores a product directly, outside any pass. A product with a
// nil id gets a fresh one, which is returned. A nil IsRemoved is kept as is.
func (m *Memory) PutProduct(p types.Product) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx := &memTx{state: &m.state}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if err := tx.insert(p); err != nil {
		return uuid.Nil, err
	}
	return p.ID, nil
}

// Product returns a copy of the product with the given id.
func (m *Memory) Product(id uuid.UUID) (types.Product, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.state.products[id]
	return p.Clone(), ok
}

// ProductByLink returns a copy of the product holding link.
func (m *Memory) ProductByLink(link string) (types.Product, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.state.byLink[link]
	if !ok {
		return types.Product{}, false
	}
	return m.state.products[id].Clone(), true
}

// Products returns copies of all products ordered by creation time, then id.
func (m *Memory) Products() []types.Product {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]types.Product, 0, len(m.state.products))
	for _, p := range m.state.products {
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

// Sellers returns copies of all sellers ordered by name.
func (m *Memory) Sellers() []types.Seller {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]types.Seller, 0, len(m.state.sellers))
	for _, s := range m.state.sellers {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// SellerIDsByName implements SellerResolver.
func (m *Memory) SellerIDsByName(ctx context.Context, names []string) (map[string]uuid.UUID, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	wanted := stringSet(names)
	out := make(map[string]uuid.UUID)
	for id, s := range m.state.sellers {
		if _, ok := wanted[s.Name]; ok {
			out[s.Name] = id
		}
	}
	return out, nil
}

// ScrapeJob returns the job with the given id.
func (m *Memory) ScrapeJob(id uuid.UUID) (types.ScrapeJob, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.state.jobs[id]
	return job, ok
}

type memTx struct {
	state *memState
}

func idSet(ids []uuid.UUID) map[uuid.UUID]struct{} {
	set := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func stringSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

func (tx *memTx) MarkMissingAsRemoved(_ context.Context, sellerIDs []uuid.UUID, _ uuid.UUID, links []string, at time.Time) (RemovalCounts, error) {
	var counts RemovalCounts
	sellers := idSet(sellerIDs)
	current := stringSet(links)

	for id, p := range tx.state.products {
		if _, ok := sellers[p.SellerID]; !ok || p.Removed() {
			continue
		}
		if p.HasLink() {
			if _, seen := current[*p.Link]; seen {
				continue
			}
		}
		if p.RemovalCount == 0 {
			counts.Newly++
		}
		p.MarkRemoved(at)
		p.UpdatedAt = at
		tx.state.products[id] = p
		counts.Marked++
	}
	return counts, nil
}

func (tx *memTx) MarkReappearedAsActive(_ context.Context, jobID uuid.UUID, links []string, at time.Time) (int, error) {
	reactivated := 0
	for _, link := range dedupLinks(links) {
		id, ok := tx.state.byLink[link]
		if !ok {
			continue
		}
		p := tx.state.products[id]
		if !p.Removed() {
			continue
		}
		p.MarkActive(jobID)
		p.UpdatedAt = at
		tx.state.products[id] = p
		reactivated++
	}
	return reactivated, nil
}

func dedupLinks(links []string) []string {
	seen := make(map[string]struct{}, len(links))
	out := make([]string, 0, len(links))
	for _, l := range links {
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	return out
}

func (tx *memTx) UpsertScrapeJob(_ context.Context, job *types.ScrapeJob) error {
	if job.ID == uuid.Nil {
		return fmt.Errorf("%w: scrape job id is empty", ErrInvalidArgument)
	}
	stored := *job
	if existing, ok := tx.state.jobs[job.ID]; ok {
		stored.StartedAt = existing.StartedAt
	} else if stored.StartedAt.IsZero() {
		stored.StartedAt = time.Now()
	}
	tx.state.jobs[job.ID] = stored
	return nil
}

func (tx *memTx) UpsertSellers(_ context.Context, sellers []types.Seller) error {
	for _, seller := range sellers {
		for id, existing := range tx.state.sellers {
			if id != seller.ID && existing.Name == seller.Name {
				return fmt.Errorf("%w: seller name %q already taken", ErrConstraintViolation, seller.Name)
			}
		}
		if existing, ok := tx.state.sellers[seller.ID]; ok {
			seller.CreatedAt = existing.CreatedAt
		}
		tx.state.sellers[seller.ID] = seller
	}
	return nil
}

func (tx *memTx) ProductIDsByLink(_ context.Context, links []string) (map[string]uuid.UUID, error) {
	out := make(map[string]uuid.UUID)
	for _, link := range links {
		if id, ok := tx.state.byLink[link]; ok {
			out[link] = id
		}
	}
	return out, nil
}

func (tx *memTx) InsertProducts(_ context.Context, products []types.Product) error {
	for _, p := range products {
		if p.ID == uuid.Nil {
			p.ID = uuid.New()
		}
		removed := p.Removed()
		p.IsRemoved = &removed
		if err := tx.insert(p); err != nil {
			return err
		}
	}
	return nil
}

func (tx *memTx) insert(p types.Product) error {
	if _, exists := tx.state.products[p.ID]; exists {
		return fmt.Errorf("%w: product %s already exists", ErrConstraintViolation, p.ID)
	}
	if p.HasLink() {
		if owner, taken := tx.state.byLink[*p.Link]; taken {
			return fmt.Errorf("%w: product link %q already used by %s", ErrConstraintViolation, *p.Link, owner)
		}
	} else {
		p.Link = nil
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = p.CreatedAt
	}
	tx.state.products[p.ID] = p.Clone()
	if p.Link != nil {
		tx.state.byLink[*p.Link] = p.ID
	}
	return nil
}

func (tx *memTx) UpdateProducts(_ context.Context, products []types.Product) error {
	for _, p := range products {
		existing, ok := tx.state.products[p.ID]
		if !ok {
			return fmt.Errorf("product %s not found", p.ID)
		}
		updated := existing.Clone()
		updated.SellerID = p.SellerID
		updated.ScrapeJobID = p.ScrapeJobID
		updated.Title = p.Title
		updated.Price = p.Price
		updated.Description = p.Description
		updated.Images = append([]string(nil), p.Images...)
		updated.IsOutOfStock = p.IsOutOfStock
		updated.Metadata = p.Metadata
		updated.PhotoCount = p.PhotoCount
		updated.ScrapedAt = p.ScrapedAt
		updated.LastSeenScrapeJobID = p.LastSeenScrapeJobID
		updated.UpdatedAt = p.UpdatedAt
		if updated.UpdatedAt.IsZero() {
			updated.UpdatedAt = time.Now()
		}
		tx.state.products[p.ID] = updated
	}
	return nil
}
