package lifecycle

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/catalog-tracker/internal/store"
	"github.com/jonathan/catalog-tracker/internal/types"
)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestReconciler(s store.Store) *Reconciler {
	return NewReconciler(s,
		WithClock(func() time.Time { return fixedNow }),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
}

type fixture struct {
	mem    *store.Memory
	rec    *Reconciler
	seller uuid.UUID
	ids    map[string]uuid.UUID
}

// newFixture seeds one seller with an active product per link.
func newFixture(t *testing.T, links ...string) *fixture {
	t.Helper()
	f := &fixture{mem: store.NewMemory(), seller: uuid.New(), ids: map[string]uuid.UUID{}}
	f.rec = newTestReconciler(f.mem)
	for _, link := range links {
		f.ids[link] = f.add(t, f.seller, types.StrPtr(link))
	}
	return f
}

func (f *fixture) add(t *testing.T, seller uuid.UUID, link *string) uuid.UUID {
	t.Helper()
	id, err := f.mem.PutProduct(types.Product{SellerID: seller, ScrapeJobID: uuid.New(), Link: link})
	require.NoError(t, err)
	return id
}

func (f *fixture) product(t *testing.T, id uuid.UUID) types.Product {
	t.Helper()
	p, ok := f.mem.Product(id)
	require.True(t, ok)
	return p
}

func TestMarkMissingAsRemoved_Scenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "a", "b", "c")
	job := uuid.New()

	result, err := f.rec.MarkMissingAsRemoved(ctx, []uuid.UUID{f.seller}, job, []string{"a", "c"})
	require.NoError(t, err)
	assert.Equal(t, RemovalResult{Marked: 1, Newly: 1}, result)

	b := f.product(t, f.ids["b"])
	assert.True(t, b.Removed())
	require.NotNil(t, b.RemovedAt)
	assert.Equal(t, fixedNow, *b.RemovedAt)

	for _, link := range []string{"a", "c"} {
		p := f.product(t, f.ids[link])
		assert.False(t, p.Removed(), "link %s was seen", link)
		assert.Nil(t, p.RemovedAt)
	}

	next := uuid.New()
	reactivated, err := f.rec.MarkReappearedAsActive(ctx, next, []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, 1, reactivated)

	b = f.product(t, f.ids["b"])
	assert.False(t, b.Removed())
	assert.Nil(t, b.RemovedAt)
	require.NotNil(t, b.LastSeenScrapeJobID)
	assert.Equal(t, next, *b.LastSeenScrapeJobID)
	assert.Equal(t, fixedNow, b.UpdatedAt, "reactivation is stamped with the reconciler clock")
}

func TestMarkMissingAsRemoved_NullFlagCountsAsActive(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "a", "b")
	require.Nil(t, f.product(t, f.ids["a"]).IsRemoved)
	require.Nil(t, f.product(t, f.ids["b"]).IsRemoved)

	result, err := f.rec.MarkMissingAsRemoved(ctx, []uuid.UUID{f.seller}, uuid.New(), []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, RemovalResult{Marked: 1, Newly: 1}, result)

	b := f.product(t, f.ids["b"])
	require.NotNil(t, b.IsRemoved)
	assert.True(t, *b.IsRemoved)
	require.NotNil(t, b.RemovedAt)

	a := f.product(t, f.ids["a"])
	assert.Nil(t, a.IsRemoved, "a present product keeps its NULL flag")
	assert.Nil(t, a.RemovedAt)

	n, err := f.rec.MarkReappearedAsActive(ctx, uuid.New(), []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, 0, n, "a NULL flag is not removed, so nothing reactivates")
	assert.Nil(t, f.product(t, f.ids["a"]).IsRemoved)
}

func TestMarkMissingAsRemoved_Idempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "a", "b", "c")
	f.add(t, f.seller, nil)
	job := uuid.New()

	first, err := f.rec.MarkMissingAsRemoved(ctx, []uuid.UUID{f.seller}, job, []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, 3, first.Marked)

	second, err := f.rec.MarkMissingAsRemoved(ctx, []uuid.UUID{f.seller}, job, []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, RemovalResult{}, second)
}

func TestMarkMissingAsRemoved_NullLinkAlwaysRemovedNeverReactivated(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "a")
	noLink := f.add(t, f.seller, nil)

	result, err := f.rec.MarkMissingAsRemoved(ctx, []uuid.UUID{f.seller}, uuid.New(), []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Marked)
	assert.True(t, f.product(t, noLink).Removed())

	n, err := f.rec.MarkReappearedAsActive(ctx, uuid.New(), []string{"a", ""})
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.True(t, f.product(t, noLink).Removed())
}

func TestMarkMissingAsRemoved_UntouchedSellersUnchanged(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "a")
	other := uuid.New()
	otherLinked := f.add(t, other, types.StrPtr("z"))
	otherNoLink := f.add(t, other, nil)

	result, err := f.rec.MarkMissingAsRemoved(ctx, []uuid.UUID{f.seller}, uuid.New(), []string{"x"})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Marked)

	assert.False(t, f.product(t, otherLinked).Removed())
	assert.False(t, f.product(t, otherNoLink).Removed())
}

func TestMarkMissingAsRemoved_EmptyInputsAreNoOps(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "a", "b")

	tests := []struct {
		name    string
		sellers []uuid.UUID
		links   []string
	}{
		{name: "no sellers", sellers: nil, links: []string{"a"}},
		{name: "nil seller id only", sellers: []uuid.UUID{uuid.Nil}, links: []string{"a"}},
		{name: "no links", sellers: []uuid.UUID{f.seller}, links: nil},
		{name: "only empty links", sellers: []uuid.UUID{f.seller}, links: []string{"", ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := f.rec.MarkMissingAsRemoved(ctx, tt.sellers, uuid.New(), tt.links)
			require.NoError(t, err)
			assert.Equal(t, RemovalResult{}, result)
		})
	}

	for _, id := range f.ids {
		assert.False(t, f.product(t, id).Removed())
	}
}

func TestMarkReappearedAsActive_IgnoresSellerScope(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "a")
	other := uuid.New()
	otherID := f.add(t, other, types.StrPtr("z"))

	_, err := f.rec.MarkMissingAsRemoved(ctx, []uuid.UUID{other}, uuid.New(), []string{"nothing"})
	require.NoError(t, err)
	require.True(t, f.product(t, otherID).Removed())

	n, err := f.rec.MarkReappearedAsActive(ctx, uuid.New(), []string{"z"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.False(t, f.product(t, otherID).Removed())
}

func TestMarkReappearedAsActive_Idempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "a", "b")
	_, err := f.rec.MarkMissingAsRemoved(ctx, []uuid.UUID{f.seller}, uuid.New(), []string{"a"})
	require.NoError(t, err)

	job := uuid.New()
	n, err := f.rec.MarkReappearedAsActive(ctx, job, []string{"b", "b"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = f.rec.MarkReappearedAsActive(ctx, job, []string{"b"})
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestReconcile_RoundTripAcrossAbsentPasses(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "a", "b")
	sellers := []uuid.UUID{f.seller}

	res, err := f.rec.Reconcile(ctx, Pass{JobID: uuid.New(), SellerIDs: sellers, Links: []string{"a"}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Removed.Marked)

	for i := 0; i < 3; i++ {
		res, err = f.rec.Reconcile(ctx, Pass{JobID: uuid.New(), SellerIDs: sellers, Links: []string{"a"}})
		require.NoError(t, err)
		assert.Equal(t, PassResult{}, *res, "absent pass %d should change nothing", i)
	}

	final := uuid.New()
	res, err = f.rec.Reconcile(ctx, Pass{JobID: final, SellerIDs: sellers, Links: []string{"a", "b"}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Reactivated)
	assert.Equal(t, 0, res.Removed.Marked)

	b := f.product(t, f.ids["b"])
	assert.False(t, b.Removed())
	assert.Nil(t, b.RemovedAt)
	assert.Equal(t, final, *b.LastSeenScrapeJobID)

	// removed again later: a repeat removal, not a first one
	res, err = f.rec.Reconcile(ctx, Pass{JobID: uuid.New(), SellerIDs: sellers, Links: []string{"a"}})
	require.NoError(t, err)
	assert.Equal(t, RemovalResult{Marked: 1, Newly: 0}, res.Removed)
	assert.Equal(t, 1, res.Removed.Rerun())
}

func TestReconcile_OrderIndependent(t *testing.T) {
	ctx := context.Background()

	run := func(reactivateFirst bool) map[string]bool {
		f := newFixture(t, "a", "b", "c")
		_, err := f.rec.MarkMissingAsRemoved(ctx, []uuid.UUID{f.seller}, uuid.New(), []string{"a"})
		require.NoError(t, err)

		links := []string{"b", "c"}
		job := uuid.New()
		if reactivateFirst {
			_, err = f.rec.MarkReappearedAsActive(ctx, job, links)
			require.NoError(t, err)
			_, err = f.rec.MarkMissingAsRemoved(ctx, []uuid.UUID{f.seller}, job, links)
		} else {
			_, err = f.rec.MarkMissingAsRemoved(ctx, []uuid.UUID{f.seller}, job, links)
			require.NoError(t, err)
			_, err = f.rec.MarkReappearedAsActive(ctx, job, links)
		}
		require.NoError(t, err)

		state := map[string]bool{}
		for link, id := range f.ids {
			state[link] = f.product(t, id).Removed()
		}
		return state
	}

	want := map[string]bool{"a": true, "b": false, "c": false}
	assert.Equal(t, want, run(true))
	assert.Equal(t, want, run(false))
}

type failingStore struct {
	err error
}

func (s failingStore) InPass(context.Context, []uuid.UUID, func(store.Tx) error) error {
	return s.err
}

func TestReconcile_StorageFailurePropagates(t *testing.T) {
	ctx := context.Background()
	unavailable := errors.Join(store.ErrStorageUnavailable, errors.New("db down"))
	rec := newTestReconciler(failingStore{err: unavailable})

	_, err := rec.Reconcile(ctx, Pass{JobID: uuid.New(), SellerIDs: []uuid.UUID{uuid.New()}, Links: []string{"a"}})
	assert.ErrorIs(t, err, store.ErrStorageUnavailable)

	_, err = rec.MarkMissingAsRemoved(ctx, []uuid.UUID{uuid.New()}, uuid.New(), []string{"a"})
	assert.ErrorIs(t, err, store.ErrStorageUnavailable)

	_, err = rec.MarkReappearedAsActive(ctx, uuid.New(), []string{"a"})
	assert.ErrorIs(t, err, store.ErrStorageUnavailable)
}

func TestReconcile_CommitFailureLeavesNoPartialState(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "a", "b")
	_, err := f.rec.MarkMissingAsRemoved(ctx, []uuid.UUID{f.seller}, uuid.New(), []string{"a"})
	require.NoError(t, err)

	f.mem.FailNextCommit(errors.New("serialization failure"))
	_, err = f.rec.Reconcile(ctx, Pass{JobID: uuid.New(), SellerIDs: []uuid.UUID{f.seller}, Links: []string{"b"}})
	require.ErrorIs(t, err, store.ErrStorageUnavailable)

	assert.False(t, f.product(t, f.ids["a"]).Removed())
	assert.True(t, f.product(t, f.ids["b"]).Removed())
}

func TestNormalizeHelpers(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	ids := normalizeIDs([]uuid.UUID{a, uuid.Nil, b, a})
	assert.Len(t, ids, 2)
	assert.ElementsMatch(t, []uuid.UUID{a, b}, ids)

	assert.Equal(t, []string{"x", "y"}, normalizeLinks([]string{"", "x", "y", "x"}))
	assert.Empty(t, normalizeLinks(nil))
}
