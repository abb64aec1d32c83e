package ingestion

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/poiesic/minutes/core"
	"github.com/poiesic/minutes/storage"
	"github.com/poiesic/minutes/storage/badger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDimension = 4

var errUnavailable = errors.New("index unavailable")

// flakyVectors fails the first failures Upsert and Delete calls.
type flakyVectors struct {
	storage.VectorStore
	failures atomic.Int64
	calls    atomic.Int64
}

func (f *flakyVectors) fail() error {
	f.calls.Add(1)
	if f.failures.Add(-1) >= 0 {
		return errUnavailable
	}
	return nil
}

func (f *flakyVectors) Upsert(ctx context.Context, id core.ID, embedding []float32) error {
	if err := f.fail(); err != nil {
		return err
	}
	return f.VectorStore.Upsert(ctx, id, embedding)
}

func (f *flakyVectors) Delete(ctx context.Context, id core.ID) error {
	if err := f.fail(); err != nil {
		return err
	}
	return f.VectorStore.Delete(ctx, id)
}

// flakyFullText fails the first failures Upsert and Delete calls.
type flakyFullText struct {
	storage.FullTextIndex
	failures atomic.Int64
}

func (f *flakyFullText) Upsert(ctx context.Context, id core.ID, text string) error {
	if f.failures.Add(-1) >= 0 {
		return errUnavailable
	}
	return f.FullTextIndex.Upsert(ctx, id, text)
}

func (f *flakyFullText) Delete(ctx context.Context, id core.ID) error {
	if f.failures.Add(-1) >= 0 {
		return errUnavailable
	}
	return f.FullTextIndex.Delete(ctx, id)
}

// listingVectors runs beforeIDs ahead of each listing.
type listingVectors struct {
	storage.VectorStore
	beforeIDs func()
}

func (l *listingVectors) IDs(ctx context.Context) ([]core.ID, error) {
	if l.beforeIDs != nil {
		l.beforeIDs()
	}
	return l.VectorStore.IDs(ctx)
}

// listingCatalog runs afterIDs once the catalog has been listed.
type listingCatalog struct {
	storage.DocumentCatalog
	afterIDs func()
}

func (l *listingCatalog) IDs(ctx context.Context) ([]core.ID, error) {
	ids, err := l.DocumentCatalog.IDs(ctx)
	if l.afterIDs != nil {
		l.afterIDs()
	}
	return ids, err
}

type indexFixture struct {
	stores   *badger.Stores
	vectors  *flakyVectors
	fullText *flakyFullText
}

func newIndexFixture(t *testing.T) *indexFixture {
	t.Helper()
	stores, err := badger.NewMemoryStores(testDimension)
	require.NoError(t, err)
	t.Cleanup(func() { stores.Close() })

	return &indexFixture{
		stores:   stores,
		vectors:  &flakyVectors{VectorStore: stores.Vectors},
		fullText: &flakyFullText{FullTextIndex: stores.FullText},
	}
}

func (f *indexFixture) indexer(t *testing.T, opts ...Option) *Indexer {
	t.Helper()
	opts = append([]Option{WithRetryDelay(time.Millisecond)}, opts...)
	ix, err := NewIndexer(f.vectors, f.fullText, f.stores.Catalog, opts...)
	require.NoError(t, err)
	return ix
}

func vec(x float32) []float32 {
	return []float32{x, 1, 0, 0}
}

func TestNewIndexer(t *testing.T) {
	stores, err := badger.NewMemoryStores(testDimension)
	require.NoError(t, err)
	defer stores.Close()

	_, err = NewIndexer(nil, stores.FullText, stores.Catalog)
	assert.ErrorIs(t, err, ErrVectorStoreRequired)

	_, err = NewIndexer(stores.Vectors, nil, stores.Catalog)
	assert.ErrorIs(t, err, ErrFullTextIndexRequired)

	_, err = NewIndexer(stores.Vectors, stores.FullText, nil)
	assert.ErrorIs(t, err, ErrCatalogRequired)

	ix, err := NewIndexer(stores.Vectors, stores.FullText, stores.Catalog, WithMaxRetries(-1))
	require.NoError(t, err)
	assert.Zero(t, ix.maxRetries, "negative retries are clamped")
}

func TestIndexer_Index(t *testing.T) {
	ctx := context.Background()

	t.Run("writes both indices and the catalog", func(t *testing.T) {
		f := newIndexFixture(t)
		ix := f.indexer(t)

		require.NoError(t, ix.IndexText(ctx, 1, "quarterly budget review", vec(1), "en"))

		stored, err := f.stores.Vectors.Get(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, vec(1), stored)

		hits, err := f.stores.FullText.Query(ctx, "budget", 10)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, core.ID(1), hits[0].Id)

		doc, err := f.stores.Catalog.Get(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "en", doc.Language)
		assert.Equal(t, core.ContentHash("quarterly budget review"), doc.ContentHash)
		assert.False(t, doc.CreatedAt.IsZero())
	})

	t.Run("re-indexing replaces the entry", func(t *testing.T) {
		f := newIndexFixture(t)
		ix := f.indexer(t)

		require.NoError(t, ix.IndexText(ctx, 1, "quarterly budget review", vec(1), "en"))
		first, err := f.stores.Catalog.Get(ctx, 1)
		require.NoError(t, err)

		require.NoError(t, ix.IndexText(ctx, 1, "hiring roadmap", vec(2), "en"))

		for _, count := range []func(context.Context) (int, error){
			f.stores.Vectors.Count, f.stores.FullText.Count, f.stores.Catalog.Count,
		} {
			n, err := count(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, n)
		}

		hits, err := f.stores.FullText.Query(ctx, "budget", 10)
		require.NoError(t, err)
		assert.Empty(t, hits, "old text must not match")

		stored, err := f.stores.Vectors.Get(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, vec(2), stored)

		second, err := f.stores.Catalog.Get(ctx, 1)
		require.NoError(t, err)
		assert.True(t, first.CreatedAt.Equal(second.CreatedAt), "creation time is preserved")
	})

	t.Run("wrong dimension writes nothing", func(t *testing.T) {
		f := newIndexFixture(t)
		ix := f.indexer(t)

		err := ix.IndexText(ctx, 1, "quarterly budget review", []float32{1, 2}, "en")
		assert.ErrorIs(t, err, core.ErrInvalidDimension)

		assert.Zero(t, f.vectors.calls.Load())
		n, err := f.stores.FullText.Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
		n, err = f.stores.Catalog.Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("blank text is rejected", func(t *testing.T) {
		f := newIndexFixture(t)
		ix := f.indexer(t)

		assert.ErrorIs(t, ix.IndexText(ctx, 1, "  \n ", vec(1), "en"), core.ErrInvalidDocument)
		assert.ErrorIs(t, ix.IndexText(ctx, 0, "text", vec(1), "en"), core.ErrInvalidDocument)
	})

	t.Run("missing embedding drops the old vector", func(t *testing.T) {
		f := newIndexFixture(t)
		ix := f.indexer(t)

		require.NoError(t, ix.IndexText(ctx, 1, "quarterly budget review", vec(1), "en"))
		require.NoError(t, ix.IndexText(ctx, 1, "quarterly budget review", nil, "en"))

		_, err := f.stores.Vectors.Get(ctx, 1)
		assert.ErrorIs(t, err, storage.ErrNotFound)

		_, err = f.stores.Catalog.Get(ctx, 1)
		assert.NoError(t, err)
	})

	t.Run("transient failures are retried", func(t *testing.T) {
		f := newIndexFixture(t)
		f.vectors.failures.Store(2)
		ix := f.indexer(t, WithMaxRetries(2))

		require.NoError(t, ix.IndexText(ctx, 1, "quarterly budget review", vec(1), "en"))
		assert.Equal(t, int64(3), f.vectors.calls.Load())
	})

	t.Run("vector failure is reported as partial", func(t *testing.T) {
		f := newIndexFixture(t)
		f.vectors.failures.Store(100)
		ix := f.indexer(t, WithMaxRetries(1))

		err := ix.IndexText(ctx, 1, "quarterly budget review", vec(1), "en")
		require.ErrorIs(t, err, core.ErrPartialIndexFailure)
		assert.ErrorIs(t, err, errUnavailable)

		var partial *core.PartialIndexFailureError
		require.ErrorAs(t, err, &partial)
		assert.Equal(t, core.ID(1), partial.DocumentId)
		assert.Equal(t, core.HalfVector, partial.Failed)

		// The text half and the catalog entry were still written
		hits, err := f.stores.FullText.Query(ctx, "budget", 10)
		require.NoError(t, err)
		assert.Len(t, hits, 1)
		_, err = f.stores.Catalog.Get(ctx, 1)
		assert.NoError(t, err)
	})

	t.Run("full-text failure is reported as partial", func(t *testing.T) {
		f := newIndexFixture(t)
		f.fullText.failures.Store(100)
		ix := f.indexer(t, WithMaxRetries(0))

		err := ix.IndexText(ctx, 1, "quarterly budget review", vec(1), "en")
		var partial *core.PartialIndexFailureError
		require.ErrorAs(t, err, &partial)
		assert.Equal(t, core.HalfFullText, partial.Failed)

		_, err = f.stores.Vectors.Get(ctx, 1)
		assert.NoError(t, err)
	})

	t.Run("both halves failing leaves no catalog entry", func(t *testing.T) {
		f := newIndexFixture(t)
		f.vectors.failures.Store(100)
		f.fullText.failures.Store(100)
		ix := f.indexer(t, WithMaxRetries(0))

		err := ix.IndexText(ctx, 1, "quarterly budget review", vec(1), "en")
		var partial *core.PartialIndexFailureError
		require.ErrorAs(t, err, &partial)
		assert.Equal(t, core.HalfVector|core.HalfFullText, partial.Failed)
		assert.Equal(t, "vector+fulltext", partial.Failed.String())

		_, err = f.stores.Catalog.Get(ctx, 1)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func TestIndexer_Remove(t *testing.T) {
	ctx := context.Background()

	t.Run("removes from everywhere", func(t *testing.T) {
		f := newIndexFixture(t)
		ix := f.indexer(t)
		require.NoError(t, ix.IndexText(ctx, 1, "quarterly budget review", vec(1), "en"))

		require.NoError(t, ix.Remove(ctx, 1))

		_, err := f.stores.Catalog.Get(ctx, 1)
		assert.ErrorIs(t, err, storage.ErrNotFound)
		_, err = f.stores.Vectors.Get(ctx, 1)
		assert.ErrorIs(t, err, storage.ErrNotFound)
		n, err := f.stores.FullText.Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("absent id is a no-op", func(t *testing.T) {
		f := newIndexFixture(t)
		assert.NoError(t, f.indexer(t).Remove(ctx, 42))
	})

	t.Run("failed half is left for reconcile", func(t *testing.T) {
		f := newIndexFixture(t)
		ix := f.indexer(t, WithMaxRetries(0))
		require.NoError(t, ix.IndexText(ctx, 1, "quarterly budget review", vec(1), "en"))

		f.fullText.failures.Store(1)
		err := ix.Remove(ctx, 1)
		var partial *core.PartialIndexFailureError
		require.ErrorAs(t, err, &partial)
		assert.Equal(t, core.HalfFullText, partial.Failed)

		_, err = f.stores.Catalog.Get(ctx, 1)
		assert.ErrorIs(t, err, storage.ErrNotFound, "catalog entry goes first")

		report, err := ix.Reconcile(ctx)
		require.NoError(t, err)
		assert.Equal(t, []core.ID{1}, report.OrphanText)
		assert.False(t, report.Clean())

		n, err := f.stores.FullText.Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}

func TestIndexer_Reconcile(t *testing.T) {
	ctx := context.Background()
	f := newIndexFixture(t)
	ix := f.indexer(t)

	require.NoError(t, ix.IndexText(ctx, 1, "quarterly budget review", vec(1), "en"))
	require.NoError(t, ix.IndexText(ctx, 2, "team lunch logistics", nil, "en"))

	// Orphans written behind the indexer's back
	require.NoError(t, f.stores.Vectors.Upsert(ctx, 7, vec(3)))
	require.NoError(t, f.stores.FullText.Upsert(ctx, 8, "stray text"))

	report, err := ix.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, []core.ID{7}, report.OrphanVectors)
	assert.Equal(t, []core.ID{8}, report.OrphanText)
	assert.Equal(t, []core.ID{2}, report.Unembedded)
	assert.Empty(t, report.MissingText)

	report, err = ix.Reconcile(ctx)
	require.NoError(t, err)
	assert.True(t, report.Clean())
	assert.Equal(t, []core.ID{2}, report.Unembedded)
}

func TestIndexer_ReconcileConcurrentIndex(t *testing.T) {
	ctx := context.Background()

	assertSearchable := func(t *testing.T, stores *badger.Stores, id core.ID) {
		t.Helper()
		_, err := stores.Catalog.Get(ctx, id)
		require.NoError(t, err)
		_, err = stores.Vectors.Get(ctx, id)
		require.NoError(t, err)
		hits, err := stores.FullText.Query(ctx, "retrospective", 10)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, id, hits[0].Id)
	}

	t.Run("document indexed while listing", func(t *testing.T) {
		f := newIndexFixture(t)
		vectors := &listingVectors{VectorStore: f.stores.Vectors}
		ix, err := NewIndexer(vectors, f.stores.FullText, f.stores.Catalog, WithRetryDelay(time.Millisecond))
		require.NoError(t, err)

		vectors.beforeIDs = func() {
			require.NoError(t, ix.IndexText(ctx, 7, "sprint retrospective notes", vec(2), "en"))
		}
		report, err := ix.Reconcile(ctx)
		require.NoError(t, err)
		assert.Empty(t, report.OrphanVectors)
		assert.Empty(t, report.OrphanText)
		assertSearchable(t, f.stores, 7)
	})

	t.Run("document cataloged after the snapshot", func(t *testing.T) {
		f := newIndexFixture(t)
		catalog := &listingCatalog{DocumentCatalog: f.stores.Catalog}
		ix, err := NewIndexer(f.stores.Vectors, f.stores.FullText, catalog, WithRetryDelay(time.Millisecond))
		require.NoError(t, err)

		// 7 is half written when the indices are listed; 8 is a real orphan
		require.NoError(t, f.stores.Vectors.Upsert(ctx, 7, vec(2)))
		require.NoError(t, f.stores.FullText.Upsert(ctx, 7, "sprint retrospective notes"))
		require.NoError(t, f.stores.Vectors.Upsert(ctx, 8, vec(3)))

		catalog.afterIDs = func() {
			catalog.afterIDs = nil
			require.NoError(t, ix.IndexText(ctx, 7, "sprint retrospective notes", vec(2), "en"))
		}
		report, err := ix.Reconcile(ctx)
		require.NoError(t, err)
		assert.Equal(t, []core.ID{8}, report.OrphanVectors)
		assert.Empty(t, report.OrphanText)
		assertSearchable(t, f.stores, 7)

		_, err = f.stores.Vectors.Get(ctx, 8)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func TestIndexer_Metrics(t *testing.T) {
	ctx := context.Background()
	f := newIndexFixture(t)
	metrics := NewMetrics(prometheus.NewRegistry())
	ix := f.indexer(t, WithMetrics(metrics), WithMaxRetries(1))

	require.NoError(t, ix.IndexText(ctx, 1, "quarterly budget review", vec(1), "en"))
	assert.Error(t, ix.IndexText(ctx, 2, "", vec(1), "en"))

	f.vectors.failures.Store(1)
	require.NoError(t, ix.IndexText(ctx, 3, "hiring roadmap", vec(2), "en"))

	require.NoError(t, ix.Remove(ctx, 1))

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.DocumentsTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.DocumentsTotal.WithLabelValues("invalid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RemovalsTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RetriesTotal.WithLabelValues("vector")))
}

func TestDifference(t *testing.T) {
	assert.Equal(t, []core.ID{1, 3}, difference([]core.ID{1, 2, 3}, []core.ID{2}))
	assert.Equal(t, []core.ID{}, difference(nil, []core.ID{2}))
	assert.Equal(t, []core.ID{}, difference([]core.ID{2}, []core.ID{2}))
}
