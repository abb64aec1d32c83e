package ingestion

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/poiesic/minutes/ai/mock"
	"github.com/poiesic/minutes/core"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPipeline(t *testing.T, f *indexFixture, embedder *mock.MockEmbedder, opts ...Option) *Pipeline {
	t.Helper()
	opts = append([]Option{WithRetryDelay(time.Millisecond)}, opts...)
	p, err := NewPipeline(f.indexer(t, opts...), embedder, opts...)
	require.NoError(t, err)
	t.Cleanup(p.Release)
	return p
}

func TestNewPipeline(t *testing.T) {
	f := newIndexFixture(t)
	ix := f.indexer(t)

	_, err := NewPipeline(nil, mock.NewMockEmbedder(testDimension))
	assert.ErrorIs(t, err, ErrIndexerRequired)

	_, err = NewPipeline(ix, nil)
	assert.ErrorIs(t, err, ErrEmbedderRequired)

	p, err := NewPipeline(ix, mock.NewMockEmbedder(testDimension), WithBatchSize(0), WithPoolSize(2))
	require.NoError(t, err)
	defer p.Release()
	assert.Equal(t, 1, p.batchSize)
	assert.Same(t, ix, p.Indexer())
}

func TestPipeline_Ingest(t *testing.T) {
	ctx := context.Background()

	t.Run("embeds and indexes every request", func(t *testing.T) {
		f := newIndexFixture(t)
		embedder := mock.NewMockEmbedder(testDimension)
		p := newPipeline(t, f, embedder, WithBatchSize(2))

		reqs := []IngestRequest{
			{Id: 1, Text: "quarterly budget review", Language: "en"},
			{Id: 2, Text: "team lunch logistics", Language: "en"},
			{Id: 3, Text: "revue budgétaire trimestrielle", Language: "fr"},
		}
		require.NoError(t, p.Ingest(ctx, reqs...))

		assert.Equal(t, 2, embedder.CallCount(), "three texts in batches of two")
		for _, req := range reqs {
			stored, err := f.stores.Vectors.Get(ctx, req.Id)
			require.NoError(t, err)
			assert.Equal(t, mock.DeterministicVector(req.Text, testDimension), stored)

			doc, err := f.stores.Catalog.Get(ctx, req.Id)
			require.NoError(t, err)
			assert.Equal(t, req.Language, doc.Language)
		}
	})

	t.Run("no requests", func(t *testing.T) {
		f := newIndexFixture(t)
		embedder := mock.NewMockEmbedder(testDimension)
		p := newPipeline(t, f, embedder)

		require.NoError(t, p.Ingest(ctx))
		assert.Zero(t, embedder.CallCount())
	})

	t.Run("keeps the given creation time", func(t *testing.T) {
		f := newIndexFixture(t)
		p := newPipeline(t, f, mock.NewMockEmbedder(testDimension))

		created := time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)
		require.NoError(t, p.Ingest(ctx, IngestRequest{Id: 1, Text: "hiring roadmap", CreatedAt: created}))

		doc, err := f.stores.Catalog.Get(ctx, 1)
		require.NoError(t, err)
		assert.True(t, created.Equal(doc.CreatedAt))
	})

	t.Run("blank text never reaches the provider", func(t *testing.T) {
		f := newIndexFixture(t)
		embedder := mock.NewMockEmbedder(testDimension)
		p := newPipeline(t, f, embedder)

		err := p.Ingest(ctx, IngestRequest{Id: 1, Text: "   "})
		assert.ErrorIs(t, err, core.ErrInvalidDocument)
		assert.Zero(t, embedder.CallCount())
	})

	t.Run("one bad request does not block the rest", func(t *testing.T) {
		f := newIndexFixture(t)
		p := newPipeline(t, f, mock.NewMockEmbedder(testDimension))

		err := p.Ingest(ctx,
			IngestRequest{Id: 1, Text: "quarterly budget review"},
			IngestRequest{Id: 2, Text: ""},
		)
		require.ErrorIs(t, err, core.ErrInvalidDocument)
		assert.Contains(t, err.Error(), "document 2")

		_, err = f.stores.Catalog.Get(ctx, 1)
		assert.NoError(t, err)
	})

	t.Run("provider failure is retried then surfaced", func(t *testing.T) {
		f := newIndexFixture(t)
		embedder := mock.NewMockEmbedder(testDimension)
		embedder.EmbedTextsFunc = func(context.Context, []string) ([][]float32, error) {
			return nil, errors.New("connection refused")
		}
		metrics := NewMetrics(prometheus.NewRegistry())
		p := newPipeline(t, f, embedder, WithMaxRetries(2), WithMetrics(metrics))

		err := p.Ingest(ctx, IngestRequest{Id: 1, Text: "quarterly budget review"})
		require.ErrorIs(t, err, core.ErrProvider)
		assert.Equal(t, 3, embedder.CallCount())
		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.EmbeddingsTotal.WithLabelValues("failed")))

		n, err := f.stores.Catalog.Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, n, "nothing is indexed without an embedding")
	})

	t.Run("transient provider failure recovers", func(t *testing.T) {
		f := newIndexFixture(t)
		embedder := mock.NewMockEmbedder(testDimension)
		var mu sync.Mutex
		calls := 0
		embedder.EmbedTextsFunc = func(_ context.Context, texts []string) ([][]float32, error) {
			mu.Lock()
			defer mu.Unlock()
			calls++
			if calls == 1 {
				return nil, errors.New("timeout")
			}
			out := make([][]float32, len(texts))
			for i, text := range texts {
				out[i] = mock.DeterministicVector(text, testDimension)
			}
			return out, nil
		}
		p := newPipeline(t, f, embedder)

		require.NoError(t, p.Ingest(ctx, IngestRequest{Id: 1, Text: "quarterly budget review"}))
		assert.Equal(t, 2, embedder.CallCount())
	})

	t.Run("wrong dimension is not retried", func(t *testing.T) {
		f := newIndexFixture(t)
		embedder := mock.NewMockEmbedder(testDimension + 2)
		p := newPipeline(t, f, embedder, WithMaxRetries(3))

		err := p.Ingest(ctx, IngestRequest{Id: 1, Text: "quarterly budget review"})
		require.ErrorIs(t, err, core.ErrInvalidDimension)
		assert.Equal(t, 1, embedder.CallCount())

		n, err := f.stores.FullText.Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("partial index failure is surfaced", func(t *testing.T) {
		f := newIndexFixture(t)
		f.vectors.failures.Store(100)
		p := newPipeline(t, f, mock.NewMockEmbedder(testDimension), WithMaxRetries(0))

		err := p.Ingest(ctx, IngestRequest{Id: 1, Text: "quarterly budget review"})
		assert.ErrorIs(t, err, core.ErrPartialIndexFailure)
	})
}

func TestRequestFromMeeting(t *testing.T) {
	created := time.Date(2025, 1, 2, 9, 0, 0, 0, time.UTC)
	m := &core.Meeting{
		Id:         5,
		Title:      "Planning",
		Transcript: "We reviewed the roadmap.",
		Summary:    "Roadmap approved.",
		Language:   "en",
		CreatedAt:  created,
	}

	req := RequestFromMeeting(m)
	assert.Equal(t, core.ID(5), req.Id)
	assert.Equal(t, "We reviewed the roadmap.\n\nRoadmap approved.", req.Text)
	assert.Equal(t, "en", req.Language)
	assert.Equal(t, created, req.CreatedAt)
}
