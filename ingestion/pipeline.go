package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/minutes/ai"
	"github.com/poiesic/minutes/core"
)

// IngestRequest is one document to embed and index.
type IngestRequest struct {
	Id        core.ID
	Text      string
	Language  string
	CreatedAt time.Time // Optional; defaults to the time of first indexing
}

// RequestFromMeeting builds the request that indexes a meeting's
// transcript and summary.
func RequestFromMeeting(m *core.Meeting) IngestRequest {
	return IngestRequest{
		Id:        m.Id,
		Text:      m.IndexText(),
		Language:  m.Language,
		CreatedAt: m.CreatedAt,
	}
}

// Pipeline embeds documents and indexes them.
// Batches are processed concurrently on a worker pool.
type Pipeline struct {
	indexer   *Indexer
	embedder  *batchEmbedder
	pool      *ants.Pool
	batchSize int
	logger    *slog.Logger
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(indexer *Indexer, embedder ai.Embedder, opts ...Option) (*Pipeline, error) {
	if indexer == nil {
		return nil, ErrIndexerRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	o, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}

	pool, err := ants.NewPool(o.poolSize)
	if err != nil {
		return nil, err
	}

	logger := o.logger.With("component", "pipeline")
	return &Pipeline{
		indexer: indexer,
		embedder: &batchEmbedder{
			embedder:   embedder,
			maxRetries: o.maxRetries,
			retryDelay: o.retryDelay,
			metrics:    o.metrics,
			logger:     logger.With("processor", "embeddings"),
		},
		pool:      pool,
		batchSize: o.batchSize,
		logger:    logger,
	}, nil
}

// Ingest embeds and indexes every request and waits for all of them.
// The returned error joins the failure of each document that could not be
// fully indexed; the other documents are indexed regardless.
func (p *Pipeline) Ingest(ctx context.Context, requests ...IngestRequest) error {
	if len(requests) == 0 {
		return nil
	}

	errs := make([]error, len(requests))

	// Blank documents are rejected before any provider call
	valid := make([]int, 0, len(requests))
	for i, req := range requests {
		if req.Id == 0 {
			errs[i] = fmt.Errorf("%w: %w", core.ErrInvalidDocument, core.ErrInvalidID)
			continue
		}
		if strings.TrimSpace(req.Text) == "" {
			errs[i] = fmt.Errorf("document %d: %w: %w", req.Id, core.ErrInvalidDocument, core.ErrEmptyContent)
			continue
		}
		valid = append(valid, i)
	}

	var wg sync.WaitGroup
	for start := 0; start < len(valid); start += p.batchSize {
		batch := valid[start:min(start+p.batchSize, len(valid))]
		wg.Add(1)
		err := p.pool.Submit(func() {
			defer wg.Done()
			p.processBatch(ctx, requests, batch, errs)
		})
		if err != nil {
			wg.Done()
			for _, i := range batch {
				errs[i] = fmt.Errorf("document %d: %w", requests[i].Id, err)
			}
		}
	}
	wg.Wait()

	return errors.Join(errs...)
}

// processBatch embeds the texts of requests[batch...] in one call and
// indexes each document. Results are written to errs at the same indices.
func (p *Pipeline) processBatch(ctx context.Context, requests []IngestRequest, batch []int, errs []error) {
	texts := make([]string, len(batch))
	for j, i := range batch {
		texts[j] = requests[i].Text
	}

	vectors, err := p.embedder.embed(ctx, texts)
	if err != nil {
		p.logger.Error("error generating embeddings", "documents", len(batch), "err", err)
		for _, i := range batch {
			errs[i] = fmt.Errorf("document %d: %w", requests[i].Id, err)
		}
		return
	}

	for j, i := range batch {
		req := requests[i]
		doc := core.NewDocument(req.Id, req.Text, vectors[j], req.Language)
		doc.CreatedAt = req.CreatedAt
		if err := p.indexer.Index(ctx, doc); err != nil {
			errs[i] = fmt.Errorf("document %d: %w", req.Id, err)
		}
	}
}

// Indexer returns the indexer documents are written through.
func (p *Pipeline) Indexer() *Indexer {
	return p.indexer
}

// Release releases resources including the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}
