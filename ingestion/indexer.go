// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/poiesic/minutes/core"
	"github.com/poiesic/minutes/retry"
	"github.com/poiesic/minutes/storage"
)

// Index outcomes recorded in metrics.
const (
	outcomeOK      = "ok"
	outcomePartial = "partial"
	outcomeFailed  = "failed"
	outcomeInvalid = "invalid"
)

const documentLockStripes = 64

// documentLocks serializes Index, Remove and orphan sweeps of the same id.
type documentLocks struct {
	stripes [documentLockStripes]sync.Mutex
}

func (l *documentLocks) lock(id core.ID) func() {
	m := &l.stripes[uint64(id)%documentLockStripes]
	m.Lock()
	return m.Unlock
}

// Indexer writes documents to the vector store, the full-text index and
// the document catalog, and removes them again.
type Indexer struct {
	vectors    storage.VectorStore
	fullText   storage.FullTextIndex
	catalog    storage.DocumentCatalog
	maxRetries int
	retryDelay time.Duration
	metrics    *Metrics
	logger     *slog.Logger
	locks      documentLocks
}

// NewIndexer creates a new indexer.
func NewIndexer(
	vectors storage.VectorStore,
	fullText storage.FullTextIndex,
	catalog storage.DocumentCatalog,
	opts ...Option,
) (*Indexer, error) {
	if vectors == nil {
		return nil, ErrVectorStoreRequired
	}
	if fullText == nil {
		return nil, ErrFullTextIndexRequired
	}
	if catalog == nil {
		return nil, ErrCatalogRequired
	}

	o, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}

	return &Indexer{
		vectors:    vectors,
		fullText:   fullText,
		catalog:    catalog,
		maxRetries: o.maxRetries,
		retryDelay: o.retryDelay,
		metrics:    o.metrics,
		logger:     o.logger.With("component", "indexer"),
	}, nil
}

// IndexText indexes a document built from its parts.
func (ix *Indexer) IndexText(ctx context.Context, id core.ID, text string, embedding []float32, language string) error {
	return ix.Index(ctx, core.NewDocument(id, text, embedding, language))
}

// Index writes doc to both indices as one logical unit.
//
// The document is validated before anything is written: blank text fails
// with core.ErrInvalidDocument and a wrong embedding length with
// core.ErrInvalidDimension. A document without an embedding has any
// previous vector entry removed. Each half is retried independently; if a
// half still fails a *core.PartialIndexFailureError names it. The catalog
// entry is written whenever at least one half succeeded.
func (ix *Indexer) Index(ctx context.Context, doc *core.Document) error {
	if err := core.ValidateDocument(doc, ix.vectors.Dimension()); err != nil {
		ix.metrics.document(outcomeInvalid)
		return err
	}
	defer ix.locks.lock(doc.Id)()

	var failed core.IndexHalf
	var errs []error

	err := ix.withRetry(ctx, "vector", func() error {
		if doc.Vector == nil {
			return ix.vectors.Delete(ctx, doc.Id)
		}
		return ix.vectors.Upsert(ctx, doc.Id, doc.Vector)
	})
	if err != nil {
		failed |= core.HalfVector
		errs = append(errs, fmt.Errorf("vector store: %w", err))
	}

	err = ix.withRetry(ctx, "fulltext", func() error {
		return ix.fullText.Upsert(ctx, doc.Id, doc.Text)
	})
	if err != nil {
		failed |= core.HalfFullText
		errs = append(errs, fmt.Errorf("full-text index: %w", err))
	}

	if failed != core.HalfVector|core.HalfFullText {
		err = ix.withRetry(ctx, "catalog", func() error {
			_, err := ix.catalog.Put(ctx, doc)
			return err
		})
		if err != nil {
			ix.logger.Error("failed to catalog document", "id", doc.Id, "err", err)
			ix.metrics.document(outcomeFailed)
			return fmt.Errorf("failed to catalog document %d: %w", doc.Id, errors.Join(append(errs, err)...))
		}
	}

	if failed != 0 {
		ix.logger.Error("partial index failure", "id", doc.Id, "failed", failed.String(), "err", errors.Join(errs...))
		ix.metrics.document(outcomePartial)
		return &core.PartialIndexFailureError{DocumentId: doc.Id, Failed: failed, Err: errors.Join(errs...)}
	}

	ix.logger.Debug("indexed document", "id", doc.Id, "embedded", doc.Vector != nil, "language", doc.Language)
	ix.metrics.document(outcomeOK)
	return nil
}

// Remove evicts id from the catalog first, so searches stop returning it,
// then from both indices. A half that still fails after retries is named
// in a *core.PartialIndexFailureError and is swept by Reconcile.
func (ix *Indexer) Remove(ctx context.Context, id core.ID) error {
	defer ix.locks.lock(id)()

	err := ix.withRetry(ctx, "catalog", func() error {
		return ix.catalog.Delete(ctx, id)
	})
	if err != nil {
		ix.metrics.removal(outcomeFailed)
		return fmt.Errorf("failed to remove document %d from catalog: %w", id, err)
	}

	var failed core.IndexHalf
	var errs []error
	if err := ix.withRetry(ctx, "vector", func() error { return ix.vectors.Delete(ctx, id) }); err != nil {
		failed |= core.HalfVector
		errs = append(errs, fmt.Errorf("vector store: %w", err))
	}
	if err := ix.withRetry(ctx, "fulltext", func() error { return ix.fullText.Delete(ctx, id) }); err != nil {
		failed |= core.HalfFullText
		errs = append(errs, fmt.Errorf("full-text index: %w", err))
	}

	if failed != 0 {
		ix.logger.Error("partial removal", "id", id, "failed", failed.String(), "err", errors.Join(errs...))
		ix.metrics.removal(outcomePartial)
		return &core.PartialIndexFailureError{DocumentId: id, Failed: failed, Err: errors.Join(errs...)}
	}

	ix.logger.Debug("removed document", "id", id)
	ix.metrics.removal(outcomeOK)
	return nil
}

// ReconcileReport summarizes a Reconcile pass.
type ReconcileReport struct {
	// OrphanVectors are vector entries with no catalog entry. They were deleted.
	OrphanVectors []core.ID
	// OrphanText are full-text entries with no catalog entry. They were deleted.
	OrphanText []core.ID
	// Unembedded are cataloged documents without a vector entry.
	Unembedded []core.ID
	// MissingText are cataloged documents without a full-text entry.
	MissingText []core.ID
}

// Clean reports whether the indices agreed with the catalog.
func (r *ReconcileReport) Clean() bool {
	return len(r.OrphanVectors) == 0 && len(r.OrphanText) == 0 && len(r.MissingText) == 0
}

// Reconcile brings both indices in line with the catalog. Index entries
// for uncataloged ids are deleted; cataloged documents missing from an
// index are reported so they can be re-ingested.
//
// The indices are listed before the catalog, and every orphan is checked
// against the catalog again under its document lock before deletion, so a
// concurrent Index is never undone.
func (ix *Indexer) Reconcile(ctx context.Context) (*ReconcileReport, error) {
	vectorIDs, err := ix.vectors.IDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list vector store: %w", err)
	}
	textIDs, err := ix.fullText.IDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list full-text index: %w", err)
	}
	cataloged, err := ix.catalog.IDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list catalog: %w", err)
	}

	report := &ReconcileReport{}
	report.Unembedded = difference(cataloged, vectorIDs)
	report.MissingText = difference(cataloged, textIDs)

	var errs []error
	report.OrphanVectors, errs = ix.sweep(ctx, difference(vectorIDs, cataloged), "vector", ix.vectors.Delete, errs)
	report.OrphanText, errs = ix.sweep(ctx, difference(textIDs, cataloged), "full-text", ix.fullText.Delete, errs)

	ix.logger.Info("reconciled indices",
		"cataloged", len(cataloged),
		"orphanVectors", len(report.OrphanVectors),
		"orphanText", len(report.OrphanText),
		"unembedded", len(report.Unembedded),
		"missingText", len(report.MissingText))

	return report, errors.Join(errs...)
}

// sweep deletes each candidate that is still uncataloged and returns the
// ids it deleted.
func (ix *Indexer) sweep(
	ctx context.Context,
	candidates []core.ID,
	kind string,
	del func(context.Context, core.ID) error,
	errs []error,
) ([]core.ID, []error) {
	swept := []core.ID{}
	for _, id := range candidates {
		orphan, err := ix.deleteOrphan(ctx, id, del)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s %d: %w", kind, id, err))
			continue
		}
		if orphan {
			swept = append(swept, id)
		}
	}
	return swept, errs
}

func (ix *Indexer) deleteOrphan(ctx context.Context, id core.ID, del func(context.Context, core.ID) error) (bool, error) {
	defer ix.locks.lock(id)()

	_, err := ix.catalog.Get(ctx, id)
	switch {
	case err == nil:
		ix.logger.Debug("orphan was cataloged concurrently", "id", id)
		return false, nil
	case !errors.Is(err, storage.ErrNotFound):
		return false, err
	}
	return true, del(ctx, id)
}

// withRetry runs op up to maxRetries+1 times with exponential backoff.
func (ix *Indexer) withRetry(ctx context.Context, half string, op func() error) error {
	attempt := 0
	return retry.WithBackoff(ctx, func() error {
		attempt++
		if attempt > 1 {
			ix.metrics.retry(half)
			ix.logger.Warn("retrying index write", "half", half, "attempt", attempt)
		}
		return op()
	}, ix.maxRetries+1, ix.retryDelay)
}

// difference returns the ids in a that are not in b, in the order of a.
func difference(a, b []core.ID) []core.ID {
	in := make(map[core.ID]struct{}, len(b))
	for _, id := range b {
		in[id] = struct{}{}
	}
	out := []core.ID{}
	for _, id := range a {
		if _, ok := in[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}
