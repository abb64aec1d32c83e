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


package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/poiesic/minutes/ai"
	"github.com/poiesic/minutes/core"
	"github.com/poiesic/minutes/storage"
)

// Engine provides hybrid keyword and semantic search over indexed documents.
type Engine struct {
	vectors    storage.VectorStore
	fullText   storage.FullTextIndex
	catalog    storage.DocumentCatalog
	embedder   ai.Embedder
	translator ai.Translator

	alpha               float64
	oversample          float64
	timeout             time.Duration
	canonicalLanguage   string
	similarityThreshold *float64
	languageTTL         time.Duration
	languages           languageCache

	monitor SearchMonitor
	metrics *Metrics
	logger  *slog.Logger
}

// NewEngine creates a new hybrid search engine.
func NewEngine(
	vectors storage.VectorStore,
	fullText storage.FullTextIndex,
	catalog storage.DocumentCatalog,
	embedder ai.Embedder,
	opts ...Option,
) (*Engine, error) {
	if vectors == nil {
		return nil, ErrVectorStoreRequired
	}
	if fullText == nil {
		return nil, ErrFullTextIndexRequired
	}
	if catalog == nil {
		return nil, ErrCatalogRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	e := &Engine{
		vectors:     vectors,
		fullText:    fullText,
		catalog:     catalog,
		embedder:    embedder,
		alpha:       DefaultAlpha,
		oversample:  DefaultOversample,
		timeout:     DefaultTimeout,
		languageTTL: DefaultLanguageCacheTTL,
		monitor:     &noopMonitor{},
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	e.logger = e.logger.With("component", "search")

	return e, nil
}

// subResult is the outcome of one sub-query.
type subResult struct {
	hits []core.ScoredID
	err  error
}

// SearchText is shorthand for Search with a plain query.
func (e *Engine) SearchText(ctx context.Context, text string, topK int) ([]*core.RankedResult, error) {
	return e.Search(ctx, core.Query{Text: text}, topK)
}

// Search returns up to topK documents matching the query, ranked by the
// blend of their keyword and semantic scores.
func (e *Engine) Search(ctx context.Context, query core.Query, topK int) ([]*core.RankedResult, error) {
	return e.SearchWithMonitor(ctx, query, topK, nil)
}

// SearchWithMonitor is Search with a per-call monitor.
// The monitor receives callbacks at each stage of the search process.
func (e *Engine) SearchWithMonitor(ctx context.Context, query core.Query, topK int, monitor SearchMonitor) ([]*core.RankedResult, error) {
	if monitor == nil {
		monitor = e.monitor
	}
	if strings.TrimSpace(query.Text) == "" {
		return nil, core.ErrEmptyQuery
	}
	if topK <= 0 {
		return []*core.RankedResult{}, nil
	}

	start := time.Now()
	monitor.Start(query)

	// 1. Normalize the keyword query text
	keywordText, translated := e.keywordQueryText(ctx, query)
	monitor.AfterNormalization(keywordText, translated)

	// 2. Run both sub-queries concurrently
	n := e.candidateCount(topK)
	var keyword, semantic subResult
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		keyword = e.keywordSearch(ctx, keywordText, n)
	}()
	go func() {
		defer wg.Done()
		semantic = e.semanticSearch(ctx, query.Text, n)
	}()
	wg.Wait()
	monitor.AfterKeywordSearch(keyword.hits, keyword.err)
	monitor.AfterSemanticSearch(semantic.hits, semantic.err)

	if keyword.err != nil && semantic.err != nil {
		e.logger.Error("both sub-queries failed",
			"keywordErr", keyword.err,
			"semanticErr", semantic.err)
		e.metrics.observeSearch(OutcomeUnavailable, time.Since(start))
		return nil, fmt.Errorf("%w: %w", core.ErrSearchUnavailable, errors.Join(keyword.err, semantic.err))
	}

	// 3. Merge and drop documents no longer in the catalog
	results, err := e.resolve(ctx, merge(keyword.hits, semantic.hits, e.alpha))
	if err != nil {
		e.metrics.observeSearch(OutcomeError, time.Since(start))
		return nil, err
	}

	// 4. Order and truncate
	sortResults(results)
	if len(results) > topK {
		results = results[:topK]
	}
	monitor.Finish(results)

	outcome := OutcomeOK
	if keyword.err != nil || semantic.err != nil {
		outcome = OutcomeDegraded
	}
	e.metrics.observeSearch(outcome, time.Since(start))
	e.logger.Debug("search complete",
		"topK", topK,
		"candidates", n,
		"keywordHits", len(keyword.hits),
		"semanticHits", len(semantic.hits),
		"results", len(results),
		"outcome", outcome)

	return results, nil
}

// FindSimilar returns up to topK documents closest to the stored embedding
// of id, excluding id itself.
func (e *Engine) FindSimilar(ctx context.Context, id core.ID, topK int) ([]*core.RankedResult, error) {
	if topK <= 0 {
		return []*core.RankedResult{}, nil
	}

	vector, err := e.vectors.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load embedding for %d: %w", id, err)
	}

	hits, err := e.vectors.Query(ctx, vector, topK+1)
	if err != nil && !errors.Is(err, core.ErrEmptyStore) {
		return nil, err
	}

	others := make([]core.ScoredID, 0, len(hits))
	for _, h := range e.applyThreshold(hits) {
		if h.Id != id {
			others = append(others, h)
		}
	}

	results := make([]*core.RankedResult, len(others))
	for i, h := range others {
		results[i] = &core.RankedResult{
			DocumentId:    h.Id,
			Score:         h.Score,
			SemanticScore: h.Score,
			Source:        core.SourceSemantic,
		}
	}
	results, err = e.resolve(ctx, results)
	if err != nil {
		return nil, err
	}
	sortResults(results)
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// candidateCount returns max(topK, ceil(oversample*topK)).
func (e *Engine) candidateCount(topK int) int {
	n := int(math.Ceil(e.oversample * float64(topK)))
	return max(n, topK)
}

// keywordQueryText returns the text for the keyword sub-query and whether
// it was translated. Translation failures fall back to the original text.
func (e *Engine) keywordQueryText(ctx context.Context, query core.Query) (string, bool) {
	if e.translator == nil {
		return query.Text, false
	}
	if !query.CrossLanguage && strings.TrimSpace(query.LanguageHint) == "" {
		e.metrics.translation(TranslationSkipped)
		return query.Text, false
	}

	canonical := e.canonical(ctx)
	if !needsTranslation(query, canonical) {
		e.metrics.translation(TranslationSkipped)
		return query.Text, false
	}

	translated, err := bounded(ctx, e.timeout, func(ctx context.Context) (string, error) {
		return e.translator.Translate(ctx, query.Text, canonical)
	})
	if err != nil || strings.TrimSpace(translated) == "" {
		e.logger.Warn("translation unavailable, using original query text",
			"target", canonical,
			"err", err)
		e.metrics.translation(TranslationFailed)
		return query.Text, false
	}

	e.metrics.translation(TranslationTranslated)
	return translated, translated != query.Text
}

func (e *Engine) keywordSearch(ctx context.Context, text string, n int) subResult {
	hits, err := bounded(ctx, e.timeout, func(ctx context.Context) ([]core.ScoredID, error) {
		return e.fullText.Query(ctx, text, n)
	})
	if err != nil {
		e.logger.Warn("keyword sub-query unavailable", "err", err)
		e.metrics.subQueryFailed("keyword")
		return subResult{err: fmt.Errorf("keyword sub-query: %w", err)}
	}
	return subResult{hits: hits}
}

// semanticSearch embeds the original query text and queries the vector
// store. The embedding call counts against the same timeout.
func (e *Engine) semanticSearch(ctx context.Context, text string, n int) subResult {
	hits, err := bounded(ctx, e.timeout, func(ctx context.Context) ([]core.ScoredID, error) {
		vector, err := e.embedder.EmbedText(ctx, text)
		if err != nil {
			return nil, err
		}
		hits, err := e.vectors.Query(ctx, vector, n)
		if errors.Is(err, core.ErrEmptyStore) {
			return []core.ScoredID{}, nil
		}
		return hits, err
	})
	if err != nil {
		e.logger.Warn("semantic sub-query unavailable", "err", err)
		e.metrics.subQueryFailed("semantic")
		return subResult{err: fmt.Errorf("semantic sub-query: %w", err)}
	}
	return subResult{hits: e.applyThreshold(hits)}
}

func (e *Engine) applyThreshold(hits []core.ScoredID) []core.ScoredID {
	if e.similarityThreshold == nil {
		return hits
	}
	kept := make([]core.ScoredID, 0, len(hits))
	for _, h := range hits {
		if h.Score >= *e.similarityThreshold {
			kept = append(kept, h)
		}
	}
	return kept
}

// resolve drops results whose document is no longer cataloged and fills in CreatedAt.
func (e *Engine) resolve(ctx context.Context, results []*core.RankedResult) ([]*core.RankedResult, error) {
	if len(results) == 0 {
		return results, nil
	}

	ids := make([]core.ID, len(results))
	for i, r := range results {
		ids[i] = r.DocumentId
	}
	docs, err := e.catalog.GetMany(ctx, ids...)
	if err != nil {
		e.logger.Error("error retrieving documents", "count", len(ids), "err", err)
		return nil, fmt.Errorf("failed to resolve results: %w", err)
	}

	created := make(map[core.ID]time.Time, len(docs))
	for _, doc := range docs {
		if doc != nil {
			created[doc.Id] = doc.CreatedAt
		}
	}

	kept := results[:0]
	for _, r := range results {
		createdAt, ok := created[r.DocumentId]
		if !ok {
			e.logger.Debug("dropping uncataloged document", "id", r.DocumentId)
			continue
		}
		r.CreatedAt = createdAt
		kept = append(kept, r)
	}
	return kept, nil
}

// bounded runs fn with a deadline and returns as soon as the deadline
// passes, even if fn ignores cancellation.
func bounded[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		value T
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		value, err := fn(ctx)
		done <- outcome{value, err}
	}()

	select {
	case o := <-done:
		return o.value, o.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
