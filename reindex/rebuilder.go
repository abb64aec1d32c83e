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


package reindex

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/poiesic/minutes/core"
	"github.com/poiesic/minutes/ingestion"
	"github.com/poiesic/minutes/storage"
)

// Config holds configuration for a rebuild.
type Config struct {
	// BatchSize is the number of meetings read and ingested together
	BatchSize int

	// ReportInterval is how often to report progress (number of meetings)
	ReportInterval int

	// Force re-indexes meetings whose content is unchanged
	Force bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      32,
		ReportInterval: 100,
	}
}

// Result summarizes a rebuild.
type Result struct {
	Visited   int
	Indexed   int
	Unchanged int
	Empty     int // Meetings without transcript or summary text
	Failed    int
	Evicted   int // Documents whose meeting no longer exists
	Reconcile *ingestion.ReconcileReport
}

// Rebuilder re-indexes every meeting of the upstream repository.
type Rebuilder struct {
	meetings storage.MeetingRepository
	catalog  storage.DocumentCatalog
	pipeline *ingestion.Pipeline
	config   *Config
	progress io.Writer
	logger   *slog.Logger
}

// NewRebuilder creates a new rebuilder.
// progress: where to write progress output (typically os.Stderr); nil discards it
func NewRebuilder(
	meetings storage.MeetingRepository,
	catalog storage.DocumentCatalog,
	pipeline *ingestion.Pipeline,
	config *Config,
	progress io.Writer,
	logger *slog.Logger,
) (*Rebuilder, error) {
	if meetings == nil {
		return nil, ErrMeetingsRequired
	}
	if catalog == nil {
		return nil, ErrCatalogRequired
	}
	if pipeline == nil {
		return nil, ErrPipelineRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if progress == nil {
		progress = io.Discard
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Rebuilder{
		meetings: meetings,
		catalog:  catalog,
		pipeline: pipeline,
		config:   config,
		progress: progress,
		logger:   logger.With("component", "rebuilder"),
	}, nil
}

// Run executes the rebuild.
//
// Documents missing from either index are always re-ingested, even when
// their content hash matches. Per-meeting failures do not stop the rebuild;
// they are joined into the returned error alongside a complete Result.
// Cancelling ctx stops the rebuild between batches.
func (r *Rebuilder) Run(ctx context.Context) (*Result, error) {
	indexer := r.pipeline.Indexer()

	// Clear orphans first and learn which documents are incomplete
	before, err := indexer.Reconcile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to reconcile indices: %w", err)
	}
	incomplete := make(map[core.ID]struct{}, len(before.Unembedded)+len(before.MissingText))
	for _, id := range before.Unembedded {
		incomplete[id] = struct{}{}
	}
	for _, id := range before.MissingText {
		incomplete[id] = struct{}{}
	}

	total, err := r.meetings.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count meetings: %w", err)
	}

	if total == 0 {
		fmt.Fprintf(r.progress, "No meetings found in repository (0 meetings)\n")
	} else {
		mode := "changed"
		if r.config.Force {
			mode = "all"
		}
		fmt.Fprintf(r.progress, "Rebuilding index from %d meetings (batch size: %d, indexing %s)\n",
			total, r.config.BatchSize, mode)
	}

	tracker := NewProgressTracker(r.progress, total, r.config.ReportInterval)
	tracker.Start()

	result := &Result{}
	seen := make(map[core.ID]struct{}, total)
	var failures []error

	err = r.meetings.ForEach(ctx, r.config.BatchSize, func(batch []*core.Meeting) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		requests, unchanged, empty, err := r.plan(ctx, batch, incomplete)
		if err != nil {
			return err
		}
		for _, m := range batch {
			if m.IndexText() != "" {
				seen[m.Id] = struct{}{}
			}
		}

		failed := 0
		if err := r.pipeline.Ingest(ctx, requests...); err != nil {
			failed = countErrors(err)
			failures = append(failures, err)
		}

		result.Visited += len(batch)
		result.Unchanged += unchanged
		result.Empty += empty
		result.Failed += failed
		result.Indexed += len(requests) - failed
		tracker.Add(len(batch), unchanged+empty, failed)
		return nil
	})
	if err != nil {
		return result, fmt.Errorf("rebuild interrupted after %d meetings: %w", result.Visited, err)
	}
	tracker.Finish()

	evicted, err := r.evict(ctx, seen)
	result.Evicted = evicted
	if err != nil {
		failures = append(failures, err)
	}

	after, err := indexer.Reconcile(ctx)
	if err != nil {
		failures = append(failures, fmt.Errorf("failed to reconcile indices: %w", err))
	}
	result.Reconcile = after

	elapsed := tracker.Elapsed()
	fmt.Fprintf(r.progress, "Rebuild complete. Indexed %d, unchanged %d, failed %d, evicted %d in %v\n",
		result.Indexed, result.Unchanged, result.Failed, result.Evicted, elapsed.Round(time.Millisecond))

	r.logger.Info("rebuild finished",
		"visited", result.Visited,
		"indexed", result.Indexed,
		"unchanged", result.Unchanged,
		"empty", result.Empty,
		"failed", result.Failed,
		"evicted", result.Evicted)

	return result, errors.Join(failures...)
}

// plan decides which meetings of batch need indexing.
func (r *Rebuilder) plan(ctx context.Context, batch []*core.Meeting, incomplete map[core.ID]struct{}) ([]ingestion.IngestRequest, int, int, error) {
	indexed := make(map[core.ID]*core.Document)
	if !r.config.Force {
		ids := make([]core.ID, len(batch))
		for i, m := range batch {
			ids[i] = m.Id
		}
		docs, err := r.catalog.GetMany(ctx, ids...)
		if err != nil {
			return nil, 0, 0, fmt.Errorf("failed to read catalog: %w", err)
		}
		for _, doc := range docs {
			indexed[doc.Id] = doc
		}
	}

	requests := make([]ingestion.IngestRequest, 0, len(batch))
	unchanged, empty := 0, 0
	for _, m := range batch {
		req := ingestion.RequestFromMeeting(m)
		if req.Text == "" {
			r.logger.Debug("skipping meeting without text", "id", m.Id)
			empty++
			continue
		}
		if doc, ok := indexed[m.Id]; ok && isCurrent(doc, req) {
			if _, missing := incomplete[m.Id]; !missing {
				unchanged++
				continue
			}
		}
		requests = append(requests, req)
	}
	return requests, unchanged, empty, nil
}

// evict removes documents whose meeting was deleted or lost its text.
func (r *Rebuilder) evict(ctx context.Context, seen map[core.ID]struct{}) (int, error) {
	ids, err := r.catalog.IDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list catalog: %w", err)
	}

	evicted := 0
	var errs []error
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		if err := r.pipeline.Indexer().Remove(ctx, id); err != nil {
			errs = append(errs, err)
			continue
		}
		evicted++
	}
	return evicted, errors.Join(errs...)
}

func isCurrent(doc *core.Document, req ingestion.IngestRequest) bool {
	return doc.ContentHash == core.ContentHash(req.Text) && doc.Language == req.Language
}

// countErrors returns the number of errors joined in err.
func countErrors(err error) int {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return len(joined.Unwrap())
	}
	return 1
}
