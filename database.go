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


package minutes

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/poiesic/minutes/ai"
	"github.com/poiesic/minutes/ai/openai"
	"github.com/poiesic/minutes/config"
	"github.com/poiesic/minutes/core"
	"github.com/poiesic/minutes/ingestion"
	"github.com/poiesic/minutes/reindex"
	"github.com/poiesic/minutes/search"
	"github.com/poiesic/minutes/storage"
	"github.com/poiesic/minutes/storage/badger"
	"github.com/poiesic/minutes/storage/sqlite"
	"github.com/prometheus/client_golang/prometheus"
)

// SQLiteFileName is the name of the SQLite full-text index inside the
// storage directory.
const SQLiteFileName = "fulltext.db"

type Database struct {
	config   *config.Config
	stores   *badger.Stores
	fullText storage.FullTextIndex
	sqlite   *sqlite.FullTextIndex
	provider ai.AIProvider
	indexer  *ingestion.Indexer
	pipeline *ingestion.Pipeline
	engine   *search.Engine
	logger   *slog.Logger
}

// DatabaseOption configures a Database.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	provider   ai.AIProvider
	registerer prometheus.Registerer
	monitor    search.SearchMonitor
	logger     *slog.Logger
}

// WithProvider uses provider instead of the OpenAI-compatible provider
// built from the configuration. The database closes it on Close.
func WithProvider(provider ai.AIProvider) DatabaseOption {
	return func(o *databaseOptions) {
		o.provider = provider
	}
}

// WithMetrics registers search and ingestion metrics with reg.
func WithMetrics(reg prometheus.Registerer) DatabaseOption {
	return func(o *databaseOptions) {
		o.registerer = reg
	}
}

// WithSearchMonitor installs a monitor on every search.
func WithSearchMonitor(monitor search.SearchMonitor) DatabaseOption {
	return func(o *databaseOptions) {
		o.monitor = monitor
	}
}

// WithLogger sets the logger handed to every component.
func WithLogger(logger *slog.Logger) DatabaseOption {
	return func(o *databaseOptions) {
		o.logger = logger
	}
}

// NewDatabase opens the stores described by cfg and wires the indexer,
// the ingestion pipeline and the search engine over them. A nil cfg uses
// config.Default(), which keeps everything in memory.
func NewDatabase(cfg *config.Config, opts ...DatabaseOption) (*Database, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	options := &databaseOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	// Open backend
	inMemory := cfg.Storage.Path == ""
	backend, err := badger.OpenBackend(cfg.Storage.Path, inMemory)
	if err != nil {
		return nil, err
	}
	stores, err := badger.OpenStores(backend, cfg.AI.Dimension)
	if err != nil {
		backend.Close()
		return nil, err
	}

	db := &Database{
		config:   cfg,
		stores:   stores,
		fullText: stores.FullText,
		logger:   options.logger.With("component", "database"),
	}

	if cfg.Storage.FullTextBackend == config.BackendSQLite {
		db.sqlite, err = sqlite.Open(filepath.Join(cfg.Storage.Path, SQLiteFileName))
		if err != nil {
			stores.Close()
			return nil, err
		}
		db.fullText = db.sqlite
	}

	// Create AI provider with configured settings
	db.provider = options.provider
	if db.provider == nil {
		db.provider, err = openai.NewProvider(cfg.AIConfig())
		if err != nil {
			db.closeStores()
			return nil, err
		}
	}

	if err := db.wire(options); err != nil {
		db.Close()
		return nil, err
	}

	db.logger.Info("database opened",
		"path", cfg.Storage.Path,
		"inMemory", inMemory,
		"fulltext", cfg.Storage.FullTextBackend,
		"dimension", cfg.AI.Dimension)
	return db, nil
}

func (db *Database) wire(options *databaseOptions) error {
	cfg := db.config

	var searchMetrics *search.Metrics
	var ingestMetrics *ingestion.Metrics
	if options.registerer != nil {
		searchMetrics = search.NewMetrics(options.registerer)
		ingestMetrics = ingestion.NewMetrics(options.registerer)
	}

	ingestOpts := []ingestion.Option{
		ingestion.WithMaxRetries(cfg.Ingestion.MaxRetries),
		ingestion.WithRetryDelay(time.Duration(cfg.Ingestion.RetryDelay)),
		ingestion.WithBatchSize(cfg.Ingestion.BatchSize),
		ingestion.WithMetrics(ingestMetrics),
		ingestion.WithLogger(options.logger),
	}
	if cfg.Ingestion.PoolSize > 0 {
		ingestOpts = append(ingestOpts, ingestion.WithPoolSize(cfg.Ingestion.PoolSize))
	}

	var err error
	db.indexer, err = ingestion.NewIndexer(db.stores.Vectors, db.fullText, db.stores.Catalog, ingestOpts...)
	if err != nil {
		return err
	}
	db.pipeline, err = ingestion.NewPipeline(db.indexer, db.provider.Embedder(), ingestOpts...)
	if err != nil {
		return err
	}

	searchOpts := []search.Option{
		search.WithAlpha(cfg.Search.Alpha),
		search.WithOversample(cfg.Search.Oversample),
		search.WithTimeout(time.Duration(cfg.Search.Timeout)),
		search.WithMetrics(searchMetrics),
		search.WithLogger(options.logger),
	}
	if cfg.Search.CanonicalLanguage != "" {
		searchOpts = append(searchOpts, search.WithCanonicalLanguage(cfg.Search.CanonicalLanguage))
	}
	if cfg.Search.SimilarityThreshold != nil {
		searchOpts = append(searchOpts, search.WithSimilarityThreshold(*cfg.Search.SimilarityThreshold))
	}
	if cfg.AI.Translate {
		searchOpts = append(searchOpts, search.WithTranslator(db.provider.Translator()))
	}
	if options.monitor != nil {
		searchOpts = append(searchOpts, search.WithMonitor(options.monitor))
	}

	db.engine, err = search.NewEngine(db.stores.Vectors, db.fullText, db.stores.Catalog, db.provider.Embedder(), searchOpts...)
	return err
}

// Close releases the pipeline, the AI provider and every store.
func (db *Database) Close() error {
	if db.pipeline != nil {
		db.pipeline.Release()
	}

	var errs []error
	if db.provider != nil {
		if err := db.provider.Close(); err != nil {
			db.logger.Error("error closing AI provider", "err", err)
			errs = append(errs, err)
		}
	}
	if err := db.closeStores(); err != nil {
		db.logger.Error("error closing storage", "err", err)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (db *Database) closeStores() error {
	var errs []error
	if db.sqlite != nil {
		errs = append(errs, db.sqlite.Close())
	}
	errs = append(errs, db.stores.Close())
	return errors.Join(errs...)
}

func (db *Database) Meetings() storage.MeetingRepository {
	return db.stores.Meetings
}

func (db *Database) Catalog() storage.DocumentCatalog {
	return db.stores.Catalog
}

func (db *Database) Indexer() *ingestion.Indexer {
	return db.indexer
}

func (db *Database) Pipeline() *ingestion.Pipeline {
	return db.pipeline
}

func (db *Database) Engine() *search.Engine {
	return db.engine
}

// NewRebuilder creates a rebuilder over the meeting repository.
func (db *Database) NewRebuilder(cfg *reindex.Config, progress io.Writer) (*reindex.Rebuilder, error) {
	return reindex.NewRebuilder(db.stores.Meetings, db.stores.Catalog, db.pipeline, cfg, progress, db.logger)
}

// AddMeetings stores meetings upstream and indexes them.
// Meetings are stored even when indexing fails; the returned error then
// names the documents that a rebuild will pick up again.
func (db *Database) AddMeetings(ctx context.Context, meetings ...*core.Meeting) ([]*core.Meeting, error) {
	for _, m := range meetings {
		if err := core.ValidateMeeting(m); err != nil {
			return nil, err
		}
	}

	added, err := db.stores.Meetings.AddMeetings(ctx, meetings...)
	if err != nil {
		return nil, err
	}

	requests := make([]ingestion.IngestRequest, 0, len(added))
	for _, m := range added {
		req := ingestion.RequestFromMeeting(m)
		if req.Text == "" {
			// Nothing to search yet; drop any earlier version from the index
			if err := db.indexer.Remove(ctx, m.Id); err != nil {
				return added, err
			}
			continue
		}
		requests = append(requests, req)
	}

	if err := db.pipeline.Ingest(ctx, requests...); err != nil {
		return added, fmt.Errorf("failed to index meetings: %w", err)
	}
	return added, nil
}

// DeleteMeeting deletes the upstream meeting and removes its document
// from the indices.
func (db *Database) DeleteMeeting(ctx context.Context, id core.ID) error {
	if err := db.stores.Meetings.DeleteMeetings(ctx, id); err != nil {
		return err
	}
	return db.indexer.Remove(ctx, id)
}

// Search runs a hybrid search.
func (db *Database) Search(ctx context.Context, query core.Query, topK int) ([]*core.RankedResult, error) {
	return db.engine.Search(ctx, query, topK)
}

// Stats counts the entries of each store.
type Stats struct {
	Meetings  int
	Documents int
	Vectors   int
	FullText  int
	Languages map[string]int
}

// Stats returns entry counts per store and the language distribution of
// indexed documents.
func (db *Database) Stats(ctx context.Context) (*Stats, error) {
	var stats Stats
	var err error

	if stats.Meetings, err = db.stores.Meetings.Count(ctx); err != nil {
		return nil, fmt.Errorf("failed to count meetings: %w", err)
	}
	if stats.Documents, err = db.stores.Catalog.Count(ctx); err != nil {
		return nil, fmt.Errorf("failed to count documents: %w", err)
	}
	if stats.Vectors, err = db.stores.Vectors.Count(ctx); err != nil {
		return nil, fmt.Errorf("failed to count vectors: %w", err)
	}
	if stats.FullText, err = db.fullText.Count(ctx); err != nil {
		return nil, fmt.Errorf("failed to count full-text entries: %w", err)
	}
	if stats.Languages, err = db.stores.Catalog.LanguageCounts(ctx); err != nil {
		return nil, fmt.Errorf("failed to count languages: %w", err)
	}
	return &stats, nil
}
