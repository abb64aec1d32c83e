package storage

import (
	"context"
	"time"

	"github.com/poiesic/minutes/core"
)

// VectorStore persists one embedding per document id and answers
// nearest-neighbor queries by cosine similarity.
// Implementations must be thread-safe and support concurrent access.
type VectorStore interface {
	// Dimension returns the fixed embedding length accepted by the store.
	Dimension() int

	// Upsert stores the embedding for id, replacing any existing entry.
	// Returns core.ErrInvalidDimension if len(embedding) != Dimension().
	// A replaced entry takes a fresh insertion sequence.
	Upsert(ctx context.Context, id core.ID, embedding []float32) error

	// Delete removes the entry for id. Deleting an absent id is a no-op.
	Delete(ctx context.Context, id core.ID) error

	// Query returns up to topK entries ordered by descending cosine similarity.
	// Ties are broken by insertion order, earlier first.
	// Returns core.ErrEmptyStore if topK > 0 and the store has no entries.
	// topK <= 0 returns an empty slice.
	Query(ctx context.Context, vector []float32, topK int) ([]core.ScoredID, error)

	// Get returns the stored embedding for id.
	// Returns ErrNotFound if the id has no entry.
	Get(ctx context.Context, id core.ID) ([]float32, error)

	// Count returns the number of stored entries.
	Count(ctx context.Context) (int, error)

	// IDs returns the ids of all stored entries.
	IDs(ctx context.Context) ([]core.ID, error)

	// Close releases resources held by the store.
	Close() error
}

// FullTextIndex indexes tokenized text per document id and answers
// keyword queries ranked by TF-IDF.
// Implementations must be thread-safe and support concurrent access.
type FullTextIndex interface {
	// Upsert tokenizes text and stores it for id, replacing any existing entry.
	Upsert(ctx context.Context, id core.ID, text string) error

	// Delete removes the entry for id. Deleting an absent id is a no-op.
	Delete(ctx context.Context, id core.ID) error

	// Query returns up to topK documents matching at least one query term,
	// ordered by descending score. Ties are broken by insertion order.
	// An empty index or a query with no tokens returns an empty slice.
	Query(ctx context.Context, text string, topK int) ([]core.ScoredID, error)

	// Count returns the number of indexed documents.
	Count(ctx context.Context) (int, error)

	// IDs returns the ids of all indexed documents.
	IDs(ctx context.Context) ([]core.ID, error)

	// Close releases resources held by the index.
	Close() error
}

// DocumentCatalog holds the metadata of every indexed document.
// A document is searchable only while it has a catalog entry.
type DocumentCatalog interface {
	// Put stores doc, preserving CreatedAt of an existing entry and
	// refreshing UpdatedAt. A new entry keeps a non-zero CreatedAt.
	// The vector is not stored.
	Put(ctx context.Context, doc *core.Document) (*core.Document, error)

	// Get retrieves a document by id.
	// Returns ErrNotFound if the document doesn't exist.
	Get(ctx context.Context, id core.ID) (*core.Document, error)

	// GetMany retrieves documents by id.
	// Returns only the documents that exist (no error for missing ids).
	GetMany(ctx context.Context, ids ...core.ID) ([]*core.Document, error)

	// Delete removes the entry for id. Deleting an absent id is a no-op.
	Delete(ctx context.Context, id core.ID) error

	// IDs returns the ids of all cataloged documents.
	IDs(ctx context.Context) ([]core.ID, error)

	// Count returns the number of cataloged documents.
	Count(ctx context.Context) (int, error)

	// LanguageCounts returns the number of documents per language tag.
	LanguageCounts(ctx context.Context) (map[string]int, error)

	// Close releases resources held by the catalog.
	Close() error
}

// MeetingRepository provides operations for managing upstream meeting records.
type MeetingRepository interface {
	// AddMeetings adds one or more meetings to storage.
	// For meetings with ID=0, generates new IDs from sequence.
	// Sets CreatedAt if not already set and refreshes UpdatedAt.
	// Returns the meetings with generated IDs and timestamps populated.
	AddMeetings(ctx context.Context, meetings ...*core.Meeting) ([]*core.Meeting, error)

	// GetMeeting retrieves a single meeting by ID.
	// Returns ErrNotFound if the meeting doesn't exist.
	GetMeeting(ctx context.Context, id core.ID) (*core.Meeting, error)

	// GetMeetings retrieves multiple meetings by their IDs.
	// Returns only the meetings that exist (no error for missing meetings).
	GetMeetings(ctx context.Context, ids ...core.ID) ([]*core.Meeting, error)

	// DeleteMeetings removes meetings by their IDs.
	// Returns ErrNotFound if any meeting doesn't exist.
	DeleteMeetings(ctx context.Context, ids ...core.ID) error

	// GetMeetingsByDateRange retrieves meetings where start <= CreatedAt < end,
	// ordered by CreatedAt.
	GetMeetingsByDateRange(ctx context.Context, start, end time.Time) ([]*core.Meeting, error)

	// ForEach calls fn with batches of up to batchSize meetings in id order.
	// Iteration stops at the first error returned by fn.
	ForEach(ctx context.Context, batchSize int, fn func(batch []*core.Meeting) error) error

	// Count returns the number of stored meetings.
	Count(ctx context.Context) (int, error)

	// Close releases resources held by the repository.
	Close() error
}
