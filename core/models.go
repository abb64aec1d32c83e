package core

//go:generate go run ../cmd/musgen

import (
	"encoding/binary"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// Document IDs are the stable IDs of the meetings they index.
type ID uint64

// ContentHash computes a 64-bit BLAKE2b digest of text.
// Identical text always produces the identical hash, which lets rebuilds
// skip documents whose content has not changed.
func ContentHash(text string) uint64 {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return binary.LittleEndian.Uint64(sum)
}

// Source identifies which sub-queries contributed to a ranked result.
type Source int

const (
	// SourceKeyword marks results contributed by the full-text index only.
	SourceKeyword Source = iota + 1
	// SourceSemantic marks results contributed by the vector store only.
	SourceSemantic
	// SourceBoth marks results contributed by both indices.
	SourceBoth
)

// String returns the lowercase name of the source.
func (s Source) String() string {
	switch s {
	case SourceKeyword:
		return "keyword"
	case SourceSemantic:
		return "semantic"
	case SourceBoth:
		return "both"
	default:
		return "unknown"
	}
}

// Document is one indexed meeting.
type Document struct {
	Id          ID
	Text        string    // Transcript followed by summary
	Language    string    // BCP 47 language tag, e.g. "en"
	Vector      []float32 // Embedding, nil if the document was not embedded
	ContentHash uint64    // ContentHash(Text), populated on indexing
	CreatedAt   time.Time // When the document was first indexed
	UpdatedAt   time.Time // When the document was last re-indexed
}

// NewDocument builds a Document from the ingestion hook's arguments.
func NewDocument(id ID, text string, embedding []float32, language string) *Document {
	return &Document{
		Id:       id,
		Text:     text,
		Language: language,
		Vector:   embedding,
	}
}

// Query is a single search request. It is never persisted.
type Query struct {
	Text string
	// LanguageHint is the BCP 47 tag of the query's language, if known.
	LanguageHint string
	// CrossLanguage requests translation to the canonical language even
	// without a language hint.
	CrossLanguage bool
}

// ScoredID is a single hit from one of the indices.
type ScoredID struct {
	Id    ID
	Score float64
}

// RankedResult is a merged hybrid search result.
type RankedResult struct {
	DocumentId    ID
	Score         float64 // Combined score
	Source        Source
	KeywordScore  float64 // Normalized keyword contribution in [0,1]
	SemanticScore float64 // Normalized semantic contribution in [0,1]
	CreatedAt     time.Time
}

// Meeting is the upstream record a Document is built from.
type Meeting struct {
	Id         ID
	Title      string
	Transcript string
	Summary    string
	Decisions  []string
	Language   string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// IndexText returns the text indexed for the meeting: transcript then summary.
func (m *Meeting) IndexText() string {
	parts := make([]string, 0, 2)
	if t := strings.TrimSpace(m.Transcript); t != "" {
		parts = append(parts, t)
	}
	if s := strings.TrimSpace(m.Summary); s != "" {
		parts = append(parts, s)
	}
	return strings.Join(parts, "\n\n")
}
