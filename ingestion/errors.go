package ingestion

import "errors"

var (
	// ErrVectorStoreRequired is returned when a vector store is not provided.
	ErrVectorStoreRequired = errors.New("vector store required")

	// ErrFullTextIndexRequired is returned when a full-text index is not provided.
	ErrFullTextIndexRequired = errors.New("full-text index required")

	// ErrCatalogRequired is returned when a document catalog is not provided.
	ErrCatalogRequired = errors.New("document catalog required")

	// ErrIndexerRequired is returned when an indexer is not provided.
	ErrIndexerRequired = errors.New("indexer required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")
)
