package reindex

import "errors"

var (
	// ErrMeetingsRequired is returned when no meeting repository is given.
	ErrMeetingsRequired = errors.New("meeting repository is required")

	// ErrCatalogRequired is returned when no document catalog is given.
	ErrCatalogRequired = errors.New("document catalog is required")

	// ErrPipelineRequired is returned when no ingestion pipeline is given.
	ErrPipelineRequired = errors.New("ingestion pipeline is required")
)
