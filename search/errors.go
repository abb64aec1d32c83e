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

import "errors"

var (
	// ErrVectorStoreRequired is returned when a vector store is not provided.
	ErrVectorStoreRequired = errors.New("vector store required")

	// ErrFullTextIndexRequired is returned when a full-text index is not provided.
	ErrFullTextIndexRequired = errors.New("full-text index required")

	// ErrCatalogRequired is returned when a document catalog is not provided.
	ErrCatalogRequired = errors.New("document catalog required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrInvalidAlpha is returned for a semantic weight outside [0, 1].
	ErrInvalidAlpha = errors.New("alpha must be between 0 and 1")

	// ErrInvalidOversample is returned for an oversampling factor below 1.
	ErrInvalidOversample = errors.New("oversample must be at least 1")

	// ErrInvalidTimeout is returned for a non-positive sub-query timeout.
	ErrInvalidTimeout = errors.New("timeout must be positive")

	// ErrInvalidLanguageCacheTTL is returned for a negative language cache TTL.
	ErrInvalidLanguageCacheTTL = errors.New("language cache TTL must not be negative")
)
