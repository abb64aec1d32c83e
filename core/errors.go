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


package core

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors
var (
	// ErrInvalidDimension indicates an embedding whose length does not match
	// the vector store's dimensionality. It is a caller error and is never retried.
	ErrInvalidDimension = errors.New("invalid embedding dimension")

	// ErrProvider indicates an embedding or translation call failed.
	ErrProvider = errors.New("provider error")

	// ErrPartialIndexFailure indicates one of the two index writes failed after retries.
	ErrPartialIndexFailure = errors.New("partial index failure")

	// ErrSearchUnavailable indicates both sub-indices failed during a search.
	ErrSearchUnavailable = errors.New("search unavailable")

	// ErrEmptyStore indicates a vector query against a store with no entries.
	// Callers treat it as "no results".
	ErrEmptyStore = errors.New("store is empty")

	// ErrEmptyQuery indicates a search with blank query text.
	ErrEmptyQuery = errors.New("query cannot be empty")

	// ErrInvalidDocument indicates a Document failed validation.
	ErrInvalidDocument = errors.New("invalid document")

	// ErrInvalidMeeting indicates a Meeting failed validation.
	ErrInvalidMeeting = errors.New("invalid meeting")

	// ErrEmptyContent indicates the text of a document is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrInvalidID indicates a zero ID where a stable ID is required.
	ErrInvalidID = errors.New("id cannot be zero")
)

// IndexHalf names one side of a two-index write.
type IndexHalf int

const (
	// HalfVector is the vector store write.
	HalfVector IndexHalf = 1 << iota
	// HalfFullText is the full-text index write.
	HalfFullText
)

// String returns a readable name for the failed half or halves.
func (h IndexHalf) String() string {
	var names []string
	if h&HalfVector != 0 {
		names = append(names, "vector")
	}
	if h&HalfFullText != 0 {
		names = append(names, "fulltext")
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "+")
}

// PartialIndexFailureError reports which index write failed for a document.
type PartialIndexFailureError struct {
	DocumentId ID
	Failed     IndexHalf
	Err        error
}

func (e *PartialIndexFailureError) Error() string {
	return fmt.Sprintf("%s: document %d: %s write failed: %v", ErrPartialIndexFailure, e.DocumentId, e.Failed, e.Err)
}

// Is makes errors.Is(err, ErrPartialIndexFailure) match.
func (e *PartialIndexFailureError) Is(target error) bool {
	return target == ErrPartialIndexFailure
}

func (e *PartialIndexFailureError) Unwrap() error {
	return e.Err
}

// IsStructural reports whether err is a caller error that must not be retried.
func IsStructural(err error) bool {
	return errors.Is(err, ErrInvalidDimension) ||
		errors.Is(err, ErrInvalidDocument) ||
		errors.Is(err, ErrEmptyQuery)
}
