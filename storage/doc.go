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


// Package storage defines the storage ports of the meeting index.
//
// The interfaces decouple the search and ingestion logic from the storage
// engines behind them:
//
//   - VectorStore: one embedding per document, cosine nearest-neighbor queries
//   - FullTextIndex: tokenized text per document, TF-IDF keyword queries
//   - DocumentCatalog: document metadata; a document is searchable only while cataloged
//   - MeetingRepository: upstream meeting records the indices are rebuilt from
//
// The badger subpackage implements all four over a single BadgerDB instance.
// The sqlite subpackage provides an alternate FullTextIndex.
//
// This package also holds the pieces shared by every backend: the record
// codecs (mus-go serializers) and TopK ranking with insertion-order tie-breaks.
//
// # Thread Safety
//
// All implementations must be thread-safe and support concurrent access
// from multiple goroutines.
//
// # Context Support
//
// All methods accept context.Context for cancellation. Pass
// context.Background() for operations without specific timeout requirements.
package storage
