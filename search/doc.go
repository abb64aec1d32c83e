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


// Package search provides hybrid keyword and semantic search over indexed meetings.
//
// The Engine runs a multi-stage search:
//   - The query text is optionally translated to the corpus's canonical
//     language for the keyword query
//   - The full-text index and the vector store are queried concurrently,
//     each bounded by a timeout, with oversampling
//   - Each result list is min-max normalized and the two are blended with
//     the weight alpha
//   - Results are ordered by combined score, then recency, then id
//
// When one index fails or times out the engine answers from the other and
// tags results accordingly. Only when both fail does Search return
// core.ErrSearchUnavailable.
package search
