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


// Package reindex rebuilds the search indices from the upstream meeting
// repository.
//
// A rebuild walks every stored meeting in batches, skips meetings whose
// indexed content is unchanged, embeds and indexes the rest through an
// ingestion.Pipeline, evicts documents whose meeting no longer exists and
// finally reconciles both indices with the catalog. Progress is written to
// an io.Writer as the rebuild runs.
package reindex
