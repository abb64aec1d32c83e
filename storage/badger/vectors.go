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


package badger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/minutes/core"
	"github.com/poiesic/minutes/storage"
)

// VectorStore implements storage.VectorStore for BadgerDB.
// Queries are exact: every entry is scored against the query vector.
type VectorStore struct {
	backend   *Backend
	dimension int
	seq       *badger.Sequence
	locks     stripedLock
	logger    *slog.Logger
}

var _ storage.VectorStore = (*VectorStore)(nil)

// NewVectorStore creates a VectorStore accepting embeddings of the given dimension.
// The dimension is recorded on first use; opening an existing store with a
// different dimension fails with core.ErrInvalidDimension.
func NewVectorStore(backend *Backend, dimension int) (*VectorStore, error) {
	if backend == nil {
		return nil, storage.ErrBackendRequired
	}
	if dimension <= 0 {
		return nil, fmt.Errorf("%w: dimension must be positive, got %d", core.ErrInvalidDimension, dimension)
	}

	err := backend.WithTx(func(tx *badger.Txn) error {
		data, err := readItem(tx, []byte(vectorDimensionKey))
		if err != nil {
			return err
		}
		if data != nil {
			stored, err := storage.UnmarshalID(data)
			if err != nil {
				return err
			}
			if int(stored) != dimension {
				return fmt.Errorf("%w: store was created with dimension %d, opened with %d",
					core.ErrInvalidDimension, stored, dimension)
			}
			return nil
		}
		if err := tx.Set([]byte(vectorDimensionKey), storage.MarshalID(core.ID(dimension))); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}

	seq, err := backend.GetSequence(vectorSeqName)
	if err != nil {
		return nil, err
	}

	return &VectorStore{
		backend:   backend,
		dimension: dimension,
		seq:       seq,
		logger:    backend.logger.With("component", "vector_store"),
	}, nil
}

// Dimension returns the embedding length accepted by the store.
func (s *VectorStore) Dimension() int {
	return s.dimension
}

// Close releases the insertion sequence.
func (s *VectorStore) Close() error {
	return s.seq.Release()
}

// Upsert stores the embedding for id, replacing any existing entry.
func (s *VectorStore) Upsert(ctx context.Context, id core.ID, embedding []float32) error {
	if err := core.ValidateDimension(embedding, s.dimension); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	unlock := s.locks.lock(id)
	defer unlock()

	seq, err := nextSequence(s.seq)
	if err != nil {
		return err
	}

	entry := &storage.VectorEntry{Seq: seq, Vector: embedding}
	return s.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makeVectorKey(id), storage.MarshalVectorEntry(entry)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// Delete removes the entry for id. Deleting an absent id is a no-op.
func (s *VectorStore) Delete(ctx context.Context, id core.ID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	unlock := s.locks.lock(id)
	defer unlock()

	return s.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Delete(makeVectorKey(id)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// Get returns the stored embedding for id.
func (s *VectorStore) Get(ctx context.Context, id core.ID) ([]float32, error) {
	var vector []float32
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		data, err := readItem(tx, makeVectorKey(id))
		if err != nil {
			return err
		}
		if data == nil {
			return storage.ErrNotFound
		}
		entry, err := storage.UnmarshalVectorEntry(data)
		if err != nil {
			return err
		}
		vector = entry.Vector
		return nil
	}, false)
	return vector, err
}

// Query returns up to topK entries ordered by descending cosine similarity.
func (s *VectorStore) Query(ctx context.Context, vector []float32, topK int) ([]core.ScoredID, error) {
	if topK <= 0 {
		return []core.ScoredID{}, nil
	}
	if err := core.ValidateDimension(vector, s.dimension); err != nil {
		return nil, err
	}

	var candidates []storage.Candidate
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(vectorEntryPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			item := iter.Item()
			var entry *storage.VectorEntry
			err := item.Value(func(val []byte) error {
				var err error
				entry, err = storage.UnmarshalVectorEntry(val)
				return err
			})
			if err != nil {
				return err
			}

			candidates = append(candidates, storage.Candidate{
				Id:    idFromKey(item.Key()),
				Score: core.CosineSimilarity(vector, entry.Vector),
				Seq:   entry.Seq,
			})
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	if len(candidates) == 0 {
		return nil, core.ErrEmptyStore
	}

	s.logger.Debug("vector query", "candidates", len(candidates), "topK", topK)
	return storage.TopK(candidates, topK), nil
}

// Count returns the number of stored entries.
func (s *VectorStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		count = countKeys(tx, []byte(vectorEntryPrefix))
		return nil
	}, false)
	return count, err
}

// IDs returns the ids of all stored entries in ascending order.
func (s *VectorStore) IDs(ctx context.Context) ([]core.ID, error) {
	var ids []core.ID
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		ids = collectIDs(tx, []byte(vectorEntryPrefix))
		return nil
	}, false)
	return ids, err
}
