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
	"log/slog"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/minutes/core"
	"github.com/poiesic/minutes/lexical"
	"github.com/poiesic/minutes/storage"
)

// FullTextIndex implements storage.FullTextIndex for BadgerDB.
//
// Each document has an entry holding its term frequencies, and each
// (term, document) pair has a posting key so a query only reads the
// postings of its own terms.
type FullTextIndex struct {
	backend *Backend
	seq     *badger.Sequence
	locks   stripedLock
	logger  *slog.Logger
}

var _ storage.FullTextIndex = (*FullTextIndex)(nil)

// NewFullTextIndex creates a FullTextIndex.
func NewFullTextIndex(backend *Backend) (*FullTextIndex, error) {
	if backend == nil {
		return nil, storage.ErrBackendRequired
	}

	seq, err := backend.GetSequence(textSeqName)
	if err != nil {
		return nil, err
	}

	return &FullTextIndex{
		backend: backend,
		seq:     seq,
		logger:  backend.logger.With("component", "fulltext_index"),
	}, nil
}

// Close releases the insertion sequence.
func (x *FullTextIndex) Close() error {
	return x.seq.Release()
}

// Upsert tokenizes text and stores it for id, replacing any existing entry.
func (x *FullTextIndex) Upsert(ctx context.Context, id core.ID, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tokens := lexical.Tokenize(text)
	entry := &storage.TextEntry{
		Length: uint32(len(tokens)),
		Terms:  lexical.TermFrequencies(tokens),
	}

	unlock := x.locks.lock(id)
	defer unlock()

	seq, err := nextSequence(x.seq)
	if err != nil {
		return err
	}
	entry.Seq = seq

	return x.backend.WithTx(func(tx *badger.Txn) error {
		if err := x.deletePostings(tx, id); err != nil {
			return err
		}
		for term, tf := range entry.Terms {
			posting := storage.MarshalPosting(storage.Posting{TF: tf, Seq: seq})
			if err := tx.Set(makePostingKey(term, id), posting); err != nil {
				return err
			}
		}
		if err := tx.Set(makeTextDocKey(id), storage.MarshalTextEntry(entry)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// Delete removes the entry for id. Deleting an absent id is a no-op.
func (x *FullTextIndex) Delete(ctx context.Context, id core.ID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	unlock := x.locks.lock(id)
	defer unlock()

	return x.backend.WithTx(func(tx *badger.Txn) error {
		if err := x.deletePostings(tx, id); err != nil {
			return err
		}
		if err := tx.Delete(makeTextDocKey(id)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// Query returns up to topK documents ranked by sum of tf·idf over the
// distinct query terms.
func (x *FullTextIndex) Query(ctx context.Context, text string, topK int) ([]core.ScoredID, error) {
	terms := lexical.QueryTerms(text)
	if topK <= 0 || len(terms) == 0 {
		return []core.ScoredID{}, nil
	}

	scores := make(map[core.ID]*storage.Candidate)
	err := x.backend.WithTx(func(tx *badger.Txn) error {
		n := countKeys(tx, []byte(textDocPrefix))
		if n == 0 {
			return nil
		}

		for _, term := range terms {
			if err := ctx.Err(); err != nil {
				return err
			}

			postings, err := readPostings(tx, term)
			if err != nil {
				return err
			}
			idf := lexical.IDF(n, len(postings))
			for id, p := range postings {
				c, ok := scores[id]
				if !ok {
					c = &storage.Candidate{Id: id, Seq: p.Seq}
					scores[id] = c
				}
				c.Score += float64(p.TF) * idf
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	candidates := make([]storage.Candidate, 0, len(scores))
	for _, c := range scores {
		candidates = append(candidates, *c)
	}
	x.logger.Debug("keyword query", "terms", len(terms), "candidates", len(candidates), "topK", topK)
	return storage.TopK(candidates, topK), nil
}

// Count returns the number of indexed documents.
func (x *FullTextIndex) Count(ctx context.Context) (int, error) {
	var count int
	err := x.backend.WithTx(func(tx *badger.Txn) error {
		count = countKeys(tx, []byte(textDocPrefix))
		return nil
	}, false)
	return count, err
}

// IDs returns the ids of all indexed documents in ascending order.
func (x *FullTextIndex) IDs(ctx context.Context) ([]core.ID, error) {
	var ids []core.ID
	err := x.backend.WithTx(func(tx *badger.Txn) error {
		ids = collectIDs(tx, []byte(textDocPrefix))
		return nil
	}, false)
	return ids, err
}

// deletePostings removes the postings of the existing entry for id, if any.
func (x *FullTextIndex) deletePostings(tx *badger.Txn, id core.ID) error {
	data, err := readItem(tx, makeTextDocKey(id))
	if err != nil || data == nil {
		return err
	}
	old, err := storage.UnmarshalTextEntry(data)
	if err != nil {
		return err
	}
	for term := range old.Terms {
		if err := tx.Delete(makePostingKey(term, id)); err != nil {
			return err
		}
	}
	return nil
}

// readPostings returns every posting of term keyed by document id.
func readPostings(tx *badger.Txn, term string) (map[core.ID]storage.Posting, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = makeTermPrefix(term)
	iter := tx.NewIterator(opts)
	defer iter.Close()

	postings := make(map[core.ID]storage.Posting)
	for iter.Rewind(); iter.Valid(); iter.Next() {
		item := iter.Item()
		err := item.Value(func(val []byte) error {
			p, err := storage.UnmarshalPosting(val)
			if err != nil {
				return err
			}
			postings[idFromKey(item.Key())] = p
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return postings, nil
}
