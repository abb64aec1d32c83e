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


// Package sqlite provides a FullTextIndex stored in a SQLite database.
//
// It uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO. Tokenization and scoring are shared with the BadgerDB index through
// the lexical package, so both backends rank identically.
//
// # Schema
//
//   - fts_documents(doc_id, seq, length): one row per indexed document
//   - fts_postings(term, doc_id, tf): one row per distinct term per document
//
// # Thread Safety
//
// All operations are thread-safe. Writes run in transactions over a single
// connection, so writes to the same document are serialized.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/poiesic/minutes/core"
	"github.com/poiesic/minutes/lexical"
	"github.com/poiesic/minutes/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS fts_documents (
	doc_id INTEGER PRIMARY KEY,
	seq    INTEGER NOT NULL,
	length INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS fts_postings (
	term   TEXT    NOT NULL,
	doc_id INTEGER NOT NULL,
	tf     INTEGER NOT NULL,
	PRIMARY KEY (term, doc_id)
);
CREATE INDEX IF NOT EXISTS fts_postings_doc ON fts_postings(doc_id);
`

// FullTextIndex implements storage.FullTextIndex over SQLite.
type FullTextIndex struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

var _ storage.FullTextIndex = (*FullTextIndex)(nil)

// Open opens or creates the index database at path.
// The parent directory is created if it doesn't exist.
func Open(path string) (*FullTextIndex, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	// WAL mode for concurrent readers
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &FullTextIndex{
		db:     db,
		path:   path,
		logger: slog.Default().With("component", "sqlite_fulltext_index"),
	}, nil
}

// Close closes the database connection.
func (x *FullTextIndex) Close() error {
	return x.db.Close()
}

// Path returns the database file path.
func (x *FullTextIndex) Path() string {
	return x.path
}

// Upsert tokenizes text and stores it for id, replacing any existing entry.
func (x *FullTextIndex) Upsert(ctx context.Context, id core.ID, text string) error {
	tokens := lexical.Tokenize(text)
	terms := lexical.TermFrequencies(tokens)

	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var seq int64
	if err := tx.QueryRowContext(ctx, "SELECT COALESCE(MAX(seq), 0) + 1 FROM fts_documents").Scan(&seq); err != nil {
		return fmt.Errorf("reading sequence: %w", err)
	}

	docID := int64(id)
	if _, err := tx.ExecContext(ctx, "DELETE FROM fts_postings WHERE doc_id = ?", docID); err != nil {
		return fmt.Errorf("deleting postings: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO fts_documents (doc_id, seq, length) VALUES (?, ?, ?)
		ON CONFLICT(doc_id) DO UPDATE SET seq = excluded.seq, length = excluded.length
	`, docID, seq, len(tokens)); err != nil {
		return fmt.Errorf("saving document: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO fts_postings (term, doc_id, tf) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for term, tf := range terms {
		if _, err := stmt.ExecContext(ctx, term, docID, tf); err != nil {
			return fmt.Errorf("saving posting: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Delete removes the entry for id. Deleting an absent id is a no-op.
func (x *FullTextIndex) Delete(ctx context.Context, id core.ID) error {
	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM fts_postings WHERE doc_id = ?", int64(id)); err != nil {
		return fmt.Errorf("deleting postings: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM fts_documents WHERE doc_id = ?", int64(id)); err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Query returns up to topK documents ranked by sum of tf·idf over the
// distinct query terms.
func (x *FullTextIndex) Query(ctx context.Context, text string, topK int) ([]core.ScoredID, error) {
	terms := lexical.QueryTerms(text)
	if topK <= 0 || len(terms) == 0 {
		return []core.ScoredID{}, nil
	}

	// One read transaction so concurrent writes are seen whole or not at all
	tx, err := x.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	n, err := count(ctx, tx)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return []core.ScoredID{}, nil
	}

	scores := make(map[core.ID]*storage.Candidate)
	for _, term := range terms {
		postings, err := readPostings(ctx, tx, term)
		if err != nil {
			return nil, err
		}
		idf := lexical.IDF(n, len(postings))
		for _, p := range postings {
			c, ok := scores[p.Id]
			if !ok {
				c = &storage.Candidate{Id: p.Id, Seq: p.Seq}
				scores[p.Id] = c
			}
			c.Score += p.Score * idf
		}
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
	return count(ctx, x.db)
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func count(ctx context.Context, q queryer) (int, error) {
	var n int
	if err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM fts_documents").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting documents: %w", err)
	}
	return n, nil
}

// IDs returns the ids of all indexed documents in ascending order.
func (x *FullTextIndex) IDs(ctx context.Context) ([]core.ID, error) {
	rows, err := x.db.QueryContext(ctx, "SELECT doc_id FROM fts_documents")
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	ids := []core.ID{}
	for rows.Next() {
		var docID int64
		if err := rows.Scan(&docID); err != nil {
			return nil, err
		}
		ids = append(ids, core.ID(uint64(docID)))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	slices.Sort(ids)
	return ids, nil
}

// readPostings returns every posting of term as candidates whose Score is the
// raw term frequency.
func readPostings(ctx context.Context, q queryer, term string) ([]storage.Candidate, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT p.doc_id, p.tf, d.seq
		FROM fts_postings p
		JOIN fts_documents d ON d.doc_id = p.doc_id
		WHERE p.term = ?
	`, term)
	if err != nil {
		return nil, fmt.Errorf("reading postings: %w", err)
	}
	defer rows.Close()

	var postings []storage.Candidate
	for rows.Next() {
		var docID, tf, seq int64
		if err := rows.Scan(&docID, &tf, &seq); err != nil {
			return nil, err
		}
		postings = append(postings, storage.Candidate{
			Id:    core.ID(uint64(docID)),
			Score: float64(tf),
			Seq:   uint64(seq),
		})
	}
	return postings, rows.Err()
}
