package badger

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/minutes/core"
	"github.com/poiesic/minutes/storage"
)

// Catalog implements storage.DocumentCatalog for BadgerDB.
type Catalog struct {
	backend *Backend
	locks   stripedLock
}

var _ storage.DocumentCatalog = (*Catalog)(nil)

// NewCatalog creates a Catalog.
func NewCatalog(backend *Backend) (*Catalog, error) {
	if backend == nil {
		return nil, storage.ErrBackendRequired
	}
	return &Catalog{backend: backend}, nil
}

// Close is a no-op; the backend owns the database.
func (c *Catalog) Close() error {
	return nil
}

// Put stores doc, preserving CreatedAt of an existing entry.
// A new entry keeps a caller-supplied CreatedAt and defaults to now.
func (c *Catalog) Put(ctx context.Context, doc *core.Document) (*core.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	unlock := c.locks.lock(doc.Id)
	defer unlock()

	err := c.backend.WithTx(func(tx *badger.Txn) error {
		key := makeCatalogKey(doc.Id)
		data, err := readItem(tx, key)
		if err != nil {
			return err
		}

		now := storage.Timestamp(time.Now())
		doc.CreatedAt = storage.Timestamp(doc.CreatedAt)
		if doc.CreatedAt.IsZero() {
			doc.CreatedAt = now
		}
		if data != nil {
			old, err := storage.UnmarshalDocument(data)
			if err != nil {
				return err
			}
			doc.CreatedAt = old.CreatedAt
		}
		doc.UpdatedAt = now
		doc.ContentHash = core.ContentHash(doc.Text)

		if err := tx.Set(key, storage.MarshalDocument(doc)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Get retrieves a document by id.
func (c *Catalog) Get(ctx context.Context, id core.ID) (*core.Document, error) {
	var doc *core.Document
	err := c.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		doc, err = readDocument(tx, id)
		if err != nil {
			return err
		}
		if doc == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return doc, err
}

// GetMany retrieves the documents that exist among ids, in the order given.
func (c *Catalog) GetMany(ctx context.Context, ids ...core.ID) ([]*core.Document, error) {
	var result []*core.Document
	err := c.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			doc, err := readDocument(tx, id)
			if err != nil {
				return err
			}
			if doc != nil {
				result = append(result, doc)
			}
		}
		return nil
	}, false)
	return result, err
}

// Delete removes the entry for id. Deleting an absent id is a no-op.
func (c *Catalog) Delete(ctx context.Context, id core.ID) error {
	unlock := c.locks.lock(id)
	defer unlock()

	return c.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Delete(makeCatalogKey(id)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// IDs returns the ids of all cataloged documents in ascending order.
func (c *Catalog) IDs(ctx context.Context) ([]core.ID, error) {
	var ids []core.ID
	err := c.backend.WithTx(func(tx *badger.Txn) error {
		ids = collectIDs(tx, []byte(catalogDocPrefix))
		return nil
	}, false)
	return ids, err
}

// Count returns the number of cataloged documents.
func (c *Catalog) Count(ctx context.Context) (int, error) {
	var count int
	err := c.backend.WithTx(func(tx *badger.Txn) error {
		count = countKeys(tx, []byte(catalogDocPrefix))
		return nil
	}, false)
	return count, err
}

// LanguageCounts returns the number of documents per language tag.
// Documents without a language are counted under "".
func (c *Catalog) LanguageCounts(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int)
	err := c.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(catalogDocPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			err := iter.Item().Value(func(val []byte) error {
				doc, err := storage.UnmarshalDocument(val)
				if err != nil {
					return err
				}
				counts[doc.Language]++
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)
	return counts, err
}

func readDocument(tx *badger.Txn, id core.ID) (*core.Document, error) {
	data, err := readItem(tx, makeCatalogKey(id))
	if err != nil || data == nil {
		return nil, err
	}
	return storage.UnmarshalDocument(data)
}
