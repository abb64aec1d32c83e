package badger

import "errors"

// Stores bundles every BadgerDB-backed store sharing one Backend.
type Stores struct {
	Backend  *Backend
	Vectors  *VectorStore
	FullText *FullTextIndex
	Catalog  *Catalog
	Meetings *MeetingRepository
}

// OpenStores creates all stores over backend. The vector store accepts
// embeddings of the given dimension.
func OpenStores(backend *Backend, dimension int) (*Stores, error) {
	vectors, err := NewVectorStore(backend, dimension)
	if err != nil {
		return nil, err
	}

	fullText, err := NewFullTextIndex(backend)
	if err != nil {
		vectors.Close()
		return nil, err
	}

	catalog, err := NewCatalog(backend)
	if err != nil {
		vectors.Close()
		fullText.Close()
		return nil, err
	}

	meetings, err := NewMeetingRepository(backend)
	if err != nil {
		vectors.Close()
		fullText.Close()
		return nil, err
	}

	return &Stores{
		Backend:  backend,
		Vectors:  vectors,
		FullText: fullText,
		Catalog:  catalog,
		Meetings: meetings,
	}, nil
}

// Close releases every store, then closes the backend.
func (s *Stores) Close() error {
	return errors.Join(
		s.Vectors.Close(),
		s.FullText.Close(),
		s.Catalog.Close(),
		s.Meetings.Close(),
		s.Backend.Close(),
	)
}
