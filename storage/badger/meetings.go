package badger

import (
	"context"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/minutes/core"
	"github.com/poiesic/minutes/storage"
)

const defaultBatchSize = 100

// MeetingRepository implements storage.MeetingRepository for BadgerDB.
type MeetingRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.MeetingRepository = (*MeetingRepository)(nil)

// NewMeetingRepository creates a new MeetingRepository.
func NewMeetingRepository(backend *Backend) (*MeetingRepository, error) {
	if backend == nil {
		return nil, storage.ErrBackendRequired
	}

	idSeq, err := backend.GetSequence(meetingIDSeq)
	if err != nil {
		return nil, err
	}

	return &MeetingRepository{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// Close releases the ID sequence.
func (r *MeetingRepository) Close() error {
	return r.idSeq.Release()
}

// AddMeetings adds one or more meetings to storage.
// Meetings with a non-zero ID replace the stored meeting with that ID.
func (r *MeetingRepository) AddMeetings(ctx context.Context, meetings ...*core.Meeting) ([]*core.Meeting, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		now := storage.Timestamp(time.Now())
		for _, meeting := range meetings {
			if meeting.Id == 0 {
				nextID, err := nextSequence(r.idSeq)
				if err != nil {
					return err
				}
				meeting.Id = core.ID(nextID)
			}

			key := makeMeetingKey(meeting.Id)
			old, err := r.readMeeting(tx, key)
			if err != nil {
				return err
			}
			if old != nil {
				// Drop the old date index entry
				if err := tx.Delete(makeMeetingDateKey(old.CreatedAt, old.Id)); err != nil {
					return err
				}
			}

			meeting.CreatedAt = storage.Timestamp(meeting.CreatedAt)
			if meeting.CreatedAt.IsZero() {
				meeting.CreatedAt = now
			}
			meeting.UpdatedAt = now

			if err := tx.Set(key, storage.MarshalMeeting(meeting)); err != nil {
				return err
			}

			dateKey := makeMeetingDateKey(meeting.CreatedAt, meeting.Id)
			if err := tx.Set(dateKey, storage.MarshalID(meeting.Id)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)

	return meetings, err
}

// DeleteMeetings removes meetings by their IDs.
func (r *MeetingRepository) DeleteMeetings(ctx context.Context, ids ...core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			key := makeMeetingKey(id)

			meeting, err := r.readMeeting(tx, key)
			if err != nil {
				return err
			}
			if meeting == nil {
				return storage.ErrNotFound
			}

			if err := tx.Delete(makeMeetingDateKey(meeting.CreatedAt, meeting.Id)); err != nil {
				return err
			}
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// GetMeeting retrieves a single meeting by ID.
func (r *MeetingRepository) GetMeeting(ctx context.Context, id core.ID) (*core.Meeting, error) {
	var result *core.Meeting
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = r.readMeeting(tx, makeMeetingKey(id))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// GetMeetings retrieves multiple meetings by their IDs.
func (r *MeetingRepository) GetMeetings(ctx context.Context, ids ...core.ID) ([]*core.Meeting, error) {
	var result []*core.Meeting
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			meeting, err := r.readMeeting(tx, makeMeetingKey(id))
			if err != nil {
				return err
			}
			if meeting != nil {
				result = append(result, meeting)
			}
		}
		return nil
	}, false)
	return result, err
}

// GetMeetingsByDateRange retrieves meetings within a time range.
func (r *MeetingRepository) GetMeetingsByDateRange(ctx context.Context, start, end time.Time) ([]*core.Meeting, error) {
	if start.Equal(end) {
		end = start.Add(1 * time.Microsecond)
	}

	var results []*core.Meeting
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		startKey := makePartialMeetingDateKey(start)
		endKey := makePartialMeetingDateKey(end)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(meetingDatePrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Seek(startKey); iter.Valid(); iter.Next() {
			key := iter.Item().Key()
			if slices.Compare(key, endKey) >= 0 {
				break
			}

			// Read the ID from the index
			var meetingID core.ID
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				meetingID, err = storage.UnmarshalID(val)
				return err
			}); err != nil {
				return err
			}

			meeting, err := r.readMeeting(tx, makeMeetingKey(meetingID))
			if err != nil {
				return err
			}
			if meeting != nil {
				results = append(results, meeting)
			}
		}
		return nil
	}, false)

	return results, err
}

// ForEach calls fn with batches of up to batchSize meetings in id order.
// Each batch is read in its own transaction so fn may write to the database.
func (r *MeetingRepository) ForEach(ctx context.Context, batchSize int, fn func(batch []*core.Meeting) error) error {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	startKey := []byte(meetingRecordPrefix)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		batch, nextKey, err := r.readBatch(startKey, batchSize)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}
		if err := fn(batch); err != nil {
			return err
		}
		if nextKey == nil {
			return nil
		}
		startKey = nextKey
	}
}

// Count returns the number of stored meetings.
func (r *MeetingRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		count = countKeys(tx, []byte(meetingRecordPrefix))
		return nil
	}, false)
	return count, err
}

// readBatch reads up to limit meetings starting at startKey and returns the
// key to resume from, or nil when the prefix is exhausted.
func (r *MeetingRepository) readBatch(startKey []byte, limit int) ([]*core.Meeting, []byte, error) {
	var batch []*core.Meeting
	var nextKey []byte
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(meetingRecordPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Seek(startKey); iter.Valid(); iter.Next() {
			item := iter.Item()
			if len(batch) == limit {
				nextKey = item.KeyCopy(nil)
				return nil
			}
			err := item.Value(func(val []byte) error {
				meeting, err := storage.UnmarshalMeeting(val)
				if err != nil {
					return err
				}
				batch = append(batch, meeting)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)
	return batch, nextKey, err
}

// readMeeting reads a meeting from the transaction.
func (r *MeetingRepository) readMeeting(tx *badger.Txn, key []byte) (*core.Meeting, error) {
	data, err := readItem(tx, key)
	if err != nil || data == nil {
		return nil, err
	}
	return storage.UnmarshalMeeting(data)
}
