package badger

import (
	"encoding/binary"
	"time"

	"github.com/poiesic/minutes/core"
)

// Key prefixes for different data types.
// Every prefix ends in ':' so no prefix is a prefix of another.
const (
	vectorEntryPrefix   = "vec:entry:"
	vectorDimensionKey  = "vec:meta:dimension"
	vectorSeqName       = "vec:seq"
	textDocPrefix       = "fts:doc:"
	textTermPrefix      = "fts:term:"
	textSeqName         = "fts:seq"
	catalogDocPrefix    = "cat:doc:"
	meetingRecordPrefix = "mtg:rec:"
	meetingDatePrefix   = "mtg:date:"
	meetingIDSeq        = "mtg:seq"
)

// makeIDKey appends id in BigEndian order to prefix so keys sort by id.
func makeIDKey(prefix string, id core.ID) []byte {
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// idFromKey decodes the id stored in the last 8 bytes of a key.
func idFromKey(key []byte) core.ID {
	if len(key) < 8 {
		return 0
	}
	return core.ID(binary.BigEndian.Uint64(key[len(key)-8:]))
}

func makeVectorKey(id core.ID) []byte {
	return makeIDKey(vectorEntryPrefix, id)
}

func makeTextDocKey(id core.ID) []byte {
	return makeIDKey(textDocPrefix, id)
}

// makeTermPrefix generates the prefix of all postings for a term.
// Format: prefix:term:
func makeTermPrefix(term string) []byte {
	buf := make([]byte, 0, len(textTermPrefix)+len(term)+1)
	buf = append(buf, textTermPrefix...)
	buf = append(buf, term...)
	return append(buf, ':')
}

// makePostingKey generates the key of one posting.
// Format: prefix:term:id
func makePostingKey(term string, id core.ID) []byte {
	prefix := makeTermPrefix(term)
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

func makeCatalogKey(id core.ID) []byte {
	return makeIDKey(catalogDocPrefix, id)
}

func makeMeetingKey(id core.ID) []byte {
	return makeIDKey(meetingRecordPrefix, id)
}

// makeMeetingDateKey generates a composite key for the date index.
// Format: prefix:timestamp:id
func makeMeetingDateKey(timestamp time.Time, id core.ID) []byte {
	buf := make([]byte, len(meetingDatePrefix)+16)
	offset := copy(buf, meetingDatePrefix)
	// BigEndian so lexicographic order matches time order
	binary.BigEndian.PutUint64(buf[offset:], uint64(timestamp.UnixMicro()))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makePartialMeetingDateKey generates a partial key for date range queries.
// Format: prefix:timestamp
func makePartialMeetingDateKey(timestamp time.Time) []byte {
	buf := make([]byte, len(meetingDatePrefix)+8)
	offset := copy(buf, meetingDatePrefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(timestamp.UnixMicro()))
	return buf
}
