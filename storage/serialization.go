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


package storage

import (
	"errors"
	"fmt"
	"time"

	"github.com/mus-format/mus-go"
	"github.com/poiesic/minutes/core"
)

// VectorEntry is the persisted form of a vector store entry.
type VectorEntry struct {
	Seq    uint64
	Vector []float32
}

// TextEntry is the persisted form of a full-text index entry.
// Terms maps each distinct token to its frequency in the document.
type TextEntry struct {
	Seq    uint64
	Length uint32
	Terms  map[string]uint32
}

// Posting records the frequency of one term in one document, with the
// document's insertion sequence for tie-breaking.
type Posting struct {
	TF  uint32
	Seq uint64
}

// MarshalID serializes an ID to bytes.
func MarshalID(id core.ID) []byte {
	buf := make([]byte, core.IDMUS.Size(id))
	core.IDMUS.Marshal(id, buf)
	return buf
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	id, _, err := core.IDMUS.Unmarshal(data)
	if err != nil {
		return 0, decodeError(err)
	}
	return id, nil
}

// MarshalPosting serializes a Posting to bytes.
func MarshalPosting(p Posting) []byte {
	buf := make([]byte, PostingMUS.Size(p))
	PostingMUS.Marshal(p, buf)
	return buf
}

// UnmarshalPosting deserializes a Posting from bytes.
func UnmarshalPosting(data []byte) (Posting, error) {
	p, _, err := PostingMUS.Unmarshal(data)
	if err != nil {
		return Posting{}, decodeError(err)
	}
	return p, nil
}

// MarshalVectorEntry serializes a VectorEntry to bytes.
func MarshalVectorEntry(entry *VectorEntry) []byte {
	buf := make([]byte, VectorEntryMUS.Size(*entry))
	VectorEntryMUS.Marshal(*entry, buf)
	return buf
}

// UnmarshalVectorEntry deserializes a VectorEntry from bytes.
func UnmarshalVectorEntry(data []byte) (*VectorEntry, error) {
	entry, _, err := VectorEntryMUS.Unmarshal(data)
	if err != nil {
		return nil, decodeError(err)
	}
	return &entry, nil
}

// MarshalTextEntry serializes a TextEntry to bytes.
func MarshalTextEntry(entry *TextEntry) []byte {
	buf := make([]byte, TextEntryMUS.Size(*entry))
	TextEntryMUS.Marshal(*entry, buf)
	return buf
}

// UnmarshalTextEntry deserializes a TextEntry from bytes.
func UnmarshalTextEntry(data []byte) (*TextEntry, error) {
	entry, _, err := TextEntryMUS.Unmarshal(data)
	if err != nil {
		return nil, decodeError(err)
	}
	return &entry, nil
}

// MarshalDocument serializes a Document's catalog fields to bytes.
// The vector is owned by the vector store and is not written.
func MarshalDocument(doc *core.Document) []byte {
	record := *doc
	record.Vector = nil
	buf := make([]byte, core.DocumentMUS.Size(record))
	core.DocumentMUS.Marshal(record, buf)
	return buf
}

// UnmarshalDocument deserializes a Document from bytes.
func UnmarshalDocument(data []byte) (*core.Document, error) {
	doc, _, err := core.DocumentMUS.Unmarshal(data)
	if err != nil {
		return nil, decodeError(err)
	}
	doc.Vector = nil
	doc.CreatedAt = storedTime(doc.CreatedAt)
	doc.UpdatedAt = storedTime(doc.UpdatedAt)
	return &doc, nil
}

// MarshalMeeting serializes a Meeting to bytes.
func MarshalMeeting(meeting *core.Meeting) []byte {
	buf := make([]byte, core.MeetingMUS.Size(*meeting))
	core.MeetingMUS.Marshal(*meeting, buf)
	return buf
}

// UnmarshalMeeting deserializes a Meeting from bytes.
func UnmarshalMeeting(data []byte) (*core.Meeting, error) {
	meeting, _, err := core.MeetingMUS.Unmarshal(data)
	if err != nil {
		return nil, decodeError(err)
	}
	if len(meeting.Decisions) == 0 {
		meeting.Decisions = nil
	}
	meeting.CreatedAt = storedTime(meeting.CreatedAt)
	meeting.UpdatedAt = storedTime(meeting.UpdatedAt)
	return &meeting, nil
}

// Timestamp returns t as it reads back from storage: UTC with microsecond
// precision. Stores apply it before writing so returned records compare
// equal to reloaded ones.
func Timestamp(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC().Truncate(time.Microsecond)
}

// storedTime maps a decoded timestamp onto the value Timestamp produced.
func storedTime(t time.Time) time.Time {
	if t.IsZero() {
		return time.Time{}
	}
	return t.UTC()
}

func decodeError(err error) error {
	if errors.Is(err, mus.ErrTooSmallByteSlice) {
		return fmt.Errorf("%w: %w: %w", ErrSerializationFailed, ErrTruncatedData, err)
	}
	return fmt.Errorf("%w: %w", ErrSerializationFailed, err)
}
