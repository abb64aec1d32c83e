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


package core

import (
	"fmt"
	"strings"
	"time"
)

// ValidateDocument validates a Document according to domain rules.
//
// Validation rules:
//   - Id must not be zero
//   - Text must not be blank
//   - Vector, when present, must have exactly dimension elements
//
// NOT validated:
//   - Language (empty means unknown)
//   - timestamps (populated on indexing)
func ValidateDocument(doc *Document, dimension int) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}

	if doc.Id == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrInvalidID)
	}

	if strings.TrimSpace(doc.Text) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyContent)
	}

	if doc.Vector != nil {
		if err := ValidateDimension(doc.Vector, dimension); err != nil {
			return err
		}
	}

	return nil
}

// ValidateDimension checks that a vector has the expected length.
func ValidateDimension(vector []float32, dimension int) error {
	if len(vector) != dimension {
		return fmt.Errorf("%w: expected %d, got %d", ErrInvalidDimension, dimension, len(vector))
	}
	return nil
}

// ValidateMeeting validates a Meeting before it is stored upstream.
//
// Validation rules:
//   - Title must not be blank
//   - CreatedAt must not be in the future
func ValidateMeeting(meeting *Meeting) error {
	if meeting == nil {
		return fmt.Errorf("%w: meeting is nil", ErrInvalidMeeting)
	}

	if strings.TrimSpace(meeting.Title) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidMeeting, ErrEmptyContent)
	}

	if !IsValidTimestamp(meeting.CreatedAt) {
		return fmt.Errorf("%w: created_at cannot be in the future", ErrInvalidMeeting)
	}

	return nil
}

// IsValidTimestamp checks if a timestamp is valid (not in the future).
func IsValidTimestamp(ts time.Time) bool {
	return !ts.After(time.Now())
}
