package shared

import (
	"time"

	"github.com/google/uuid"
)

// ID represents a unique identifier
type ID string

// NewID generates a new unique ID
func NewID() ID {
	return ID(uuid.New().String())
}

// String returns the string representation of ID
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if ID is empty
func (id ID) IsEmpty() bool {
	return string(id) == ""
}

// Timestamp represents a point in time
type Timestamp struct {
	value time.Time
}

// NewTimestamp creates a new timestamp
func NewTimestamp() Timestamp {
	return Timestamp{value: time.Now().UTC()}
}

// NewTimestampFromTime creates timestamp from time.Time
func NewTimestampFromTime(t time.Time) Timestamp {
	return Timestamp{value: t.UTC()}
}

// Value returns the time value
func (t Timestamp) Value() time.Time {
	return t.value
}

// IsZero reports whether the timestamp was never set
func (t Timestamp) IsZero() bool {
	return t.value.IsZero()
}

// MarshalJSON encodes the timestamp as RFC3339 with nanoseconds
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return t.value.MarshalJSON()
}

// UnmarshalJSON decodes an RFC3339 timestamp
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	return t.value.UnmarshalJSON(data)
}
