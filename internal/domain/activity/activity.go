package activity

import (
	"fmt"
	"math"
	"time"

	"github.com/danghamo/stride/internal/domain/shared"
	"github.com/danghamo/stride/internal/domain/tracking"
)

// ActivityID represents a unique activity identifier
type ActivityID shared.ID

// NewActivityID creates a new activity ID
func NewActivityID() ActivityID {
	return ActivityID(shared.NewID())
}

// String returns string representation
func (id ActivityID) String() string {
	return string(id)
}

// Type is the kind of a recorded activity
type Type string

const (
	TypeRun Type = "Run"
)

// String returns string representation
func (t Type) String() string {
	return string(t)
}

// Activity is an immutable record of a completed session
type Activity struct {
	ID              ActivityID       `json:"id"`
	OccurredAt      shared.Timestamp `json:"date"`
	DurationSeconds int              `json:"duration"`
	DistanceKm      float64          `json:"distance"`
	Type            Type             `json:"type"`
	OwnerID         string           `json:"userId,omitempty"`
}

// NewActivity builds the record for stopped session totals. Distance is
// rounded to two decimals; ownerID is empty for anonymous sessions.
func NewActivity(totals tracking.Totals, activityType Type, ownerID string, occurredAt time.Time) (*Activity, error) {
	if totals.ElapsedSeconds < 0 || totals.DistanceKm < 0 {
		return nil, shared.NewDomainError(shared.ErrCodeInvalidInput, "Activity totals cannot be negative")
	}
	if activityType == "" {
		activityType = TypeRun
	}

	return &Activity{
		ID:              NewActivityID(),
		OccurredAt:      shared.NewTimestampFromTime(occurredAt),
		DurationSeconds: totals.ElapsedSeconds,
		DistanceKm:      RoundDistance(totals.DistanceKm),
		Type:            activityType,
		OwnerID:         ownerID,
	}, nil
}

// RoundDistance rounds kilometres to two decimal places
func RoundDistance(km float64) float64 {
	return math.Round(km*100) / 100
}

// IsAnonymous reports whether the activity has no owner
func (a *Activity) IsAnonymous() bool {
	return a.OwnerID == ""
}

// Pace returns the average pace in minutes per kilometre
func (a *Activity) Pace() float64 {
	return tracking.Pace(a.DurationSeconds, a.DistanceKm)
}

// Summary is the user-facing confirmation for a saved activity
func (a *Activity) Summary() string {
	return fmt.Sprintf("Distance: %.2f km\nDuration: %s", a.DistanceKm, tracking.FormatDuration(a.DurationSeconds))
}
