package activity

import (
	"context"
)

// Repository defines the interface for activity persistence operations
type Repository interface {
	// Save stores a new activity
	Save(ctx context.Context, a *Activity) error

	// GetByID retrieves an activity by ID (nil when missing)
	GetByID(ctx context.Context, id ActivityID) (*Activity, error)

	// ListByOwner retrieves an owner's activities, most recent first
	ListByOwner(ctx context.Context, ownerID string) ([]*Activity, error)

	// Delete removes an activity
	Delete(ctx context.Context, id ActivityID) error
}
