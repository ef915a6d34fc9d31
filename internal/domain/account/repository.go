package account

import (
	"context"
)

// Repository defines the interface for user persistence operations
type Repository interface {
	// Insert stores a new user, failing when the email is taken
	Insert(ctx context.Context, user *User) error

	// FindOneAndUpdate finds a user by ID and applies callback for atomic update
	FindOneAndUpdate(ctx context.Context, id UserID, callback func(*User) (*User, error)) error

	// GetByID retrieves a user by ID (nil when missing)
	GetByID(ctx context.Context, id UserID) (*User, error)

	// GetByEmail retrieves a user by email (nil when missing)
	GetByEmail(ctx context.Context, email Email) (*User, error)

	// IncrementTotals atomically adds delta to the user's counters
	IncrementTotals(ctx context.Context, id UserID, delta Totals) error
}
