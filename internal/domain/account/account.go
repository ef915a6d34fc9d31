package account

import (
	"net/mail"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/danghamo/stride/internal/domain/shared"
)

// MinPasswordLength is the shortest accepted password
const MinPasswordLength = 6

// UserID represents a unique user identifier
type UserID shared.ID

// NewUserID creates a new user ID
func NewUserID() UserID {
	return UserID(shared.NewID())
}

// String returns string representation
func (id UserID) String() string {
	return string(id)
}

// Email is a normalized, validated e-mail address
type Email string

// NewEmail validates and normalizes an address
func NewEmail(value string) (Email, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	addr, err := mail.ParseAddress(value)
	if err != nil || addr.Address != value {
		return "", shared.NewDomainError(shared.ErrCodeInvalidEmail, "Invalid email address")
	}
	return Email(value), nil
}

// String returns string representation
func (e Email) String() string {
	return string(e)
}

// HashedPassword represents a bcrypt hashed password
type HashedPassword struct {
	hash string
}

// NewHashedPassword creates a hashed password from plain text
func NewHashedPassword(plainPassword string) (HashedPassword, error) {
	if len(plainPassword) < MinPasswordLength {
		return HashedPassword{}, shared.NewDomainErrorf(shared.ErrCodeInvalidPassword,
			"Password must be at least %d characters", MinPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(plainPassword), bcrypt.DefaultCost)
	if err != nil {
		return HashedPassword{}, err
	}

	return HashedPassword{hash: string(hash)}, nil
}

// NewHashedPasswordFromHash creates from existing hash
func NewHashedPasswordFromHash(hash string) HashedPassword {
	return HashedPassword{hash: hash}
}

// Hash returns the password hash
func (p HashedPassword) Hash() string {
	return p.hash
}

// Verify checks if the plain password matches the hash
func (p HashedPassword) Verify(plainPassword string) bool {
	return bcrypt.CompareHashAndPassword([]byte(p.hash), []byte(plainPassword)) == nil
}

// Totals are the remote all-time counters kept on the user document
type Totals struct {
	TotalActivities      int     `json:"total_activities"`
	TotalDistanceKm      float64 `json:"total_distance"`
	TotalDurationSeconds int     `json:"total_duration"`
}

// User represents a user aggregate
type User struct {
	ID          UserID           `json:"id"`
	Email       Email            `json:"email"`
	DisplayName string           `json:"display_name,omitempty"`
	Password    HashedPassword   `json:"-"`
	Totals      Totals           `json:"totals"`
	CreatedAt   shared.Timestamp `json:"created_at"`
	UpdatedAt   shared.Timestamp `json:"updated_at"`
}

// NewUser registers a new user with a hashed password
func NewUser(email, plainPassword, displayName string) (*User, error) {
	validEmail, err := NewEmail(email)
	if err != nil {
		return nil, err
	}

	hashed, err := NewHashedPassword(plainPassword)
	if err != nil {
		return nil, err
	}

	if displayName == "" {
		displayName = strings.SplitN(validEmail.String(), "@", 2)[0]
	}

	timestamp := shared.NewTimestamp()

	return &User{
		ID:          NewUserID(),
		Email:       validEmail,
		DisplayName: displayName,
		Password:    hashed,
		CreatedAt:   timestamp,
		UpdatedAt:   timestamp,
	}, nil
}

// Authenticate verifies the password
func (u *User) Authenticate(plainPassword string) error {
	if !u.Password.Verify(plainPassword) {
		return shared.NewDomainError(shared.ErrCodeWrongPassword, "Incorrect password")
	}
	return nil
}

// Rename updates the display name
func (u *User) Rename(displayName string) error {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" || len(displayName) > 50 {
		return shared.NewDomainError(shared.ErrCodeInvalidInput, "Display name must be between 1 and 50 characters")
	}
	u.DisplayName = displayName
	u.UpdatedAt = shared.NewTimestamp()
	return nil
}

// ErrUserNotFound is returned when no user matches an email
func ErrUserNotFound() error {
	return shared.NewDomainError(shared.ErrCodeUserNotFound, "No user found with this email")
}
