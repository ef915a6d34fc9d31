package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/danghamo/stride/internal/domain/account"
	"github.com/danghamo/stride/internal/domain/shared"
	"github.com/danghamo/stride/pkg/logger"
)

// AuthResult is returned by a successful register or login
type AuthResult struct {
	Token string        `json:"token"`
	User  *account.User `json:"user"`
}

// SessionReleaser ends a user's recording state on logout
type SessionReleaser interface {
	Release(ctx context.Context, userID string)
}

// AccountService implements sign-up, sign-in and profile edits
type AccountService struct {
	accounts account.Repository
	jwt      *account.JWTService
	states   *StateRegistry
	sessions SessionReleaser
	logger   *logger.Logger
}

// NewAccountService creates a new account service. sessions may be nil.
func NewAccountService(
	accounts account.Repository,
	jwt *account.JWTService,
	states *StateRegistry,
	sessions SessionReleaser,
	logger *logger.Logger,
) *AccountService {
	return &AccountService{
		accounts: accounts,
		jwt:      jwt,
		states:   states,
		sessions: sessions,
		logger:   logger.WithComponent("account-service"),
	}
}

// Register creates a user and signs them in
func (s *AccountService) Register(ctx context.Context, email, password, displayName string) (*AuthResult, error) {
	user, err := account.NewUser(email, password, displayName)
	if err != nil {
		return nil, err
	}

	if err := s.accounts.Insert(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("User registered", zap.String("user_id", user.ID.String()))
	return s.signIn(ctx, user)
}

// Login signs a user in with email and password
func (s *AccountService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	validEmail, err := account.NewEmail(email)
	if err != nil {
		return nil, err
	}

	user, err := s.accounts.GetByEmail(ctx, validEmail)
	if err != nil {
		return nil, fmt.Errorf("look up user: %w", err)
	}
	if user == nil {
		return nil, account.ErrUserNotFound()
	}

	if err := user.Authenticate(password); err != nil {
		s.logger.Info("Login rejected", zap.String("user_id", user.ID.String()))
		return nil, err
	}

	return s.signIn(ctx, user)
}

func (s *AccountService) signIn(ctx context.Context, user *account.User) (*AuthResult, error) {
	token, err := s.jwt.GenerateToken(user)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	state, err := s.states.Get(ctx, user.ID.String())
	if err != nil {
		s.logger.Warn("Signed in without activity history", zap.String("user_id", user.ID.String()), zap.Error(err))
	}
	state.SetUser(user)

	return &AuthResult{Token: token, User: user}, nil
}

// Logout clears the signed-in user and abandons any running session
func (s *AccountService) Logout(ctx context.Context, userID string) {
	if s.sessions != nil {
		s.sessions.Release(ctx, userID)
	}

	state, _ := s.states.Get(ctx, userID)
	state.Logout()

	s.logger.Info("User logged out", zap.String("user_id", userID))
}

// Me returns the signed-in user
func (s *AccountService) Me(ctx context.Context, userID string) (*account.User, error) {
	user, err := s.accounts.GetByID(ctx, account.UserID(userID))
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, shared.ErrNotFound("user")
	}
	return user, nil
}

// UpdateProfile renames the user
func (s *AccountService) UpdateProfile(ctx context.Context, userID, displayName string) (*account.User, error) {
	var updated *account.User
	err := s.accounts.FindOneAndUpdate(ctx, account.UserID(userID), func(u *account.User) (*account.User, error) {
		if err := u.Rename(displayName); err != nil {
			return nil, err
		}
		updated = u
		return u, nil
	})
	if err != nil {
		return nil, err
	}

	state, _ := s.states.Get(ctx, userID)
	if !state.UpdateUser(func(u *account.User) { u.DisplayName = updated.DisplayName; u.UpdatedAt = updated.UpdatedAt }) {
		state.SetUser(updated)
	}
	return updated, nil
}
