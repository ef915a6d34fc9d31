package service

import (
	"context"

	"github.com/danghamo/stride/internal/app/store"
	"github.com/danghamo/stride/internal/domain/account"
)

// Profile is the profile screen view
type Profile struct {
	User         *account.User  `json:"user"`
	Stats        store.Stats    `json:"stats"`
	RemoteTotals account.Totals `json:"remote_totals"`
}

// ProfileService assembles the profile view
type ProfileService struct {
	accounts *AccountService
	states   *StateRegistry
}

// NewProfileService creates a new profile service
func NewProfileService(accounts *AccountService, states *StateRegistry) *ProfileService {
	return &ProfileService{accounts: accounts, states: states}
}

// Get returns the user with stats derived from the local activity list and
// the counters kept on the user record
func (s *ProfileService) Get(ctx context.Context, userID string) (*Profile, error) {
	user, err := s.accounts.Me(ctx, userID)
	if err != nil {
		return nil, err
	}

	state, err := s.states.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &Profile{
		User:         user,
		Stats:        state.Stats(),
		RemoteTotals: user.Totals,
	}, nil
}
