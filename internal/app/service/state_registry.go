package service

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/danghamo/stride/internal/app/store"
	"github.com/danghamo/stride/internal/domain/activity"
	"github.com/danghamo/stride/pkg/logger"
)

// StateRegistry holds one application state store per signed-in user,
// hydrating the activity list from the repository on first use
type StateRegistry struct {
	mu         sync.Mutex
	stores     map[string]*store.Store
	hydrated   map[string]bool
	activities activity.Repository
	logger     *logger.Logger
}

// NewStateRegistry creates an empty registry
func NewStateRegistry(activities activity.Repository, logger *logger.Logger) *StateRegistry {
	return &StateRegistry{
		stores:     make(map[string]*store.Store),
		hydrated:   make(map[string]bool),
		activities: activities,
		logger:     logger.WithComponent("state-registry"),
	}
}

// Get returns the user's store, loading their activities if needed. A failed
// load is recorded on the store and retried on the next call.
func (r *StateRegistry) Get(ctx context.Context, userID string) (*store.Store, error) {
	r.mu.Lock()
	s, ok := r.stores[userID]
	if !ok {
		s = store.New()
		r.stores[userID] = s
	}
	hydrated := r.hydrated[userID]
	r.mu.Unlock()

	if hydrated {
		return s, nil
	}

	s.SetActivitiesLoading(true)
	list, err := r.activities.ListByOwner(ctx, userID)
	if err != nil {
		r.logger.Error("Failed to load activities", zap.String("user_id", userID), zap.Error(err))
		s.SetActivitiesError(err.Error())
		return s, err
	}

	r.mu.Lock()
	if !r.hydrated[userID] {
		s.SetActivities(mergeActivities(s.Activities().List, list))
		r.hydrated[userID] = true
	}
	r.mu.Unlock()

	return s, nil
}

// Drop forgets a user's state
func (r *StateRegistry) Drop(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.stores, userID)
	delete(r.hydrated, userID)
}

// mergeActivities keeps activities added locally while loading in front of
// the loaded list
func mergeActivities(local, loaded []*activity.Activity) []*activity.Activity {
	seen := make(map[activity.ActivityID]bool, len(loaded))
	for _, a := range loaded {
		seen[a.ID] = true
	}

	merged := make([]*activity.Activity, 0, len(local)+len(loaded))
	for _, a := range local {
		if !seen[a.ID] {
			merged = append(merged, a)
		}
	}
	return append(merged, loaded...)
}
