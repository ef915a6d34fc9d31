package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/danghamo/stride/internal/app/store"
	cqrsevents "github.com/danghamo/stride/internal/cqrs"
	"github.com/danghamo/stride/internal/domain/activity"
	"github.com/danghamo/stride/internal/domain/shared"
	"github.com/danghamo/stride/pkg/logger"
)

// MethodActivityDeleted is the SSE notification sent after a delete
const MethodActivityDeleted = "activity.deleted"

// ActivityService serves the activity history
type ActivityService struct {
	activities activity.Repository
	states     *StateRegistry
	notifier   *cqrsevents.SSENotifier
	logger     *logger.Logger
}

// NewActivityService creates a new activity service. notifier may be nil.
func NewActivityService(
	activities activity.Repository,
	states *StateRegistry,
	notifier *cqrsevents.SSENotifier,
	logger *logger.Logger,
) *ActivityService {
	return &ActivityService{
		activities: activities,
		states:     states,
		notifier:   notifier,
		logger:     logger.WithComponent("activity-service"),
	}
}

// List returns the user's activities, most recent first
func (s *ActivityService) List(ctx context.Context, userID string) (store.ActivitiesState, error) {
	state, err := s.states.Get(ctx, userID)
	if err != nil {
		return state.Activities(), err
	}
	return state.Activities(), nil
}

// Get returns one of the user's activities and marks it current
func (s *ActivityService) Get(ctx context.Context, userID string, id activity.ActivityID) (*activity.Activity, error) {
	a, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	state, _ := s.states.Get(ctx, userID)
	state.SetCurrentActivity(a)
	return a, nil
}

// Delete removes one of the user's activities from storage and the local list
func (s *ActivityService) Delete(ctx context.Context, userID string, id activity.ActivityID) error {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}

	if err := s.activities.Delete(ctx, id); err != nil {
		return err
	}

	state, _ := s.states.Get(ctx, userID)
	state.DeleteActivity(id)

	s.logger.Info("Activity deleted", zap.String("user_id", userID), zap.String("activity_id", id.String()))

	if s.notifier != nil {
		params := map[string]interface{}{"activity_id": id.String()}
		if err := s.notifier.Notify(ctx, userID, MethodActivityDeleted, params); err != nil {
			s.logger.Warn("Failed to publish activity deleted notification", zap.Error(err))
		}
	}
	return nil
}

func (s *ActivityService) owned(ctx context.Context, userID string, id activity.ActivityID) (*activity.Activity, error) {
	a, err := s.activities.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get activity: %w", err)
	}
	if a == nil || a.OwnerID != userID {
		return nil, shared.ErrNotFound("activity")
	}
	return a, nil
}
