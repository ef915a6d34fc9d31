package store

import (
	"fmt"
	"sync"

	"github.com/danghamo/stride/internal/domain/account"
	"github.com/danghamo/stride/internal/domain/activity"
	"github.com/danghamo/stride/internal/domain/shared"
)

// ActivityList is the narrow view of the store the recorder writes to
type ActivityList interface {
	PrependActivity(a *activity.Activity)
}

// ActivitiesState is the activities slice of application state
type ActivitiesState struct {
	List      []*activity.Activity `json:"activities"`
	Current   *activity.Activity   `json:"current_activity,omitempty"`
	IsLoading bool                 `json:"is_loading"`
	Error     string               `json:"error,omitempty"`
}

// UserState is the user slice of application state
type UserState struct {
	Current         *account.User `json:"current_user,omitempty"`
	IsAuthenticated bool          `json:"is_authenticated"`
	IsLoading       bool          `json:"is_loading"`
	Error           string        `json:"error,omitempty"`
}

// Stats are all-time totals derived from the local activity list
type Stats struct {
	TotalActivities      int     `json:"total_activities"`
	TotalDistanceKm      float64 `json:"total_distance_km"`
	TotalDurationSeconds int     `json:"total_duration_seconds"`
	TotalDuration        string  `json:"total_duration"`
}

// Store holds one client's application state. It is safe for concurrent use.
type Store struct {
	mu         sync.RWMutex
	activities ActivitiesState
	user       UserState
}

// New creates an empty store
func New() *Store {
	return &Store{
		activities: ActivitiesState{List: []*activity.Activity{}},
	}
}

// PrependActivity adds an activity to the front of the list
func (s *Store) PrependActivity(a *activity.Activity) {
	if a == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	list := make([]*activity.Activity, 0, len(s.activities.List)+1)
	list = append(list, a)
	s.activities.List = append(list, s.activities.List...)
}

// SetActivities replaces the list and clears the loading flag
func (s *Store) SetActivities(list []*activity.Activity) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.activities.List = append([]*activity.Activity{}, list...)
	s.activities.IsLoading = false
}

// SetCurrentActivity selects the activity being viewed
func (s *Store) SetCurrentActivity(a *activity.Activity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activities.Current = a
}

// UpdateActivity replaces the activity with the same ID
func (s *Store) UpdateActivity(a *activity.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existing := range s.activities.List {
		if existing.ID == a.ID {
			s.activities.List[i] = a
			if s.activities.Current != nil && s.activities.Current.ID == a.ID {
				s.activities.Current = a
			}
			return nil
		}
	}
	return shared.ErrNotFound(fmt.Sprintf("activity %s", a.ID))
}

// DeleteActivity removes an activity by ID
func (s *Store) DeleteActivity(id activity.ActivityID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existing := range s.activities.List {
		if existing.ID == id {
			list := make([]*activity.Activity, 0, len(s.activities.List)-1)
			list = append(list, s.activities.List[:i]...)
			s.activities.List = append(list, s.activities.List[i+1:]...)
			if s.activities.Current != nil && s.activities.Current.ID == id {
				s.activities.Current = nil
			}
			return true
		}
	}
	return false
}

// SetActivitiesLoading toggles the activities loading flag
func (s *Store) SetActivitiesLoading(loading bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activities.IsLoading = loading
}

// SetActivitiesError records an error and clears the loading flag
func (s *Store) SetActivitiesError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activities.Error = msg
	s.activities.IsLoading = false
}

// Activities returns a copy of the activities slice
func (s *Store) Activities() ActivitiesState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state := s.activities
	state.List = append([]*activity.Activity{}, s.activities.List...)
	return state
}

// SetUser signs a user in
func (s *Store) SetUser(u *account.User) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.user.Current = u
	s.user.IsAuthenticated = u != nil
	s.user.IsLoading = false
	s.user.Error = ""
}

// UpdateUser applies a mutation to the signed-in user
func (s *Store) UpdateUser(update func(u *account.User)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.user.Current == nil {
		return false
	}
	updated := *s.user.Current
	update(&updated)
	s.user.Current = &updated
	return true
}

// SetUserLoading toggles the user loading flag
func (s *Store) SetUserLoading(loading bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user.IsLoading = loading
}

// SetUserError records an authentication error
func (s *Store) SetUserError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user.Error = msg
	s.user.IsLoading = false
}

// Logout clears the user slice
func (s *Store) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = UserState{}
}

// User returns a copy of the user slice
func (s *Store) User() UserState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// Stats derives all-time totals from the local activity list
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var stats Stats
	for _, a := range s.activities.List {
		stats.TotalActivities++
		stats.TotalDistanceKm += a.DistanceKm
		stats.TotalDurationSeconds += a.DurationSeconds
	}
	stats.TotalDistanceKm = activity.RoundDistance(stats.TotalDistanceKm)
	stats.TotalDuration = FormatHoursMinutes(stats.TotalDurationSeconds)
	return stats
}

// FormatHoursMinutes renders seconds as "Xh Ym"
func FormatHoursMinutes(seconds int) string {
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	return fmt.Sprintf("%dh %dm", hours, minutes)
}
