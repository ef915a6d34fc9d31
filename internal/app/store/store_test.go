package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danghamo/stride/internal/domain/account"
	"github.com/danghamo/stride/internal/domain/activity"
	"github.com/danghamo/stride/internal/domain/tracking"
)

func newActivity(t *testing.T, seconds int, km float64) *activity.Activity {
	a, err := activity.NewActivity(tracking.Totals{ElapsedSeconds: seconds, DistanceKm: km}, activity.TypeRun, "user-1", time.Now())
	require.NoError(t, err)
	return a
}

func TestStore_PrependActivity(t *testing.T) {
	s := New()
	first := newActivity(t, 60, 1)
	second := newActivity(t, 120, 2)

	s.PrependActivity(first)
	s.PrependActivity(second)
	s.PrependActivity(nil)

	list := s.Activities().List
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)
}

func TestStore_ActivitiesCopyIsDetached(t *testing.T) {
	s := New()
	s.PrependActivity(newActivity(t, 60, 1))

	state := s.Activities()
	state.List[0] = nil

	assert.NotNil(t, s.Activities().List[0])
}

func TestStore_UpdateAndDeleteActivity(t *testing.T) {
	s := New()
	a := newActivity(t, 60, 1)
	b := newActivity(t, 60, 2)
	s.SetActivities([]*activity.Activity{a, b})
	s.SetCurrentActivity(a)

	updated := *a
	updated.DistanceKm = 1.5
	require.NoError(t, s.UpdateActivity(&updated))
	assert.Equal(t, 1.5, s.Activities().Current.DistanceKm)

	missing := newActivity(t, 1, 1)
	assert.Error(t, s.UpdateActivity(missing))

	assert.True(t, s.DeleteActivity(a.ID))
	assert.False(t, s.DeleteActivity(a.ID))

	state := s.Activities()
	require.Len(t, state.List, 1)
	assert.Equal(t, b.ID, state.List[0].ID)
	assert.Nil(t, state.Current)
}

func TestStore_LoadingAndError(t *testing.T) {
	s := New()
	s.SetActivitiesLoading(true)
	assert.True(t, s.Activities().IsLoading)

	s.SetActivitiesError("boom")
	state := s.Activities()
	assert.False(t, state.IsLoading)
	assert.Equal(t, "boom", state.Error)

	s.SetActivitiesLoading(true)
	s.SetActivities(nil)
	assert.False(t, s.Activities().IsLoading)
	assert.Empty(t, s.Activities().List)
}

func TestStore_UserLifecycle(t *testing.T) {
	s := New()
	assert.False(t, s.UpdateUser(func(u *account.User) {}))

	user := &account.User{ID: account.UserID("user-1"), DisplayName: "Runner"}
	s.SetUserLoading(true)
	s.SetUser(user)

	state := s.User()
	assert.True(t, state.IsAuthenticated)
	assert.False(t, state.IsLoading)
	assert.Equal(t, user.ID, state.Current.ID)

	assert.True(t, s.UpdateUser(func(u *account.User) { u.DisplayName = "Renamed" }))
	assert.Equal(t, "Renamed", s.User().Current.DisplayName)
	assert.Equal(t, "Runner", user.DisplayName, "original user is not mutated")

	s.SetUserError("Incorrect password")
	assert.Equal(t, "Incorrect password", s.User().Error)

	s.Logout()
	assert.Equal(t, UserState{}, s.User())
}

func TestStore_Stats(t *testing.T) {
	s := New()
	assert.Equal(t, Stats{TotalDuration: "0h 0m"}, s.Stats())

	s.PrependActivity(newActivity(t, 1800, 5.25))
	s.PrependActivity(newActivity(t, 2100, 3.1))

	stats := s.Stats()
	assert.Equal(t, 2, stats.TotalActivities)
	assert.InDelta(t, 8.35, stats.TotalDistanceKm, 1e-9)
	assert.Equal(t, 3900, stats.TotalDurationSeconds)
	assert.Equal(t, "1h 5m", stats.TotalDuration)
}
