package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danghamo/stride/internal/domain/activity"
	"github.com/danghamo/stride/internal/domain/shared"
	"github.com/danghamo/stride/pkg/logger"
)

type releaseRecorder struct {
	released []string
}

func (r *releaseRecorder) Release(_ context.Context, userID string) {
	r.released = append(r.released, userID)
}

func TestAccountService_RegisterAndLogin(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	svc := NewAccountService(env.accounts, env.jwt, env.states, nil, logger.NewNop())

	registered, err := svc.Register(ctx, "Runner@Example.com", "secret123", "")
	require.NoError(t, err)
	require.NotEmpty(t, registered.Token)
	assert.Equal(t, "runner", registered.User.DisplayName)

	claims, err := env.jwt.ValidateToken(registered.Token)
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID.String(), claims.UserID)

	tests := []struct {
		name     string
		email    string
		password string
		code     int
		message  string
	}{
		{"invalid email", "not-an-email", "secret123", shared.ErrCodeInvalidEmail, "Invalid email address"},
		{"unknown user", "nobody@example.com", "secret123", shared.ErrCodeUserNotFound, "No user found with this email"},
		{"wrong password", "runner@example.com", "wrong-password", shared.ErrCodeWrongPassword, "Incorrect password"},
	}

	for _, tt := range tests {
		t.Run("should reject "+tt.name, func(t *testing.T) {
			_, err := svc.Login(ctx, tt.email, tt.password)
			require.Error(t, err)
			assert.True(t, shared.HasCode(err, tt.code))
			assert.Contains(t, err.Error(), tt.message)
		})
	}

	t.Run("should sign in and populate the user state", func(t *testing.T) {
		result, err := svc.Login(ctx, "runner@example.com", "secret123")
		require.NoError(t, err)
		assert.Equal(t, registered.User.ID, result.User.ID)

		state, err := env.states.Get(ctx, result.User.ID.String())
		require.NoError(t, err)
		assert.True(t, state.User().IsAuthenticated)
		assert.Equal(t, result.User.ID, state.User().Current.ID)
	})

	t.Run("should reject a taken email", func(t *testing.T) {
		_, err := svc.Register(ctx, "runner@example.com", "secret123", "")
		assert.True(t, shared.HasCode(err, shared.ErrCodeEmailAlreadyUsed))
	})

	t.Run("should reject a short password", func(t *testing.T) {
		_, err := svc.Register(ctx, "short@example.com", "123", "")
		assert.True(t, shared.HasCode(err, shared.ErrCodeInvalidPassword))
	})
}

func TestAccountService_LogoutAndProfile(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	releaser := &releaseRecorder{}
	svc := NewAccountService(env.accounts, env.jwt, env.states, releaser, logger.NewNop())

	result, err := svc.Register(ctx, "runner@example.com", "secret123", "Runner")
	require.NoError(t, err)
	userID := result.User.ID.String()

	t.Run("should rename the user everywhere", func(t *testing.T) {
		updated, err := svc.UpdateProfile(ctx, userID, "  Marathoner ")
		require.NoError(t, err)
		assert.Equal(t, "Marathoner", updated.DisplayName)

		stored, err := svc.Me(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, "Marathoner", stored.DisplayName)

		state, _ := env.states.Get(ctx, userID)
		assert.Equal(t, "Marathoner", state.User().Current.DisplayName)
	})

	t.Run("should reject an empty name", func(t *testing.T) {
		_, err := svc.UpdateProfile(ctx, userID, "   ")
		assert.True(t, shared.HasCode(err, shared.ErrCodeInvalidInput))
	})

	t.Run("should clear the user and release the session on logout", func(t *testing.T) {
		svc.Logout(ctx, userID)

		state, _ := env.states.Get(ctx, userID)
		assert.False(t, state.User().IsAuthenticated)
		assert.Nil(t, state.User().Current)
		assert.Equal(t, []string{userID}, releaser.released)
	})

	t.Run("should report unknown users", func(t *testing.T) {
		_, err := svc.Me(ctx, "missing")
		assert.True(t, shared.HasCode(err, shared.ErrCodeNotFound))
	})
}

func TestActivityService(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	svc := NewActivityService(env.activities, env.states, nil, logger.NewNop())

	mine := saveActivity(t, env.activities, "user-1", 5, time.Now().Add(-time.Hour))
	latest := saveActivity(t, env.activities, "user-1", 2, time.Now())
	theirs := saveActivity(t, env.activities, "user-2", 3, time.Now())

	t.Run("should list most recent first", func(t *testing.T) {
		state, err := svc.List(ctx, "user-1")
		require.NoError(t, err)
		require.Len(t, state.List, 2)
		assert.Equal(t, latest.ID, state.List[0].ID)
		assert.Equal(t, mine.ID, state.List[1].ID)
	})

	t.Run("should select an owned activity", func(t *testing.T) {
		a, err := svc.Get(ctx, "user-1", mine.ID)
		require.NoError(t, err)
		assert.Equal(t, mine.ID, a.ID)

		state, _ := env.states.Get(ctx, "user-1")
		require.NotNil(t, state.Activities().Current)
		assert.Equal(t, mine.ID, state.Activities().Current.ID)
	})

	t.Run("should hide other users' activities", func(t *testing.T) {
		_, err := svc.Get(ctx, "user-1", theirs.ID)
		assert.True(t, shared.HasCode(err, shared.ErrCodeNotFound))

		err = svc.Delete(ctx, "user-1", theirs.ID)
		assert.True(t, shared.HasCode(err, shared.ErrCodeNotFound))
	})

	t.Run("should delete from storage and the local list", func(t *testing.T) {
		require.NoError(t, svc.Delete(ctx, "user-1", mine.ID))

		stored, err := env.activities.GetByID(ctx, mine.ID)
		require.NoError(t, err)
		assert.Nil(t, stored)

		state, err := svc.List(ctx, "user-1")
		require.NoError(t, err)
		require.Len(t, state.List, 1)
		assert.Equal(t, latest.ID, state.List[0].ID)
		assert.Nil(t, state.Current)
	})

	t.Run("should report missing activities", func(t *testing.T) {
		err := svc.Delete(ctx, "user-1", activity.ActivityID("missing"))
		assert.True(t, shared.HasCode(err, shared.ErrCodeNotFound))
	})
}

func TestProfileService_Get(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	accounts := NewAccountService(env.accounts, env.jwt, env.states, nil, logger.NewNop())
	svc := NewProfileService(accounts, env.states)

	user := env.createUser(t, "runner@example.com")
	userID := user.ID.String()

	a := saveActivity(t, env.activities, userID, 5.5, time.Now())
	require.NoError(t, env.gateway.Save(ctx, a))
	saveActivity(t, env.activities, userID, 4.5, time.Now().Add(-time.Hour))

	profile, err := svc.Get(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, profile.User.ID)

	assert.Equal(t, 2, profile.Stats.TotalActivities)
	assert.InDelta(t, 10.0, profile.Stats.TotalDistanceKm, 0.0001)
	assert.Equal(t, 1200, profile.Stats.TotalDurationSeconds)
	assert.Equal(t, "0h 20m", profile.Stats.TotalDuration)

	assert.Equal(t, 1, profile.RemoteTotals.TotalActivities)
	assert.InDelta(t, 5.5, profile.RemoteTotals.TotalDistanceKm, 0.0001)
}
