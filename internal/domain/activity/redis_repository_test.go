package activity

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danghamo/stride/internal/domain/shared"
	"github.com/danghamo/stride/internal/domain/tracking"
)

// setupTestRedis starts an in-memory Redis for the repository
func setupTestRedis(t *testing.T) *redis.Client {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

func createTestActivity(t *testing.T, owner string, at time.Time) *Activity {
	a, err := NewActivity(tracking.Totals{ElapsedSeconds: 600, DistanceKm: 2.345}, TypeRun, owner, at)
	require.NoError(t, err)
	return a
}

func TestRedisRepository_SaveAndGet(t *testing.T) {
	repo := NewRedisRepository(setupTestRedis(t))
	ctx := context.Background()

	t.Run("should return nil when activity does not exist", func(t *testing.T) {
		result, err := repo.GetByID(ctx, ActivityID("missing"))
		require.NoError(t, err)
		assert.Nil(t, result)
	})

	t.Run("should round trip a saved activity", func(t *testing.T) {
		a := createTestActivity(t, "user-1", time.Now())
		require.NoError(t, repo.Save(ctx, a))

		result, err := repo.GetByID(ctx, a.ID)
		require.NoError(t, err)
		require.NotNil(t, result)
		assert.Equal(t, a.ID, result.ID)
		assert.Equal(t, a.DistanceKm, result.DistanceKm)
		assert.Equal(t, a.DurationSeconds, result.DurationSeconds)
		assert.Equal(t, a.OwnerID, result.OwnerID)
		assert.True(t, a.OccurredAt.Value().Equal(result.OccurredAt.Value()))
	})

	t.Run("should reject duplicate ids", func(t *testing.T) {
		a := createTestActivity(t, "user-1", time.Now())
		require.NoError(t, repo.Save(ctx, a))

		err := repo.Save(ctx, a)
		assert.True(t, shared.HasCode(err, shared.ErrCodeAlreadyExists))
	})
}

func TestRedisRepository_ListByOwner(t *testing.T) {
	repo := NewRedisRepository(setupTestRedis(t))
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	older := createTestActivity(t, "runner", base)
	newer := createTestActivity(t, "runner", base.Add(time.Hour))
	other := createTestActivity(t, "someone-else", base)
	anon := createTestActivity(t, "", base)

	for _, a := range []*Activity{older, newer, other, anon} {
		require.NoError(t, repo.Save(ctx, a))
	}

	list, err := repo.ListByOwner(ctx, "runner")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID)
	assert.Equal(t, older.ID, list[1].ID)

	anonymous, err := repo.ListByOwner(ctx, "")
	require.NoError(t, err)
	require.Len(t, anonymous, 1)
	assert.Equal(t, anon.ID, anonymous[0].ID)

	empty, err := repo.ListByOwner(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestRedisRepository_Delete(t *testing.T) {
	repo := NewRedisRepository(setupTestRedis(t))
	ctx := context.Background()

	a := createTestActivity(t, "runner", time.Now())
	require.NoError(t, repo.Save(ctx, a))

	require.NoError(t, repo.Delete(ctx, a.ID))

	result, err := repo.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Nil(t, result)

	list, err := repo.ListByOwner(ctx, "runner")
	require.NoError(t, err)
	assert.Empty(t, list)

	err = repo.Delete(ctx, a.ID)
	assert.True(t, shared.HasCode(err, shared.ErrCodeNotFound))
}
