package activity

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/danghamo/stride/internal/domain/shared"
)

const anonymousOwner = "anonymous"

// RedisRepository implements Repository using Redis
type RedisRepository struct {
	client *redis.Client
}

// NewRedisRepository creates a new Redis-based activity repository
func NewRedisRepository(client *redis.Client) Repository {
	return &RedisRepository{
		client: client,
	}
}

func activityKey(id ActivityID) string {
	return fmt.Sprintf("activity:%s", id.String())
}

func ownerIndexKey(ownerID string) string {
	if ownerID == "" {
		ownerID = anonymousOwner
	}
	return fmt.Sprintf("idx:activity:owner:%s", ownerID)
}

// Save stores a new activity and indexes it under its owner
func (r *RedisRepository) Save(ctx context.Context, a *Activity) error {
	if a == nil {
		return shared.ErrInvalidInput("activity cannot be nil")
	}
	key := activityKey(a.ID)

	return r.client.Watch(ctx, func(tx *redis.Tx) error {
		exists, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if exists > 0 {
			return shared.ErrAlreadyExists("activity")
		}

		fields, err := r.serializeActivity(a)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, fields)
			pipe.ZAdd(ctx, ownerIndexKey(a.OwnerID), redis.Z{
				Score:  float64(a.OccurredAt.Value().UnixMilli()),
				Member: a.ID.String(),
			})
			return nil
		})

		return err
	}, key)
}

// GetByID retrieves an activity by ID
func (r *RedisRepository) GetByID(ctx context.Context, id ActivityID) (*Activity, error) {
	data, err := r.client.HGetAll(ctx, activityKey(id)).Result()
	if err != nil {
		return nil, err
	}

	if len(data) == 0 {
		return nil, nil
	}

	a := &Activity{}
	if err := r.deserializeActivity(data, a); err != nil {
		return nil, err
	}

	return a, nil
}

// ListByOwner retrieves an owner's activities, most recent first
func (r *RedisRepository) ListByOwner(ctx context.Context, ownerID string) ([]*Activity, error) {
	ids, err := r.client.ZRevRange(ctx, ownerIndexKey(ownerID), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	activities := make([]*Activity, 0, len(ids))
	for _, id := range ids {
		a, err := r.GetByID(ctx, ActivityID(id))
		if err != nil {
			return nil, err
		}
		if a != nil {
			activities = append(activities, a)
		}
	}

	return activities, nil
}

// Delete removes an activity and its owner index entry
func (r *RedisRepository) Delete(ctx context.Context, id ActivityID) error {
	key := activityKey(id)

	return r.client.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.HGetAll(ctx, key).Result()
		if err != nil {
			return err
		}
		if len(data) == 0 {
			return shared.ErrNotFound("activity")
		}

		a := &Activity{}
		if err := r.deserializeActivity(data, a); err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			pipe.ZRem(ctx, ownerIndexKey(a.OwnerID), a.ID.String())
			return nil
		})

		return err
	}, key)
}

// serializeActivity converts activity to Redis hash fields
func (r *RedisRepository) serializeActivity(a *Activity) (map[string]interface{}, error) {
	data, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"data":     string(data),
		"owner_id": a.OwnerID,
	}, nil
}

// deserializeActivity converts Redis hash fields to activity
func (r *RedisRepository) deserializeActivity(fields map[string]string, a *Activity) error {
	data, exists := fields["data"]
	if !exists {
		return fmt.Errorf("activity data not found in hash")
	}

	return json.Unmarshal([]byte(data), a)
}
