package account

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/danghamo/stride/internal/domain/shared"
)

const (
	fieldData            = "data"
	fieldPasswordHash    = "password_hash"
	fieldTotalActivities = "total_activities"
	fieldTotalDistance   = "total_distance"
	fieldTotalDuration   = "total_duration"
)

// RedisRepository implements Repository using Redis
type RedisRepository struct {
	client *redis.Client
}

// NewRedisRepository creates a new Redis-based user repository
func NewRedisRepository(client *redis.Client) Repository {
	return &RedisRepository{
		client: client,
	}
}

func userKey(id UserID) string {
	return fmt.Sprintf("user:%s", id.String())
}

func emailIndexKey(email Email) string {
	return fmt.Sprintf("idx:user:email:%s", email.String())
}

// Insert stores a new user and claims its email index
func (r *RedisRepository) Insert(ctx context.Context, user *User) error {
	if user == nil {
		return fmt.Errorf("user cannot be nil")
	}
	key := userKey(user.ID)
	indexKey := emailIndexKey(user.Email)

	return r.client.Watch(ctx, func(tx *redis.Tx) error {
		exists, err := tx.Exists(ctx, key, indexKey).Result()
		if err != nil {
			return err
		}
		if exists > 0 {
			return shared.NewDomainError(shared.ErrCodeEmailAlreadyUsed, "Email address is already in use")
		}

		fields, err := r.serializeUser(user)
		if err != nil {
			return err
		}
		fields[fieldTotalActivities] = user.Totals.TotalActivities
		fields[fieldTotalDistance] = user.Totals.TotalDistanceKm
		fields[fieldTotalDuration] = user.Totals.TotalDurationSeconds

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, fields)
			pipe.Set(ctx, indexKey, user.ID.String(), 0)
			return nil
		})

		return err
	}, key, indexKey)
}

// FindOneAndUpdate implements IoC pattern for update operations. The
// callback may change profile fields; counters are only changed through
// IncrementTotals.
func (r *RedisRepository) FindOneAndUpdate(ctx context.Context, id UserID, callback func(*User) (*User, error)) error {
	key := userKey(id)

	return r.client.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.HGetAll(ctx, key).Result()
		if err != nil {
			return err
		}
		if len(data) == 0 {
			return shared.ErrNotFound("user")
		}

		current := &User{}
		if err := r.deserializeUser(data, current); err != nil {
			return err
		}

		result, err := callback(current)
		if err != nil {
			return err
		}
		if result == nil {
			return nil
		}

		fields, err := r.serializeUser(result)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, fields)
			return nil
		})

		return err
	}, key)
}

// GetByID retrieves a user by ID
func (r *RedisRepository) GetByID(ctx context.Context, id UserID) (*User, error) {
	data, err := r.client.HGetAll(ctx, userKey(id)).Result()
	if err != nil {
		return nil, err
	}

	if len(data) == 0 {
		return nil, nil
	}

	u := &User{}
	if err := r.deserializeUser(data, u); err != nil {
		return nil, err
	}

	return u, nil
}

// GetByEmail retrieves a user by email
func (r *RedisRepository) GetByEmail(ctx context.Context, email Email) (*User, error) {
	id, err := r.client.Get(ctx, emailIndexKey(email)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return r.GetByID(ctx, UserID(id))
}

// IncrementTotals atomically adds delta to the user's counters
func (r *RedisRepository) IncrementTotals(ctx context.Context, id UserID, delta Totals) error {
	key := userKey(id)

	return r.client.Watch(ctx, func(tx *redis.Tx) error {
		exists, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if exists == 0 {
			return shared.ErrNotFound("user")
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HIncrBy(ctx, key, fieldTotalActivities, int64(delta.TotalActivities))
			pipe.HIncrByFloat(ctx, key, fieldTotalDistance, delta.TotalDistanceKm)
			pipe.HIncrBy(ctx, key, fieldTotalDuration, int64(delta.TotalDurationSeconds))
			return nil
		})

		return err
	}, key)
}

// serializeUser converts user to Redis hash fields
func (r *RedisRepository) serializeUser(u *User) (map[string]interface{}, error) {
	data, err := json.Marshal(u)
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		fieldData:         string(data),
		fieldPasswordHash: u.Password.Hash(),
	}, nil
}

// deserializeUser converts Redis hash fields to user
func (r *RedisRepository) deserializeUser(fields map[string]string, u *User) error {
	data, exists := fields[fieldData]
	if !exists {
		return fmt.Errorf("user data not found in hash")
	}

	if err := json.Unmarshal([]byte(data), u); err != nil {
		return err
	}

	u.Password = NewHashedPasswordFromHash(fields[fieldPasswordHash])

	var err error
	if u.Totals.TotalActivities, err = parseIntField(fields, fieldTotalActivities); err != nil {
		return err
	}
	if u.Totals.TotalDurationSeconds, err = parseIntField(fields, fieldTotalDuration); err != nil {
		return err
	}
	if v, ok := fields[fieldTotalDistance]; ok {
		if u.Totals.TotalDistanceKm, err = strconv.ParseFloat(v, 64); err != nil {
			return fmt.Errorf("invalid %s: %w", fieldTotalDistance, err)
		}
	}

	return nil
}

func parseIntField(fields map[string]string, name string) (int, error) {
	v, ok := fields[name]
	if !ok {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	return n, nil
}
