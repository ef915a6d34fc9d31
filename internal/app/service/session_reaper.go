package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/danghamo/stride/pkg/logger"
)

// Expirer ends sessions that went quiet
type Expirer interface {
	ActiveUsers() []string
	Expire(ctx context.Context, userID string) bool
}

// SessionReaper keeps a TTL heartbeat key per recording user in Redis and
// expires sessions whose device stopped calling in
type SessionReaper struct {
	logger      *logger.Logger
	redisClient *redis.Client
	ttl         time.Duration
	interval    time.Duration
	stopChan    chan struct{}
	stopOnce    sync.Once
	ticker      *time.Ticker
}

const (
	// Redis key pattern for live sessions: "active:session:{userID}"
	activeSessionKeyPrefix = "active:session:"

	defaultSessionTTL   = 10 * time.Minute
	defaultReapInterval = 30 * time.Second
)

// NewSessionReaper creates a new Redis-based session reaper
func NewSessionReaper(redisClient *redis.Client, ttl, interval time.Duration, logger *logger.Logger) *SessionReaper {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	if interval <= 0 {
		interval = defaultReapInterval
	}
	return &SessionReaper{
		logger:      logger.WithComponent("session-reaper"),
		redisClient: redisClient,
		ttl:         ttl,
		interval:    interval,
		stopChan:    make(chan struct{}),
	}
}

// Start begins periodic reaping of sessions tracked by sessions
func (sr *SessionReaper) Start(ctx context.Context, sessions Expirer) {
	sr.ticker = time.NewTicker(sr.interval)

	sr.logger.Info("Starting session reaper",
		zap.Duration("interval", sr.interval),
		zap.Duration("ttl", sr.ttl))

	go sr.reapLoop(ctx, sessions)
}

// Stop stops the reaper
func (sr *SessionReaper) Stop() {
	sr.stopOnce.Do(func() {
		sr.logger.Info("Stopping session reaper")
		if sr.ticker != nil {
			sr.ticker.Stop()
		}
		close(sr.stopChan)
	})
}

// MarkActive records a heartbeat for a freshly started session
func (sr *SessionReaper) MarkActive(ctx context.Context, userID string) {
	if err := sr.redisClient.Set(ctx, activeSessionKeyPrefix+userID, time.Now().UTC().Format(time.RFC3339), sr.ttl).Err(); err != nil {
		sr.logger.Error("Failed to mark session active", zap.String("user_id", userID), zap.Error(err))
	}
}

// Refresh extends the heartbeat of a running session
func (sr *SessionReaper) Refresh(ctx context.Context, userID string) {
	if err := sr.redisClient.Expire(ctx, activeSessionKeyPrefix+userID, sr.ttl).Err(); err != nil {
		sr.logger.Debug("Failed to refresh session heartbeat", zap.String("user_id", userID), zap.Error(err))
	}
}

// Clear removes the heartbeat of a finished session
func (sr *SessionReaper) Clear(ctx context.Context, userID string) {
	if err := sr.redisClient.Del(ctx, activeSessionKeyPrefix+userID).Err(); err != nil {
		sr.logger.Error("Failed to clear session heartbeat", zap.String("user_id", userID), zap.Error(err))
	}
}

// ActiveCount returns the number of sessions with a live heartbeat
func (sr *SessionReaper) ActiveCount(ctx context.Context) int {
	keys, err := sr.redisClient.Keys(ctx, activeSessionKeyPrefix+"*").Result()
	if err != nil {
		sr.logger.Error("Failed to count active sessions", zap.Error(err))
		return 0
	}
	return len(keys)
}

// ActiveUserIDs lists users with a live heartbeat
func (sr *SessionReaper) ActiveUserIDs(ctx context.Context) []string {
	keys, err := sr.redisClient.Keys(ctx, activeSessionKeyPrefix+"*").Result()
	if err != nil {
		sr.logger.Error("Failed to list active sessions", zap.Error(err))
		return nil
	}
	ids := make([]string, 0, len(keys))
	for _, key := range keys {
		ids = append(ids, strings.TrimPrefix(key, activeSessionKeyPrefix))
	}
	return ids
}

func (sr *SessionReaper) reapLoop(ctx context.Context, sessions Expirer) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-sr.stopChan:
			return
		case <-sr.ticker.C:
			sr.reap(ctx, sessions)
		}
	}
}

// reap expires every running session whose heartbeat lapsed and returns
// how many were expired
func (sr *SessionReaper) reap(ctx context.Context, sessions Expirer) int {
	reaped := 0
	for _, userID := range sessions.ActiveUsers() {
		n, err := sr.redisClient.Exists(ctx, activeSessionKeyPrefix+userID).Result()
		if err != nil {
			sr.logger.Debug("Failed to check session heartbeat", zap.String("user_id", userID), zap.Error(err))
			continue
		}
		if n > 0 {
			continue
		}

		if sessions.Expire(ctx, userID) {
			reaped++
			sr.logger.Warn("Expired stale session", zap.String("user_id", userID))
		}
	}

	if reaped > 0 {
		sr.logger.Info("Reaped stale sessions", zap.Int("count", reaped))
	}
	return reaped
}
