package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/danghamo/stride/internal/app/recorder"
	"github.com/danghamo/stride/internal/domain/activity"
	"github.com/danghamo/stride/internal/domain/shared"
	"github.com/danghamo/stride/internal/domain/tracking"
	"github.com/danghamo/stride/pkg/logger"
)

// SessionConfig holds recording settings shared by every user
type SessionConfig struct {
	TickInterval   time.Duration
	ActivityType   activity.Type
	SamplerOptions tracking.SamplerOptions
}

// ActivityMarker tracks which users have a live session
type ActivityMarker interface {
	MarkActive(ctx context.Context, userID string)
	Refresh(ctx context.Context, userID string)
	Clear(ctx context.Context, userID string)
}

type recording struct {
	recorder *recorder.Recorder
	sampler  *tracking.PushSampler
}

// SessionService owns one recorder per user, fed by fixes the user's device
// pushes over the API
type SessionService struct {
	mu           sync.Mutex
	recordings   map[string]*recording
	states       *StateRegistry
	gateway      recorder.Gateway
	publisher    recorder.EventPublisher
	marker       ActivityMarker
	clockFactory func() tracking.Clock
	cfg          SessionConfig
	logger       *logger.Logger
}

// NewSessionService creates a new session service. publisher and marker may be nil.
func NewSessionService(
	cfg SessionConfig,
	states *StateRegistry,
	gateway recorder.Gateway,
	publisher recorder.EventPublisher,
	marker ActivityMarker,
	logger *logger.Logger,
) *SessionService {
	interval := cfg.TickInterval
	return &SessionService{
		recordings:   make(map[string]*recording),
		states:       states,
		gateway:      gateway,
		publisher:    publisher,
		marker:       marker,
		clockFactory: func() tracking.Clock { return tracking.NewTickerClock(interval) },
		cfg:          cfg,
		logger:       logger.WithComponent("session-service"),
	}
}

// WithClock replaces the clock used for recorders created afterwards
func (s *SessionService) WithClock(factory func() tracking.Clock) *SessionService {
	s.clockFactory = factory
	return s
}

func (s *SessionService) recordingFor(ctx context.Context, userID string) (*recording, error) {
	s.mu.Lock()
	rec, ok := s.recordings[userID]
	s.mu.Unlock()
	if ok {
		return rec, nil
	}

	state, err := s.states.Get(ctx, userID)
	if err != nil {
		// the store keeps the load error; recording still works
		s.logger.Warn("Recording without a loaded activity list", zap.String("user_id", userID), zap.Error(err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.recordings[userID]; ok {
		return rec, nil
	}

	sampler := tracking.NewPushSampler(false)
	rec = &recording{
		sampler: sampler,
		recorder: recorder.New(
			recorder.Config{
				OwnerID:        userID,
				ActivityType:   s.cfg.ActivityType,
				SamplerOptions: s.cfg.SamplerOptions,
			},
			s.clockFactory(),
			sampler,
			s.gateway,
			state,
			s.publisher,
			s.logger,
		),
	}
	s.recordings[userID] = rec
	return rec, nil
}

func (s *SessionService) existing(userID string) (*recording, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.recordings[userID]
	return rec, ok
}

// Start begins a session for the user. locationPermitted is the device's
// location permission answer.
func (s *SessionService) Start(ctx context.Context, userID string, locationPermitted bool) (recorder.StartResult, error) {
	rec, err := s.recordingFor(ctx, userID)
	if err != nil {
		return recorder.StartResult{}, err
	}

	rec.sampler.SetPermission(locationPermitted)
	result, err := rec.recorder.Start(ctx)
	if err != nil {
		return result, err
	}

	if s.marker != nil {
		s.marker.MarkActive(ctx, userID)
	}
	return result, nil
}

// PushFix feeds a device fix into the user's active session. It reports
// false when the sampler filtered the fix out, or when the session runs
// without location permission and the fix is dropped.
func (s *SessionService) PushFix(ctx context.Context, userID string, position tracking.Position) (bool, error) {
	rec, ok := s.existing(userID)
	if !ok {
		return false, noActiveSession()
	}

	accepted, err := rec.sampler.Push(ctx, tracking.Sample{Position: position})
	if errors.Is(err, tracking.ErrNotWatching) {
		if !s.heartbeat(ctx, userID, rec) {
			return false, noActiveSession()
		}
		return false, nil
	}
	if err != nil {
		return false, err
	}

	s.heartbeat(ctx, userID, rec)
	return accepted, nil
}

// ReportLocationError forwards a device-side location error to the session.
// The session keeps running and its heartbeat is refreshed.
func (s *SessionService) ReportLocationError(ctx context.Context, userID, message string) error {
	rec, ok := s.existing(userID)
	if !ok {
		return noActiveSession()
	}

	_, err := rec.sampler.Push(ctx, tracking.Sample{Err: errors.New(message)})
	if errors.Is(err, tracking.ErrNotWatching) {
		if !s.heartbeat(ctx, userID, rec) {
			return noActiveSession()
		}
		s.logger.Debug("Location error without a watching sampler",
			zap.String("user_id", userID), zap.String("message", message))
		return nil
	}
	if err != nil {
		return err
	}

	s.heartbeat(ctx, userID, rec)
	return nil
}

// heartbeat refreshes the reaper key while the user's session is active and
// reports whether it is
func (s *SessionService) heartbeat(ctx context.Context, userID string, rec *recording) bool {
	if rec.recorder.Status().SessionID == "" {
		return false
	}
	if s.marker != nil {
		s.marker.Refresh(ctx, userID)
	}
	return true
}

// Stop ends the user's session
func (s *SessionService) Stop(ctx context.Context, userID string) (recorder.Outcome, error) {
	rec, ok := s.existing(userID)
	if !ok {
		return recorder.Outcome{}, noActiveSession()
	}

	if s.marker != nil {
		s.marker.Clear(ctx, userID)
	}
	return rec.recorder.Stop(ctx)
}

// Status returns the user's session view; users who never recorded are idle
func (s *SessionService) Status(userID string) recorder.Status {
	rec, ok := s.existing(userID)
	if !ok {
		return recorder.Status{Snapshot: tracking.NewSession().Snapshot()}
	}
	return rec.recorder.Status()
}

// Retry re-attempts saving the user's pending activities
func (s *SessionService) Retry(ctx context.Context, userID string) ([]*activity.Activity, error) {
	rec, ok := s.existing(userID)
	if !ok {
		return nil, shared.NewDomainError(shared.ErrCodeNoPendingActivity, "No activity is waiting to be saved")
	}
	return rec.recorder.Retry(ctx)
}

// Discard drops the user's pending activities
func (s *SessionService) Discard(userID string) int {
	rec, ok := s.existing(userID)
	if !ok {
		return 0
	}
	return rec.recorder.DiscardPending()
}

// ActiveUsers lists users with a running session
func (s *SessionService) ActiveUsers() []string {
	s.mu.Lock()
	recs := make(map[string]*recording, len(s.recordings))
	for id, rec := range s.recordings {
		recs[id] = rec
	}
	s.mu.Unlock()

	users := make([]string, 0, len(recs))
	for id, rec := range recs {
		if rec.recorder.Status().SessionID != "" {
			users = append(users, id)
		}
	}
	return users
}

// Abandon ends the user's session without saving it
func (s *SessionService) Abandon(ctx context.Context, userID string) bool {
	rec, ok := s.existing(userID)
	if !ok {
		return false
	}
	if s.marker != nil {
		s.marker.Clear(ctx, userID)
	}
	return rec.recorder.Abandon()
}

// Expire ends a session whose heartbeat lapsed. Significant sessions are
// saved, or kept pending when the save fails; the rest are abandoned.
func (s *SessionService) Expire(ctx context.Context, userID string) bool {
	rec, ok := s.existing(userID)
	if !ok {
		return false
	}
	if s.marker != nil {
		s.marker.Clear(ctx, userID)
	}

	outcome, expired, err := rec.recorder.Expire(ctx)
	if err != nil {
		s.logger.Warn("Expired session could not be saved",
			zap.String("user_id", userID), zap.Bool("pending", outcome.Pending), zap.Error(err))
	}
	return expired
}

// Release abandons the user's session and forgets the recorder, e.g. on
// logout. A recorder still holding unsaved activities is kept so Retry and
// Discard keep working.
func (s *SessionService) Release(ctx context.Context, userID string) {
	s.mu.Lock()
	rec, ok := s.recordings[userID]
	pending := 0
	if ok {
		pending = rec.recorder.Status().Pending
		if pending == 0 {
			delete(s.recordings, userID)
		}
	}
	s.mu.Unlock()

	if !ok {
		return
	}
	if s.marker != nil {
		s.marker.Clear(ctx, userID)
	}
	if pending > 0 {
		s.logger.Warn("Keeping unsaved activities after release",
			zap.String("user_id", userID), zap.Int("pending", pending))
		rec.recorder.Abandon()
		return
	}
	rec.recorder.Close()
}

// Close closes every recorder
func (s *SessionService) Close() {
	s.mu.Lock()
	recs := s.recordings
	s.recordings = make(map[string]*recording)
	s.mu.Unlock()

	for _, rec := range recs {
		rec.recorder.Close()
	}
}

func noActiveSession() error {
	return shared.NewDomainError(shared.ErrCodeInvalidStateTransition, "No active session is recording")
}
