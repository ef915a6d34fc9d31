package recorder

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/danghamo/stride/internal/app/store"
	cqrsevents "github.com/danghamo/stride/internal/cqrs"
	"github.com/danghamo/stride/internal/domain/activity"
	"github.com/danghamo/stride/internal/domain/shared"
	"github.com/danghamo/stride/internal/domain/tracking"
	"github.com/danghamo/stride/pkg/logger"
)

// manualClock ticks only when the test says so
type manualClock struct {
	ch chan time.Time
}

func newManualClock() *manualClock {
	return &manualClock{ch: make(chan time.Time)}
}

func (c *manualClock) Ticks(ctx context.Context) <-chan time.Time {
	out := make(chan time.Time)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case t := <-c.ch:
				select {
				case out <- t:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

func (c *manualClock) tick(t *testing.T) {
	select {
	case c.ch <- time.Now():
	case <-time.After(time.Second):
		t.Fatal("clock is not running")
	}
}

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) Save(ctx context.Context, a *activity.Activity) error {
	return m.Called(ctx, a).Error(0)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []interface{}
}

func (p *recordingPublisher) Publish(_ context.Context, event interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) progress() []*cqrsevents.SessionProgressEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []*cqrsevents.SessionProgressEvent
	for _, e := range p.events {
		if pe, ok := e.(*cqrsevents.SessionProgressEvent); ok {
			out = append(out, pe)
		}
	}
	return out
}

type fixture struct {
	rec       *Recorder
	clock     *manualClock
	sampler   *tracking.PushSampler
	gateway   *mockGateway
	store     *store.Store
	publisher *recordingPublisher
}

func newFixture(t *testing.T, permitted bool) *fixture {
	opts := tracking.DefaultSamplerOptions()
	opts.DistanceFilterMeters = 0
	opts.FastestInterval = 0

	f := &fixture{
		clock:     newManualClock(),
		sampler:   tracking.NewPushSampler(permitted),
		gateway:   &mockGateway{},
		store:     store.New(),
		publisher: &recordingPublisher{},
	}
	f.rec = New(
		Config{
			OwnerID:        "user-1",
			SamplerOptions: opts,
			Now:            func() time.Time { return time.Date(2024, 6, 1, 6, 0, 0, 0, time.UTC) },
		},
		f.clock, f.sampler, f.gateway, f.store, f.publisher, logger.NewNop(),
	)
	t.Cleanup(f.rec.Close)
	return f
}

func (f *fixture) push(t *testing.T, lat, lng float64) {
	accepted, err := f.sampler.Push(context.Background(), tracking.Sample{Position: tracking.Position{Lat: lat, Lng: lng}})
	require.NoError(t, err)
	require.True(t, accepted)
}

func (f *fixture) waitFor(t *testing.T, cond func(s Status) bool) {
	require.Eventually(t, func() bool { return cond(f.rec.Status()) }, time.Second, time.Millisecond)
}

func TestRecorder_RecordsSignificantSession(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	result, err := f.rec.Start(ctx)
	require.NoError(t, err)
	assert.True(t, result.LocationPermitted)
	assert.NotEmpty(t, result.SessionID)

	for i := 0; i < 5; i++ {
		f.clock.tick(t)
	}
	f.push(t, 0, 0)
	f.push(t, 0, 0.01)
	f.waitFor(t, func(s Status) bool { return s.Snapshot.ElapsedSeconds == 5 && s.Snapshot.DistanceKm > 1 })

	status := f.rec.Status()
	assert.Equal(t, result.SessionID, status.SessionID)
	assert.InDelta(t, tracking.Pace(5, status.Snapshot.DistanceKm), status.Snapshot.Pace, 1e-12)

	f.gateway.On("Save", mock.Anything, mock.MatchedBy(func(a *activity.Activity) bool {
		return a.OwnerID == "user-1" && a.DurationSeconds == 5 && a.DistanceKm == 1.11 && a.Type == activity.TypeRun
	})).Return(nil).Once()

	outcome, err := f.rec.Stop(ctx)
	require.NoError(t, err)
	assert.True(t, outcome.Recorded)
	assert.Equal(t, MessageActivitySaved, outcome.Title)
	assert.Equal(t, "Distance: 1.11 km\nDuration: 00:00:05", outcome.Summary)
	require.NotNil(t, outcome.Activity)

	list := f.store.Activities().List
	require.Len(t, list, 1)
	assert.Equal(t, outcome.Activity.ID, list[0].ID)
	f.gateway.AssertExpectations(t)
}

func TestRecorder_InsignificantSessionIsNotSaved(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	_, err := f.rec.Start(ctx)
	require.NoError(t, err)
	f.clock.tick(t)
	f.push(t, 0, 0)
	f.push(t, 0, 0.00001)
	f.waitFor(t, func(s Status) bool { return s.Snapshot.ElapsedSeconds == 1 && s.Snapshot.LastPosition != nil && s.Snapshot.LastPosition.Lng > 0 })

	outcome, err := f.rec.Stop(ctx)
	require.NoError(t, err)
	assert.False(t, outcome.Recorded)
	assert.Equal(t, MessageNoActivity, outcome.Title)
	assert.Equal(t, ReasonInsignificant, outcome.Reason)

	f.gateway.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	assert.Empty(t, f.store.Activities().List)

	// values reset for the next session
	assert.Equal(t, 0, f.rec.Status().Snapshot.ElapsedSeconds)
}

func TestRecorder_FailedSaveKeepsActivityPending(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	_, err := f.rec.Start(ctx)
	require.NoError(t, err)
	f.push(t, 0, 0)
	f.push(t, 0, 0.001)
	f.waitFor(t, func(s Status) bool { return s.Snapshot.DistanceKm > 0.1 })

	f.gateway.On("Save", mock.Anything, mock.Anything).Return(errors.New("network down")).Once()

	outcome, err := f.rec.Stop(ctx)
	require.Error(t, err)
	assert.True(t, shared.HasCode(err, shared.ErrCodePersistenceFailed))
	assert.Equal(t, MessagePersistenceFailed, err.Error())
	assert.True(t, outcome.Pending)
	assert.False(t, outcome.Recorded)

	assert.Empty(t, f.store.Activities().List, "local list is untouched on failure")
	require.Len(t, f.rec.Pending(), 1)
	assert.Equal(t, 1, f.rec.Status().Pending)

	// retry succeeds and lands the activity in the list
	f.gateway.On("Save", mock.Anything, mock.Anything).Return(nil).Once()
	saved, err := f.rec.Retry(ctx)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, outcome.Activity.ID, saved[0].ID)
	assert.Len(t, f.store.Activities().List, 1)
	assert.Empty(t, f.rec.Pending())

	_, err = f.rec.Retry(ctx)
	assert.True(t, shared.HasCode(err, shared.ErrCodeNoPendingActivity))
}

func TestRecorder_RetryFailureKeepsOrder(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	f.gateway.On("Save", mock.Anything, mock.Anything).Return(errors.New("down")).Times(2)
	for i := 0; i < 2; i++ {
		_, err := f.rec.Start(ctx)
		require.NoError(t, err)
		f.push(t, 0, 0)
		f.push(t, 0, 0.001)
		f.waitFor(t, func(s Status) bool { return s.Snapshot.DistanceKm > 0.1 })
		_, err = f.rec.Stop(ctx)
		require.Error(t, err)
	}
	pending := f.rec.Pending()
	require.Len(t, pending, 2)

	f.gateway.On("Save", mock.Anything, mock.Anything).Return(errors.New("still down")).Once()
	saved, err := f.rec.Retry(ctx)
	require.Error(t, err)
	assert.Empty(t, saved)
	assert.Equal(t, pending, f.rec.Pending())

	assert.Equal(t, 2, f.rec.DiscardPending())
	assert.Empty(t, f.rec.Pending())
	assert.Empty(t, f.store.Activities().List)
}

func TestRecorder_PermissionDeniedTracksDurationOnly(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	result, err := f.rec.Start(ctx)
	require.NoError(t, err)
	assert.False(t, result.LocationPermitted)
	assert.False(t, f.sampler.Watching())

	f.clock.tick(t)
	f.clock.tick(t)
	f.waitFor(t, func(s Status) bool { return s.Snapshot.ElapsedSeconds == 2 })

	outcome, err := f.rec.Stop(ctx)
	require.NoError(t, err)
	assert.False(t, outcome.Recorded)
	assert.Equal(t, 2, outcome.Totals.ElapsedSeconds)
}

func TestRecorder_StopReleasesClockAndSampler(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	_, err := f.rec.Start(ctx)
	require.NoError(t, err)
	require.True(t, f.sampler.Watching())

	_, err = f.rec.Stop(ctx)
	require.NoError(t, err)

	assert.False(t, f.sampler.Watching())
	select {
	case f.clock.ch <- time.Now():
		t.Fatal("clock still running after stop")
	case <-time.After(20 * time.Millisecond):
	}

	_, err = f.sampler.Push(ctx, tracking.Sample{Position: tracking.Position{Lat: 1, Lng: 1}})
	assert.ErrorIs(t, err, tracking.ErrNotWatching)
}

func TestRecorder_LateEventsAreIgnored(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	result, err := f.rec.Start(ctx)
	require.NoError(t, err)
	f.clock.tick(t)
	f.waitFor(t, func(s Status) bool { return s.Snapshot.ElapsedSeconds == 1 })

	_, err = f.rec.Stop(ctx)
	require.NoError(t, err)

	// a tick or fix delivered after stop for the old session changes nothing
	f.rec.onTick(ctx, result.SessionID)
	f.rec.onSample(ctx, result.SessionID, tracking.Sample{Position: tracking.Position{Lat: 5, Lng: 5}})
	status := f.rec.Status()
	assert.Equal(t, 0, status.Snapshot.ElapsedSeconds)
	assert.Nil(t, status.Snapshot.LastPosition)
	assert.Equal(t, tracking.StateIdle, status.Snapshot.State)
}

func TestRecorder_InvalidTransitions(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	_, err := f.rec.Stop(ctx)
	assert.True(t, shared.HasCode(err, shared.ErrCodeInvalidStateTransition))

	_, err = f.rec.Start(ctx)
	require.NoError(t, err)
	_, err = f.rec.Start(ctx)
	assert.True(t, shared.HasCode(err, shared.ErrCodeInvalidStateTransition))
}

func TestRecorder_SamplerErrorsAndInvalidFixesAreIgnored(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	_, err := f.rec.Start(ctx)
	require.NoError(t, err)

	_, err = f.sampler.Push(ctx, tracking.Sample{Err: errors.New("gps lost")})
	require.NoError(t, err)
	f.push(t, 95, 0)
	f.push(t, 1, 1)
	f.waitFor(t, func(s Status) bool { return s.Snapshot.LastPosition != nil })

	status := f.rec.Status()
	assert.True(t, status.Snapshot.State == tracking.StateActive)
	assert.Equal(t, tracking.Position{Lat: 1, Lng: 1}, *status.Snapshot.LastPosition)
	assert.Equal(t, 0.0, status.Snapshot.DistanceKm)
}

func TestRecorder_ProgressEventsCarryChanges(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	_, err := f.rec.Start(ctx)
	require.NoError(t, err)
	f.clock.tick(t)
	f.waitFor(t, func(s Status) bool { return s.Snapshot.ElapsedSeconds == 1 })
	f.clock.tick(t)
	f.waitFor(t, func(s Status) bool { return s.Snapshot.ElapsedSeconds == 2 })

	require.Eventually(t, func() bool { return len(f.publisher.progress()) == 2 }, time.Second, time.Millisecond)
	events := f.publisher.progress()

	assert.Nil(t, events[0].Changes, "first snapshot has nothing to diff against")
	assert.Equal(t, map[string]interface{}{"elapsed_seconds": float64(2)}, events[1].Changes)
	assert.Equal(t, "user-1", events[1].UserID)
}

func TestRecorder_CloseAbandonsActiveSession(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	_, err := f.rec.Start(ctx)
	require.NoError(t, err)
	f.push(t, 0, 0)
	f.push(t, 0, 0.01)
	f.waitFor(t, func(s Status) bool { return s.Snapshot.DistanceKm > 1 })

	f.rec.Close()
	f.rec.Close()

	assert.False(t, f.sampler.Watching())
	assert.Equal(t, tracking.StateIdle, f.rec.Status().Snapshot.State)
	f.gateway.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)

	_, err = f.rec.Start(ctx)
	assert.True(t, shared.HasCode(err, shared.ErrCodeInvalidOperation))
}

func TestRecorder_LocalStatsFollowList(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	f.gateway.On("Save", mock.Anything, mock.Anything).Return(nil)

	for i := 0; i < 2; i++ {
		_, err := f.rec.Start(ctx)
		require.NoError(t, err)
		f.clock.tick(t)
		f.push(t, 0, 0)
		f.push(t, 0, 0.01)
		f.waitFor(t, func(s Status) bool { return s.Snapshot.ElapsedSeconds == 1 && s.Snapshot.DistanceKm > 1 })
		_, err = f.rec.Stop(ctx)
		require.NoError(t, err)
	}

	stats := f.store.Stats()
	assert.Equal(t, 2, stats.TotalActivities)
	assert.InDelta(t, 2.22, stats.TotalDistanceKm, 1e-9)
	assert.Equal(t, 2, stats.TotalDurationSeconds)
}

func TestRecorder_AbandonKeepsRecorderUsable(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	assert.False(t, f.rec.Abandon())

	_, err := f.rec.Start(ctx)
	require.NoError(t, err)
	f.clock.tick(t)
	f.waitFor(t, func(s Status) bool { return s.Snapshot.ElapsedSeconds == 1 })

	assert.True(t, f.rec.Abandon())
	assert.Equal(t, 0, f.rec.Status().Snapshot.ElapsedSeconds)
	assert.False(t, f.sampler.Watching())

	_, err = f.rec.Start(ctx)
	require.NoError(t, err)
	assert.True(t, f.sampler.Watching())
}

func TestRecorder_ThreeFixesTenTicks(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	_, err := f.rec.Start(ctx)
	require.NoError(t, err)
	f.push(t, 0, 0)
	f.push(t, 0, 0.001)
	f.push(t, 0, 0.002)
	for i := 0; i < 10; i++ {
		f.clock.tick(t)
	}
	f.waitFor(t, func(s Status) bool {
		return s.Snapshot.ElapsedSeconds == 10 && s.Snapshot.LastPosition != nil && s.Snapshot.LastPosition.Lng == 0.002
	})

	var saved *activity.Activity
	f.gateway.On("Save", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		saved = args.Get(1).(*activity.Activity)
	}).Return(nil).Once()

	outcome, err := f.rec.Stop(ctx)
	require.NoError(t, err)
	assert.True(t, outcome.Recorded)
	assert.InDelta(t, 0.2224, outcome.Totals.DistanceKm, 0.001, "two hops of about 0.111 km")

	require.NotNil(t, saved)
	assert.Equal(t, 10, saved.DurationSeconds)
	assert.Equal(t, 0.22, saved.DistanceKm)
	assert.Equal(t, activity.TypeRun, saved.Type)
	assert.Equal(t, "user-1", saved.OwnerID)
	f.gateway.AssertNumberOfCalls(t, "Save", 1)
}

func TestRecorder_StopResetsSessionValues(t *testing.T) {
	for _, saveErr := range []error{nil, errors.New("offline")} {
		f := newFixture(t, true)
		ctx := context.Background()

		_, err := f.rec.Start(ctx)
		require.NoError(t, err)
		f.clock.tick(t)
		f.push(t, 0, 0)
		f.push(t, 0, 0.01)
		f.waitFor(t, func(s Status) bool { return s.Snapshot.ElapsedSeconds == 1 && s.Snapshot.DistanceKm > 1 })

		f.gateway.On("Save", mock.Anything, mock.Anything).Return(saveErr).Once()
		outcome, _ := f.rec.Stop(ctx)
		assert.Equal(t, 1, outcome.Totals.ElapsedSeconds)

		status := f.rec.Status()
		assert.Equal(t, tracking.StateIdle, status.Snapshot.State)
		assert.Equal(t, 0, status.Snapshot.ElapsedSeconds)
		assert.Equal(t, 0.0, status.Snapshot.DistanceKm)
		assert.Nil(t, status.Snapshot.LastPosition)
	}
}

func TestRecorder_ExpireSavesSignificantSession(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	_, expired, err := f.rec.Expire(ctx)
	require.NoError(t, err)
	assert.False(t, expired)

	_, err = f.rec.Start(ctx)
	require.NoError(t, err)
	f.push(t, 0, 0)
	f.push(t, 0, 0.01)
	f.waitFor(t, func(s Status) bool { return s.Snapshot.DistanceKm > 1 })

	f.gateway.On("Save", mock.Anything, mock.Anything).Return(errors.New("offline")).Once()
	outcome, expired, err := f.rec.Expire(ctx)
	assert.True(t, expired)
	assert.True(t, shared.HasCode(err, shared.ErrCodePersistenceFailed))
	assert.True(t, outcome.Pending)
	assert.Len(t, f.rec.Pending(), 1)
	assert.False(t, f.sampler.Watching())
}

func TestRecorder_ExpireAbandonsInsignificantSession(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	_, err := f.rec.Start(ctx)
	require.NoError(t, err)
	f.clock.tick(t)
	f.waitFor(t, func(s Status) bool { return s.Snapshot.ElapsedSeconds == 1 })

	outcome, expired, err := f.rec.Expire(ctx)
	require.NoError(t, err)
	assert.True(t, expired)
	assert.Equal(t, ReasonAbandoned, outcome.Reason)
	assert.Equal(t, tracking.StateIdle, f.rec.Status().Snapshot.State)
	f.gateway.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}
