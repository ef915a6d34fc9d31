package recorder

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"go.uber.org/zap"

	"github.com/danghamo/stride/internal/app/store"
	cqrsevents "github.com/danghamo/stride/internal/cqrs"
	"github.com/danghamo/stride/internal/domain/activity"
	"github.com/danghamo/stride/internal/domain/shared"
	"github.com/danghamo/stride/internal/domain/tracking"
	"github.com/danghamo/stride/pkg/logger"
)

// User-facing outcome messages
const (
	MessageNoActivity        = "No Activity"
	ReasonInsignificant      = "No significant distance was recorded"
	MessageActivitySaved     = "Activity Saved!"
	MessagePersistenceFailed = "Failed to save activity. Please try again."
	ReasonAbandoned          = "Session was abandoned"
)

// Gateway persists finished activities
type Gateway interface {
	Save(ctx context.Context, a *activity.Activity) error
}

// EventPublisher publishes session events
type EventPublisher interface {
	Publish(ctx context.Context, event interface{}) error
}

// Config holds per-recorder settings
type Config struct {
	OwnerID        string
	ActivityType   activity.Type
	SamplerOptions tracking.SamplerOptions
	Now            func() time.Time
}

// StartResult describes a newly started session
type StartResult struct {
	SessionID         string `json:"session_id"`
	LocationPermitted bool   `json:"location_permitted"`
}

// Outcome describes what happened when a session stopped
type Outcome struct {
	Recorded bool               `json:"recorded"`
	Pending  bool               `json:"pending"`
	Title    string             `json:"title"`
	Reason   string             `json:"reason,omitempty"`
	Summary  string             `json:"summary,omitempty"`
	Totals   tracking.Totals    `json:"totals"`
	Activity *activity.Activity `json:"activity,omitempty"`
}

// Status is a read-only view of the recorder
type Status struct {
	SessionID string            `json:"session_id,omitempty"`
	Snapshot  tracking.Snapshot `json:"snapshot"`
	Pending   int               `json:"pending"`
}

// Recorder drives one recording session at a time. Ticks, fixes, start and
// stop are serialized through mu; a single pump goroutine per activation
// forwards clock and sampler events in source order.
type Recorder struct {
	mu        sync.Mutex
	session   *tracking.Session
	clock     tracking.Clock
	sampler   tracking.Sampler
	gateway   Gateway
	list      store.ActivityList
	publisher EventPublisher
	logger    *logger.Logger
	cfg       Config

	sessionID    string
	cancel       context.CancelFunc
	done         chan struct{}
	lastSnapshot []byte
	pending      []*activity.Activity
	closed       bool
}

// New creates an idle recorder. publisher may be nil.
func New(
	cfg Config,
	clock tracking.Clock,
	sampler tracking.Sampler,
	gateway Gateway,
	list store.ActivityList,
	publisher EventPublisher,
	log *logger.Logger,
) *Recorder {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.ActivityType == "" {
		cfg.ActivityType = activity.TypeRun
	}

	return &Recorder{
		session:   tracking.NewSession(),
		clock:     clock,
		sampler:   sampler,
		gateway:   gateway,
		list:      list,
		publisher: publisher,
		logger:    log.WithComponent("recorder").WithUserID(cfg.OwnerID),
		cfg:       cfg,
	}
}

// Start begins a new session, activating the clock and, when permitted,
// the position sampler. Denied permission degrades to duration-only tracking.
func (r *Recorder) Start(ctx context.Context) (StartResult, error) {
	permitted, err := r.sampler.RequestPermission(ctx)
	if err != nil {
		r.logger.Warn("Location permission request failed", zap.Error(err))
		permitted = false
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return StartResult{}, shared.ErrInvalidOperation("recorder is closed")
	}
	if err := r.session.Start(); err != nil {
		r.mu.Unlock()
		return StartResult{}, err
	}

	sessionID := shared.NewID().String()
	runCtx, cancel := context.WithCancel(context.Background())

	ticks := r.clock.Ticks(runCtx)
	var samples <-chan tracking.Sample
	if permitted {
		samples, err = r.sampler.Watch(runCtx, r.cfg.SamplerOptions)
		if err != nil {
			r.logger.Warn("Position sampler unavailable, tracking duration only", zap.Error(err))
			permitted = false
			samples = nil
		}
	}

	r.sessionID = sessionID
	r.cancel = cancel
	r.done = make(chan struct{})
	r.lastSnapshot = nil
	go r.pump(runCtx, sessionID, ticks, samples, r.done)
	r.mu.Unlock()

	r.logger.Info("Recording session started",
		zap.String("session_id", sessionID),
		zap.Bool("location_permitted", permitted))

	r.publish(ctx, &cqrsevents.SessionStartedEvent{
		UserID:            r.cfg.OwnerID,
		SessionID:         sessionID,
		LocationPermitted: permitted,
		Timestamp:         r.cfg.Now(),
		RequestID:         shared.NewID().String(),
	})

	return StartResult{SessionID: sessionID, LocationPermitted: permitted}, nil
}

// Stop ends the active session. Clock and sampler are released before any
// I/O. Significant sessions are saved; a failed save keeps the activity
// pending for Retry and leaves the local list untouched. Either way the
// session is back at its start-state values once Stop returns.
func (r *Recorder) Stop(ctx context.Context) (Outcome, error) {
	r.mu.Lock()
	totals, err := r.session.Stop()
	if err != nil {
		r.mu.Unlock()
		return Outcome{}, err
	}
	sessionID := r.sessionID
	cancel, done := r.detachLocked()
	r.mu.Unlock()

	cancel()
	<-done

	log := r.logger.WithSessionID(sessionID)

	if !totals.Significant() {
		log.Info("Session discarded, no significant distance",
			zap.Int("elapsed_seconds", totals.ElapsedSeconds),
			zap.Float64("distance_km", totals.DistanceKm))

		r.publishStopped(ctx, sessionID, totals, false, false, ReasonInsignificant)
		return Outcome{Title: MessageNoActivity, Reason: ReasonInsignificant, Totals: totals}, nil
	}

	a, err := activity.NewActivity(totals, r.cfg.ActivityType, r.cfg.OwnerID, r.cfg.Now())
	if err != nil {
		return Outcome{}, err
	}

	if err := r.gateway.Save(ctx, a); err != nil {
		log.Error("Failed to save activity", zap.String("activity_id", a.ID.String()), zap.Error(err))

		r.mu.Lock()
		r.pending = append(r.pending, a)
		r.resetLocked(sessionID)
		r.mu.Unlock()

		r.publishStopped(ctx, sessionID, totals, false, true, MessagePersistenceFailed)
		return Outcome{Pending: true, Title: MessagePersistenceFailed, Totals: totals, Activity: a},
			shared.NewDomainError(shared.ErrCodePersistenceFailed, MessagePersistenceFailed)
	}

	r.list.PrependActivity(a)
	r.mu.Lock()
	r.resetLocked(sessionID)
	r.mu.Unlock()

	log.Info("Activity saved",
		zap.String("activity_id", a.ID.String()),
		zap.Int("duration", a.DurationSeconds),
		zap.Float64("distance_km", a.DistanceKm))

	r.publishStopped(ctx, sessionID, totals, true, false, "")
	r.publishRecorded(ctx, sessionID, a)

	return Outcome{
		Recorded: true,
		Title:    MessageActivitySaved,
		Summary:  a.Summary(),
		Totals:   totals,
		Activity: a,
	}, nil
}

// Expire ends a session whose device went quiet and reports whether one was
// running. Sessions with significant distance go through the save path, so
// a failed save stays pending; the rest are abandoned.
func (r *Recorder) Expire(ctx context.Context) (Outcome, bool, error) {
	r.mu.Lock()
	if !r.session.IsActive() {
		r.mu.Unlock()
		return Outcome{}, false, nil
	}
	snap := r.session.Snapshot()
	r.mu.Unlock()

	totals := tracking.Totals{ElapsedSeconds: snap.ElapsedSeconds, DistanceKm: snap.DistanceKm}
	if !totals.Significant() {
		if !r.Abandon() {
			return Outcome{}, false, nil
		}
		return Outcome{Title: MessageNoActivity, Reason: ReasonAbandoned}, true, nil
	}

	outcome, err := r.Stop(ctx)
	if shared.HasCode(err, shared.ErrCodeInvalidStateTransition) {
		// stopped by the user in the meantime
		return Outcome{}, false, nil
	}
	return outcome, true, err
}

// resetLocked clears the stopped session's values unless a newer session
// has started since
func (r *Recorder) resetLocked(sessionID string) {
	if r.sessionID == sessionID {
		r.session.Reset()
	}
}

// Retry saves pending activities oldest first, stopping at the first failure
func (r *Recorder) Retry(ctx context.Context) ([]*activity.Activity, error) {
	r.mu.Lock()
	pending := r.pending
	r.pending = nil
	r.mu.Unlock()

	if len(pending) == 0 {
		return nil, shared.NewDomainError(shared.ErrCodeNoPendingActivity, "No activity is waiting to be saved")
	}

	saved := make([]*activity.Activity, 0, len(pending))
	for i, a := range pending {
		if err := r.gateway.Save(ctx, a); err != nil {
			r.logger.Error("Retry failed to save activity", zap.String("activity_id", a.ID.String()), zap.Error(err))

			r.mu.Lock()
			r.pending = append(append([]*activity.Activity{}, pending[i:]...), r.pending...)
			r.mu.Unlock()

			return saved, shared.NewDomainError(shared.ErrCodePersistenceFailed, MessagePersistenceFailed)
		}

		r.list.PrependActivity(a)
		saved = append(saved, a)
		r.publishRecorded(ctx, "", a)
	}

	r.logger.Info("Pending activities saved", zap.Int("count", len(saved)))
	return saved, nil
}

// DiscardPending drops every activity awaiting a retry
func (r *Recorder) DiscardPending() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.pending)
	r.pending = nil
	if n > 0 {
		r.logger.Info("Pending activities discarded", zap.Int("count", n))
	}
	return n
}

// Pending returns the activities awaiting a retry
func (r *Recorder) Pending() []*activity.Activity {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*activity.Activity{}, r.pending...)
}

// Status returns the current session view
func (r *Recorder) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	status := Status{Snapshot: r.session.Snapshot(), Pending: len(r.pending)}
	if r.session.IsActive() {
		status.SessionID = r.sessionID
	}
	return status
}

// Abandon ends an active session without saving it and reports whether a
// session was running
func (r *Recorder) Abandon() bool {
	return r.abandon(false)
}

// Close tears the recorder down, abandoning an active session without
// saving it. It is safe to call more than once.
func (r *Recorder) Close() {
	r.abandon(true)
}

func (r *Recorder) abandon(closing bool) bool {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return false
	}
	if closing {
		r.closed = true
		if n := len(r.pending); n > 0 {
			r.logger.Warn("Dropping pending activities on close", zap.Int("count", n))
		}
	}
	active := r.session.IsActive()
	sessionID := r.sessionID
	if active {
		_, _ = r.session.Stop()
		r.logger.Warn("Abandoning active session", zap.String("session_id", sessionID))
	}
	r.session.Reset()
	cancel, done := r.detachLocked()
	r.mu.Unlock()

	cancel()
	<-done

	if active {
		r.publishStopped(context.Background(), sessionID, tracking.Totals{}, false, false, ReasonAbandoned)
	}
	return active
}

// detachLocked hands the current activation's cancel func and done channel
// to the caller, who must cancel and then wait outside the lock
func (r *Recorder) detachLocked() (context.CancelFunc, <-chan struct{}) {
	cancel, done := r.cancel, r.done
	r.cancel, r.done = nil, nil
	if cancel == nil {
		closed := make(chan struct{})
		close(closed)
		return func() {}, closed
	}
	return cancel, done
}

// pump forwards ticks and samples until ctx is cancelled, then drains both
// channels so their producers have released before done closes
func (r *Recorder) pump(ctx context.Context, sessionID string, ticks <-chan time.Time, samples <-chan tracking.Sample, done chan struct{}) {
	defer close(done)
	defer func() {
		if ticks != nil {
			for range ticks {
			}
		}
		if samples != nil {
			for range samples {
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-ticks:
			if !ok {
				ticks = nil
				continue
			}
			r.onTick(ctx, sessionID)
		case s, ok := <-samples:
			if !ok {
				samples = nil
				continue
			}
			r.onSample(ctx, sessionID, s)
		}
	}
}

func (r *Recorder) onTick(ctx context.Context, sessionID string) {
	r.mu.Lock()
	if r.sessionID != sessionID || !r.session.IsActive() {
		r.mu.Unlock()
		return
	}
	if err := r.session.OnTick(); err != nil {
		r.mu.Unlock()
		return
	}
	event := r.progressLocked()
	r.mu.Unlock()

	r.publish(ctx, event)
}

func (r *Recorder) onSample(ctx context.Context, sessionID string, s tracking.Sample) {
	if s.Err != nil {
		r.logger.Warn("Position sampler error", zap.String("session_id", sessionID), zap.Error(s.Err))
		return
	}

	r.mu.Lock()
	if r.sessionID != sessionID || !r.session.IsActive() {
		r.mu.Unlock()
		return
	}
	if err := r.session.OnFix(s.Position); err != nil {
		r.mu.Unlock()
		r.logger.Warn("Ignoring position fix", zap.String("session_id", sessionID), zap.Error(err))
		return
	}
	event := r.progressLocked()
	r.mu.Unlock()

	r.publish(ctx, event)
}

// progressLocked builds a progress event whose changes are the JSON merge
// patch from the previously published snapshot
func (r *Recorder) progressLocked() *cqrsevents.SessionProgressEvent {
	snap := r.session.Snapshot()
	event := &cqrsevents.SessionProgressEvent{
		UserID:    r.cfg.OwnerID,
		SessionID: r.sessionID,
		Snapshot:  snap,
		Timestamp: r.cfg.Now(),
		RequestID: shared.NewID().String(),
	}

	current, err := json.Marshal(snap)
	if err != nil {
		return event
	}
	if r.lastSnapshot != nil {
		if patch, err := jsonpatch.CreateMergePatch(r.lastSnapshot, current); err == nil {
			changes := map[string]interface{}{}
			if err := json.Unmarshal(patch, &changes); err == nil {
				event.Changes = changes
			}
		}
	}
	r.lastSnapshot = current
	return event
}

func (r *Recorder) publishStopped(ctx context.Context, sessionID string, totals tracking.Totals, recorded, pending bool, reason string) {
	r.publish(ctx, &cqrsevents.SessionStoppedEvent{
		UserID:    r.cfg.OwnerID,
		SessionID: sessionID,
		Totals:    totals,
		Recorded:  recorded,
		Pending:   pending,
		Reason:    reason,
		Timestamp: r.cfg.Now(),
		RequestID: shared.NewID().String(),
	})
}

func (r *Recorder) publishRecorded(ctx context.Context, sessionID string, a *activity.Activity) {
	r.publish(ctx, &cqrsevents.ActivityRecordedEvent{
		UserID:    r.cfg.OwnerID,
		SessionID: sessionID,
		Activity:  a,
		Summary:   a.Summary(),
		Timestamp: r.cfg.Now(),
		RequestID: shared.NewID().String(),
	})
}

func (r *Recorder) publish(ctx context.Context, event interface{}) {
	if r.publisher == nil {
		return
	}
	if err := r.publisher.Publish(ctx, event); err != nil {
		r.logger.Warn("Failed to publish session event", zap.Error(err))
	}
}
