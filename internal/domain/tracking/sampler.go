package tracking

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Accuracy is the desired fix accuracy requested from a sampler
type Accuracy string

const (
	AccuracyHighest  Accuracy = "highest"
	AccuracyBalanced Accuracy = "balanced"
)

// SamplerOptions configures a position sampler
type SamplerOptions struct {
	Accuracy             Accuracy      `mapstructure:"accuracy" json:"accuracy"`
	DistanceFilterMeters float64       `mapstructure:"distance_filter_meters" json:"distance_filter_meters"`
	Interval             time.Duration `mapstructure:"interval" json:"interval"`
	FastestInterval      time.Duration `mapstructure:"fastest_interval" json:"fastest_interval"`
}

// DefaultSamplerOptions mirrors the recording screen's geolocation settings
func DefaultSamplerOptions() SamplerOptions {
	return SamplerOptions{
		Accuracy:             AccuracyHighest,
		DistanceFilterMeters: 10,
		Interval:             5000 * time.Millisecond,
		FastestInterval:      2000 * time.Millisecond,
	}
}

// Sample is one sampler event: either a fix or a non-fatal error
type Sample struct {
	Position Position
	Err      error
	At       time.Time
}

// Sampler produces a lazy, restartable stream of samples.
// The channel returned by Watch is closed after ctx is cancelled.
type Sampler interface {
	RequestPermission(ctx context.Context) (bool, error)
	Watch(ctx context.Context, opts SamplerOptions) (<-chan Sample, error)
}

var (
	// ErrNotWatching is returned when a fix is pushed with no active watcher
	ErrNotWatching = errors.New("sampler is not being watched")
	// ErrAlreadyWatching is returned when a second watcher attaches
	ErrAlreadyWatching = errors.New("sampler already has an active watcher")
)

const pushBufferSize = 64

// PushSampler is a Sampler fed by externally pushed fixes, e.g. a device
// streaming its GPS readings over the API.
type PushSampler struct {
	mu        sync.Mutex
	permitted bool
	watcher   *pushWatcher
}

type pushWatcher struct {
	ctx     context.Context
	ch      chan Sample
	opts    SamplerOptions
	limiter *rate.Limiter
	last    *Position
}

// NewPushSampler creates a push sampler with the given location permission
func NewPushSampler(permitted bool) *PushSampler {
	return &PushSampler{permitted: permitted}
}

// SetPermission records the device's location permission
func (s *PushSampler) SetPermission(permitted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.permitted = permitted
}

// RequestPermission implements Sampler
func (s *PushSampler) RequestPermission(_ context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.permitted, nil
}

// Watch implements Sampler
func (s *PushSampler) Watch(ctx context.Context, opts SamplerOptions) (<-chan Sample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.watcher != nil {
		return nil, ErrAlreadyWatching
	}

	w := &pushWatcher{
		ctx:  ctx,
		ch:   make(chan Sample, pushBufferSize),
		opts: opts,
	}
	if opts.FastestInterval > 0 {
		w.limiter = rate.NewLimiter(rate.Every(opts.FastestInterval), 1)
	}
	s.watcher = w

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.watcher == w {
			s.watcher = nil
		}
		close(w.ch)
	}()

	return w.ch, nil
}

// Push delivers a sample to the active watcher. It reports false when the
// fix was filtered by the distance filter or the fastest interval.
func (s *PushSampler) Push(ctx context.Context, sample Sample) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w := s.watcher
	if w == nil || w.ctx.Err() != nil {
		return false, ErrNotWatching
	}
	if !s.permitted && sample.Err == nil {
		return false, nil
	}

	if sample.Err == nil {
		if w.last != nil && w.opts.DistanceFilterMeters > 0 &&
			w.last.DistanceKm(sample.Position)*1000 < w.opts.DistanceFilterMeters {
			return false, nil
		}
		if w.limiter != nil && !w.limiter.Allow() {
			return false, nil
		}
		last := sample.Position
		w.last = &last
	}
	if sample.At.IsZero() {
		sample.At = time.Now()
	}

	select {
	case w.ch <- sample:
		return true, nil
	case <-w.ctx.Done():
		return false, ErrNotWatching
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// Watching reports whether a watcher is attached
func (s *PushSampler) Watching() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.watcher != nil && s.watcher.ctx.Err() == nil
}
