package tracking

import (
	"github.com/danghamo/stride/internal/domain/shared"
)

// MinSignificantDistanceKm is the smallest distance worth persisting
const MinSignificantDistanceKm = 0.01

// State represents the lifecycle state of a recording session
type State string

const (
	StateIdle   State = "idle"
	StateActive State = "active"
)

// String returns string representation
func (s State) String() string {
	return string(s)
}

// Totals are the final values of a stopped session
type Totals struct {
	ElapsedSeconds int     `json:"elapsed_seconds"`
	DistanceKm     float64 `json:"distance_km"`
}

// Significant reports whether the totals clear the minimum distance
func (t Totals) Significant() bool {
	return t.DistanceKm >= MinSignificantDistanceKm
}

// Snapshot is a read-only view of a session, pace included
type Snapshot struct {
	State          State     `json:"state"`
	ElapsedSeconds int       `json:"elapsed_seconds"`
	DistanceKm     float64   `json:"distance_km"`
	Pace           float64   `json:"pace_min_per_km"`
	LastPosition   *Position `json:"last_position,omitempty"`
}

// Session is the recording state machine. It is not safe for concurrent
// use; callers serialize access.
type Session struct {
	state          State
	elapsedSeconds int
	distanceKm     float64
	lastPosition   *Position
}

// NewSession creates an idle session
func NewSession() *Session {
	return &Session{state: StateIdle}
}

// State returns the current lifecycle state
func (s *Session) State() State {
	return s.state
}

// IsActive reports whether the session is recording
func (s *Session) IsActive() bool {
	return s.state == StateActive
}

// Start resets the session and begins recording
func (s *Session) Start() error {
	if s.state != StateIdle {
		return transitionError("start", s.state)
	}
	s.reset()
	s.state = StateActive
	return nil
}

// OnFix applies a new position fix
func (s *Session) OnFix(p Position) error {
	if s.state != StateActive {
		return transitionError("fix", s.state)
	}
	if !p.Valid() {
		return shared.NewDomainErrorf(shared.ErrCodeInvalidPosition, "Invalid position %s", p)
	}

	s.distanceKm += Accumulate(s.lastPosition, p)
	last := p
	s.lastPosition = &last
	return nil
}

// OnTick advances the elapsed time by one second
func (s *Session) OnTick() error {
	if s.state != StateActive {
		return transitionError("tick", s.state)
	}
	s.elapsedSeconds++
	return nil
}

// Stop ends recording and returns the final totals. Insignificant sessions
// are reset immediately; significant ones keep their values until Reset or
// the next Start.
func (s *Session) Stop() (Totals, error) {
	if s.state != StateActive {
		return Totals{}, transitionError("stop", s.state)
	}

	totals := Totals{
		ElapsedSeconds: s.elapsedSeconds,
		DistanceKm:     s.distanceKm,
	}
	s.state = StateIdle
	if !totals.Significant() {
		s.reset()
	}
	return totals, nil
}

// Reset clears an idle session back to its start-state defaults
func (s *Session) Reset() {
	if s.state == StateIdle {
		s.reset()
	}
}

// Snapshot returns the current values with pace derived from them
func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		State:          s.state,
		ElapsedSeconds: s.elapsedSeconds,
		DistanceKm:     s.distanceKm,
		Pace:           Pace(s.elapsedSeconds, s.distanceKm),
	}
	if s.lastPosition != nil {
		last := *s.lastPosition
		snap.LastPosition = &last
	}
	return snap
}

func (s *Session) reset() {
	s.elapsedSeconds = 0
	s.distanceKm = 0
	s.lastPosition = nil
}

func transitionError(op string, state State) error {
	return shared.NewDomainErrorf(shared.ErrCodeInvalidStateTransition,
		"Cannot %s a session that is %s", op, state)
}
