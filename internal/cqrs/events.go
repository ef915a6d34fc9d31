package cqrs

import (
	"time"

	"github.com/danghamo/stride/internal/domain/activity"
	"github.com/danghamo/stride/internal/domain/tracking"
)

// SessionStartedEvent is published when a recording session becomes active
type SessionStartedEvent struct {
	UserID            string    `json:"user_id"`
	SessionID         string    `json:"session_id"`
	LocationPermitted bool      `json:"location_permitted"`
	Timestamp         time.Time `json:"timestamp"`
	RequestID         string    `json:"request_id"`
}

// SessionProgressEvent carries the live session values after a tick or fix
type SessionProgressEvent struct {
	UserID    string                 `json:"user_id"`
	SessionID string                 `json:"session_id"`
	Snapshot  tracking.Snapshot      `json:"snapshot"`
	Changes   map[string]interface{} `json:"changes,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	RequestID string                 `json:"request_id"`
}

// SessionStoppedEvent is published when a session ends, saved or not
type SessionStoppedEvent struct {
	UserID    string          `json:"user_id"`
	SessionID string          `json:"session_id"`
	Totals    tracking.Totals `json:"totals"`
	Recorded  bool            `json:"recorded"`
	Pending   bool            `json:"pending"`
	Reason    string          `json:"reason,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	RequestID string          `json:"request_id"`
}

// ActivityRecordedEvent is published after an activity has been persisted
type ActivityRecordedEvent struct {
	UserID    string             `json:"user_id"`
	SessionID string             `json:"session_id"`
	Activity  *activity.Activity `json:"activity"`
	Summary   string             `json:"summary"`
	Timestamp time.Time          `json:"timestamp"`
	RequestID string             `json:"request_id"`
}

// SSENotificationEvent represents an event to send SSE notifications
type SSENotificationEvent struct {
	Type        string      `json:"type"`
	TargetUsers []string    `json:"target_users,omitempty"` // empty for broadcast
	Method      string      `json:"method"`
	Params      interface{} `json:"params"`
	Timestamp   time.Time   `json:"timestamp"`
	RequestID   string      `json:"request_id"`
}

// Event types for different notification patterns
const (
	SSENotificationTypeBroadcast = "broadcast" // Send to all users
	SSENotificationTypeUsers     = "users"     // Send to specific list of users
)
