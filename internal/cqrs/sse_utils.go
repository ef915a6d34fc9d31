package cqrs

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Publisher publishes events onto the bus
type Publisher interface {
	Publish(ctx context.Context, event interface{}) error
}

// SSENotifier routes stream notifications that are not tied to a session
// event through the bus, so the instance holding the user's stream delivers
// them
type SSENotifier struct {
	bus Publisher
}

// NewSSENotifier creates a notifier publishing on bus
func NewSSENotifier(bus Publisher) *SSENotifier {
	return &SSENotifier{bus: bus}
}

// Notify sends method to every stream the user has open. An empty userID
// is a no-op.
func (n *SSENotifier) Notify(ctx context.Context, userID, method string, params interface{}) error {
	if userID == "" {
		return nil
	}
	return n.bus.Publish(ctx, notification(SSENotificationTypeUsers, []string{userID}, method, params))
}

func notification(kind string, users []string, method string, params interface{}) *SSENotificationEvent {
	return &SSENotificationEvent{
		Type:        kind,
		TargetUsers: users,
		Method:      method,
		Params:      params,
		Timestamp:   time.Now(),
		RequestID:   uuid.New().String(),
	}
}
