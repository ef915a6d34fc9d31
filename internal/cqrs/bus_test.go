package cqrs

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danghamo/stride/internal/domain/tracking"
)

func TestTopicName(t *testing.T) {
	assert.Equal(t, "stride-events.SessionStartedEvent", TopicName("", "SessionStartedEvent"))
	assert.Equal(t, "custom.SessionStartedEvent", TopicName("custom", "SessionStartedEvent"))
	assert.Equal(t, "SessionProgressEvent", Marshaler.Name(&SessionProgressEvent{}))
}

func TestEventBus_RoundTrip(t *testing.T) {
	wmLogger := watermill.NopLogger{}
	pubSub := gochannel.NewGoChannel(gochannel.Config{Persistent: true}, wmLogger)
	defer pubSub.Close()

	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: time.Second}, wmLogger)
	require.NoError(t, err)

	bus, err := NewEventBus(pubSub, "test-events", wmLogger)
	require.NoError(t, err)

	processor, err := NewEventProcessor(router, pubSub, "test-events", wmLogger)
	require.NoError(t, err)

	received := make(chan *SessionProgressEvent, 1)
	err = processor.AddHandlers(cqrs.NewEventHandler("SessionProgressEvent",
		func(ctx context.Context, event *SessionProgressEvent) error {
			received <- event
			return nil
		}))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = router.Run(ctx)
	}()
	<-router.Running()

	err = bus.Publish(ctx, &SessionProgressEvent{
		UserID:    "user-1",
		SessionID: "session-1",
		Snapshot:  tracking.Snapshot{State: tracking.StateActive, ElapsedSeconds: 12, DistanceKm: 0.05},
		Changes:   map[string]interface{}{"elapsed_seconds": 12},
		Timestamp: time.Now(),
	})
	require.NoError(t, err)

	select {
	case event := <-received:
		assert.Equal(t, "user-1", event.UserID)
		assert.Equal(t, 12, event.Snapshot.ElapsedSeconds)
		assert.Equal(t, tracking.StateActive, event.Snapshot.State)
		assert.EqualValues(t, 12, event.Changes["elapsed_seconds"])
	case <-time.After(5 * time.Second):
		t.Fatal("event was not delivered")
	}

	require.NoError(t, router.Close())
}
