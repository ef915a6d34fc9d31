package handlers

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/danghamo/stride/internal/api/jsonrpcx"
	cqrsevents "github.com/danghamo/stride/internal/cqrs"
	"github.com/danghamo/stride/internal/domain/tracking"
	"github.com/danghamo/stride/pkg/logger"
)

// Notification methods pushed on the session stream
const (
	MethodSessionStarted   = "session.started"
	MethodSessionProgress  = "session.progress"
	MethodSessionStopped   = "session.stopped"
	MethodActivityRecorded = "activity.recorded"
)

// SSEBroadcaster interface for broadcasting SSE messages
type SSEBroadcaster interface {
	BroadcastToUsers(targetUsers []string, notification jsonrpcx.JsonRpcNotification)
	BroadcastToAll(notification jsonrpcx.JsonRpcNotification)
}

// SSEEventHandler converts domain events into SSE notifications for the
// clients connected to this instance
type SSEEventHandler struct {
	sseBroadcaster SSEBroadcaster
	logger         *logger.Logger
}

// NewSSEEventHandler creates a new SSE event handler
func NewSSEEventHandler(sseBroadcaster SSEBroadcaster, logger *logger.Logger) *SSEEventHandler {
	return &SSEEventHandler{
		sseBroadcaster: sseBroadcaster,
		logger:         logger.WithComponent("sse-event-handler"),
	}
}

// HandleSessionStartedEvent notifies the session owner that recording began
func (h *SSEEventHandler) HandleSessionStartedEvent(ctx context.Context, event *cqrsevents.SessionStartedEvent) error {
	h.logger.Debug("Handling session started event",
		zap.String("userId", event.UserID),
		zap.String("sessionId", event.SessionID))

	h.sseBroadcaster.BroadcastToUsers([]string{event.UserID}, jsonrpcx.NewNotification(MethodSessionStarted, map[string]interface{}{
		"session_id":         event.SessionID,
		"location_permitted": event.LocationPermitted,
		"timestamp":          event.Timestamp.Format(time.RFC3339),
	}))

	return nil
}

// HandleSessionProgressEvent pushes live duration, distance and pace
func (h *SSEEventHandler) HandleSessionProgressEvent(ctx context.Context, event *cqrsevents.SessionProgressEvent) error {
	snap := event.Snapshot
	params := map[string]interface{}{
		"session_id":      event.SessionID,
		"state":           snap.State,
		"elapsed_seconds": snap.ElapsedSeconds,
		"duration":        tracking.FormatDuration(snap.ElapsedSeconds),
		"distance_km":     snap.DistanceKm,
		"pace":            snap.Pace,
		"changes":         event.Changes,
		"timestamp":       event.Timestamp.Format(time.RFC3339),
	}
	if snap.LastPosition != nil {
		params["last_position"] = snap.LastPosition
	}

	h.sseBroadcaster.BroadcastToUsers([]string{event.UserID}, jsonrpcx.NewNotification(MethodSessionProgress, params))
	return nil
}

// HandleSessionStoppedEvent notifies the owner of the stop outcome
func (h *SSEEventHandler) HandleSessionStoppedEvent(ctx context.Context, event *cqrsevents.SessionStoppedEvent) error {
	h.logger.Debug("Handling session stopped event",
		zap.String("userId", event.UserID),
		zap.String("sessionId", event.SessionID),
		zap.Bool("recorded", event.Recorded))

	h.sseBroadcaster.BroadcastToUsers([]string{event.UserID}, jsonrpcx.NewNotification(MethodSessionStopped, map[string]interface{}{
		"session_id":      event.SessionID,
		"recorded":        event.Recorded,
		"pending":         event.Pending,
		"reason":          event.Reason,
		"elapsed_seconds": event.Totals.ElapsedSeconds,
		"distance_km":     event.Totals.DistanceKm,
		"timestamp":       event.Timestamp.Format(time.RFC3339),
	}))

	return nil
}

// HandleActivityRecordedEvent pushes the saved activity to its owner
func (h *SSEEventHandler) HandleActivityRecordedEvent(ctx context.Context, event *cqrsevents.ActivityRecordedEvent) error {
	h.logger.Debug("Handling activity recorded event",
		zap.String("userId", event.UserID),
		zap.String("requestId", event.RequestID))

	h.sseBroadcaster.BroadcastToUsers([]string{event.UserID}, jsonrpcx.NewNotification(MethodActivityRecorded, map[string]interface{}{
		"activity":  event.Activity,
		"summary":   event.Summary,
		"timestamp": event.Timestamp.Format(time.RFC3339),
	}))

	return nil
}

// HandleSSENotificationEvent handles SSENotificationEvent for distributed SSE messaging
func (h *SSEEventHandler) HandleSSENotificationEvent(ctx context.Context, event *cqrsevents.SSENotificationEvent) error {
	h.logger.Debug("Handling SSE notification event",
		zap.String("type", event.Type),
		zap.Strings("targetUsers", event.TargetUsers),
		zap.String("method", event.Method),
		zap.String("requestId", event.RequestID))

	notification := jsonrpcx.NewNotification(event.Method, event.Params)

	switch event.Type {
	case cqrsevents.SSENotificationTypeUsers:
		if len(event.TargetUsers) > 0 {
			h.sseBroadcaster.BroadcastToUsers(event.TargetUsers, notification)
		}
	case cqrsevents.SSENotificationTypeBroadcast:
		h.sseBroadcaster.BroadcastToAll(notification)
	default:
		h.logger.Warn("Unknown SSE notification type", zap.String("type", event.Type))
	}

	return nil
}
