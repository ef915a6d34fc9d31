package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/danghamo/stride/internal/api/jsonrpcx"
	"github.com/danghamo/stride/internal/app/recorder"
	"github.com/danghamo/stride/internal/app/service"
	"github.com/danghamo/stride/internal/domain/activity"
	"github.com/danghamo/stride/internal/domain/tracking"
	"github.com/danghamo/stride/pkg/logger"
)

// SessionHandler exposes the recording session of the signed-in user
type SessionHandler struct {
	logger   *logger.Logger
	sessions *service.SessionService
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(logger *logger.Logger, sessions *service.SessionService) *SessionHandler {
	return &SessionHandler{
		logger:   logger.WithComponent("session-handler"),
		sessions: sessions,
	}
}

type StartSessionRequest struct {
	// LocationPermitted is the device's location permission; absent means granted
	LocationPermitted *bool `json:"location_permitted,omitempty"`
}

type StartSessionResponse = recorder.StartResult

type PushFixRequest struct {
	Lat float64 `json:"latitude" example:"37.7749"`
	Lng float64 `json:"longitude" example:"-122.4194"`
}

type PushFixResponse struct {
	Accepted bool `json:"accepted"`
}

type ReportErrorRequest struct {
	Message string `json:"message" example:"Location request timed out"`
}

type ReportErrorResponse struct {
	Reported bool `json:"reported"`
}

type StopSessionResponse = recorder.Outcome

type SessionStatusResponse = recorder.Status

type RetryResponse struct {
	Saved []*activity.Activity `json:"saved"`
}

type DiscardResponse struct {
	Discarded int `json:"discarded"`
}

// Start handles POST /api/v1/session.Start
// @Summary Start recording
// @Description Starts the clock and position sampling. A denied location permission degrades the session to duration-only tracking.
// @Tags session
// @Accept json
// @Produce json
// @Param request body jsonrpcx.RequestT[StartSessionRequest] true "JSON-RPC request with StartSessionRequest params"
// @Success 200 {object} jsonrpcx.ResponseT[StartSessionResponse] "Session started"
// @Failure 400 {object} jsonrpcx.ErrorResponse "A session is already recording"
// @Security BearerAuth
// @Router /api/v1/session.Start [post]
func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	var params StartSessionRequest
	c, ok := parseCall(r, &params, true)
	if !ok {
		return
	}

	permitted := params.LocationPermitted == nil || *params.LocationPermitted
	result, err := h.sessions.Start(r.Context(), c.userID, permitted)
	if err != nil {
		jsonrpcx.WithDomainError(r, c.req.ID, err)
		return
	}

	h.logger.Info("Session started",
		zap.String("userId", c.userID),
		zap.String("sessionId", result.SessionID),
		zap.Bool("locationPermitted", result.LocationPermitted))
	jsonrpcx.Success(w, c.req.ID, result)
}

// PushFix handles POST /api/v1/session.PushFix
// @Summary Push a position fix
// @Description Feeds one device fix into the running session. accepted is false when the distance filter or fastest interval dropped it, or when the session runs without location permission.
// @Tags session
// @Accept json
// @Produce json
// @Param request body jsonrpcx.RequestT[PushFixRequest] true "JSON-RPC request with PushFixRequest params"
// @Success 200 {object} jsonrpcx.ResponseT[PushFixResponse]
// @Failure 400 {object} jsonrpcx.ErrorResponse "Invalid position or no active session"
// @Failure 429 {object} jsonrpcx.ErrorResponse "Too many fixes"
// @Security BearerAuth
// @Router /api/v1/session.PushFix [post]
func (h *SessionHandler) PushFix(w http.ResponseWriter, r *http.Request) {
	var params PushFixRequest
	c, ok := parseCall(r, &params, true)
	if !ok {
		return
	}

	position, err := tracking.NewPosition(params.Lat, params.Lng)
	if err != nil {
		jsonrpcx.WithDomainError(r, c.req.ID, err)
		return
	}

	accepted, err := h.sessions.PushFix(r.Context(), c.userID, position)
	if err != nil {
		jsonrpcx.WithDomainError(r, c.req.ID, err)
		return
	}

	jsonrpcx.Success(w, c.req.ID, PushFixResponse{Accepted: accepted})
}

// ReportError handles POST /api/v1/session.ReportError
// @Summary Report a location error
// @Description Records a transient device location error. The session keeps running.
// @Tags session
// @Accept json
// @Produce json
// @Param request body jsonrpcx.RequestT[ReportErrorRequest] true "JSON-RPC request with ReportErrorRequest params"
// @Success 200 {object} jsonrpcx.ResponseT[ReportErrorResponse]
// @Failure 400 {object} jsonrpcx.ErrorResponse "No active session"
// @Security BearerAuth
// @Router /api/v1/session.ReportError [post]
func (h *SessionHandler) ReportError(w http.ResponseWriter, r *http.Request) {
	var params ReportErrorRequest
	c, ok := parseCall(r, &params, true)
	if !ok {
		return
	}
	if params.Message == "" {
		jsonrpcx.WithError(r, c.req.ID, jsonrpcx.InvalidParams, "message is required")
		return
	}

	if err := h.sessions.ReportLocationError(r.Context(), c.userID, params.Message); err != nil {
		jsonrpcx.WithDomainError(r, c.req.ID, err)
		return
	}

	jsonrpcx.Success(w, c.req.ID, ReportErrorResponse{Reported: true})
}

// Stop handles POST /api/v1/session.Stop
// @Summary Stop recording
// @Description Stops the session. Insignificant sessions are not saved. A failed save keeps the activity pending for session.Retry.
// @Tags session
// @Accept json
// @Produce json
// @Param request body jsonrpcx.RequestT[EmptyParams] true "JSON-RPC request"
// @Success 200 {object} jsonrpcx.ResponseT[StopSessionResponse] "Outcome of the session"
// @Failure 400 {object} jsonrpcx.ErrorResponse "No active session or save failed"
// @Security BearerAuth
// @Router /api/v1/session.Stop [post]
func (h *SessionHandler) Stop(w http.ResponseWriter, r *http.Request) {
	c, ok := parseCall(r, nil, true)
	if !ok {
		return
	}

	outcome, err := h.sessions.Stop(r.Context(), c.userID)
	if err != nil {
		h.logger.Warn("Session stop failed", zap.String("userId", c.userID), zap.Error(err))
		jsonrpcx.WithDomainError(r, c.req.ID, err)
		return
	}

	jsonrpcx.Success(w, c.req.ID, outcome)
}

// Status handles POST /api/v1/session.Status
// @Summary Session status
// @Tags session
// @Accept json
// @Produce json
// @Param request body jsonrpcx.RequestT[EmptyParams] true "JSON-RPC request"
// @Success 200 {object} jsonrpcx.ResponseT[SessionStatusResponse] "Live duration, distance, pace and pending saves"
// @Security BearerAuth
// @Router /api/v1/session.Status [post]
func (h *SessionHandler) Status(w http.ResponseWriter, r *http.Request) {
	c, ok := parseCall(r, nil, true)
	if !ok {
		return
	}

	jsonrpcx.Success(w, c.req.ID, h.sessions.Status(c.userID))
}

// Retry handles POST /api/v1/session.Retry
// @Summary Retry pending saves
// @Description Re-attempts saving activities whose save failed, oldest first
// @Tags session
// @Accept json
// @Produce json
// @Param request body jsonrpcx.RequestT[EmptyParams] true "JSON-RPC request"
// @Success 200 {object} jsonrpcx.ResponseT[RetryResponse] "Saved activities"
// @Failure 400 {object} jsonrpcx.ErrorResponse "Nothing pending or save failed again"
// @Security BearerAuth
// @Router /api/v1/session.Retry [post]
func (h *SessionHandler) Retry(w http.ResponseWriter, r *http.Request) {
	c, ok := parseCall(r, nil, true)
	if !ok {
		return
	}

	saved, err := h.sessions.Retry(r.Context(), c.userID)
	if err != nil {
		jsonrpcx.WithDomainError(r, c.req.ID, err)
		return
	}

	jsonrpcx.Success(w, c.req.ID, RetryResponse{Saved: saved})
}

// Discard handles POST /api/v1/session.Discard
// @Summary Discard pending saves
// @Tags session
// @Accept json
// @Produce json
// @Param request body jsonrpcx.RequestT[EmptyParams] true "JSON-RPC request"
// @Success 200 {object} jsonrpcx.ResponseT[DiscardResponse]
// @Security BearerAuth
// @Router /api/v1/session.Discard [post]
func (h *SessionHandler) Discard(w http.ResponseWriter, r *http.Request) {
	c, ok := parseCall(r, nil, true)
	if !ok {
		return
	}

	jsonrpcx.Success(w, c.req.ID, DiscardResponse{Discarded: h.sessions.Discard(c.userID)})
}
