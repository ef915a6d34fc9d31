package handlers

import (
	"net/http"

	"github.com/danghamo/stride/internal/api/jsonrpcx"
	"github.com/danghamo/stride/internal/app/service"
	"github.com/danghamo/stride/internal/app/store"
	"github.com/danghamo/stride/internal/domain/activity"
	"github.com/danghamo/stride/pkg/logger"
)

// ActivityHandler serves the signed-in user's activity history
type ActivityHandler struct {
	logger     *logger.Logger
	activities *service.ActivityService
}

// NewActivityHandler creates a new activity handler
func NewActivityHandler(logger *logger.Logger, activities *service.ActivityService) *ActivityHandler {
	return &ActivityHandler{
		logger:     logger.WithComponent("activity-handler"),
		activities: activities,
	}
}

type ActivityIDRequest struct {
	ID string `json:"id"`
}

type ListActivitiesResponse = store.ActivitiesState

type ActivityResponse = activity.Activity

type DeleteActivityResponse struct {
	Deleted bool `json:"deleted"`
}

func (p ActivityIDRequest) activityID() (activity.ActivityID, bool) {
	return activity.ActivityID(p.ID), p.ID != ""
}

// List handles POST /api/v1/activity.List
// @Summary List activities
// @Description Activities of the signed-in user, most recent first
// @Tags activity
// @Accept json
// @Produce json
// @Param request body jsonrpcx.RequestT[EmptyParams] true "JSON-RPC request"
// @Success 200 {object} jsonrpcx.ResponseT[ListActivitiesResponse]
// @Security BearerAuth
// @Router /api/v1/activity.List [post]
func (h *ActivityHandler) List(w http.ResponseWriter, r *http.Request) {
	c, ok := parseCall(r, nil, true)
	if !ok {
		return
	}

	state, err := h.activities.List(r.Context(), c.userID)
	if err != nil {
		jsonrpcx.WithDomainError(r, c.req.ID, err)
		return
	}

	jsonrpcx.Success(w, c.req.ID, state)
}

// Get handles POST /api/v1/activity.Get
// @Summary Get an activity
// @Tags activity
// @Accept json
// @Produce json
// @Param request body jsonrpcx.RequestT[ActivityIDRequest] true "JSON-RPC request with ActivityIDRequest params"
// @Success 200 {object} jsonrpcx.ResponseT[ActivityResponse]
// @Failure 400 {object} jsonrpcx.ErrorResponse "Activity not found"
// @Security BearerAuth
// @Router /api/v1/activity.Get [post]
func (h *ActivityHandler) Get(w http.ResponseWriter, r *http.Request) {
	var params ActivityIDRequest
	c, ok := parseCall(r, &params, true)
	if !ok {
		return
	}
	id, ok := params.activityID()
	if !ok {
		jsonrpcx.WithError(r, c.req.ID, jsonrpcx.InvalidParams, "id is required")
		return
	}

	a, err := h.activities.Get(r.Context(), c.userID, id)
	if err != nil {
		jsonrpcx.WithDomainError(r, c.req.ID, err)
		return
	}

	jsonrpcx.Success(w, c.req.ID, a)
}

// Delete handles POST /api/v1/activity.Delete
// @Summary Delete an activity
// @Tags activity
// @Accept json
// @Produce json
// @Param request body jsonrpcx.RequestT[ActivityIDRequest] true "JSON-RPC request with ActivityIDRequest params"
// @Success 200 {object} jsonrpcx.ResponseT[DeleteActivityResponse]
// @Failure 400 {object} jsonrpcx.ErrorResponse "Activity not found"
// @Security BearerAuth
// @Router /api/v1/activity.Delete [post]
func (h *ActivityHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var params ActivityIDRequest
	c, ok := parseCall(r, &params, true)
	if !ok {
		return
	}
	id, ok := params.activityID()
	if !ok {
		jsonrpcx.WithError(r, c.req.ID, jsonrpcx.InvalidParams, "id is required")
		return
	}

	if err := h.activities.Delete(r.Context(), c.userID, id); err != nil {
		jsonrpcx.WithDomainError(r, c.req.ID, err)
		return
	}

	jsonrpcx.Success(w, c.req.ID, DeleteActivityResponse{Deleted: true})
}
