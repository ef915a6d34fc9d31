package handlers

import (
	"net/http"

	"github.com/danghamo/stride/internal/api/jsonrpcx"
	"github.com/danghamo/stride/internal/app/service"
)

// ProfileHandler serves the profile screen
type ProfileHandler struct {
	profiles *service.ProfileService
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(profiles *service.ProfileService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

type ProfileResponse = service.Profile

// Get handles POST /api/v1/profile.Get
// @Summary Profile and all-time stats
// @Description User, stats derived from the local activity list and the remote totals counters
// @Tags profile
// @Accept json
// @Produce json
// @Param request body jsonrpcx.RequestT[EmptyParams] true "JSON-RPC request"
// @Success 200 {object} jsonrpcx.ResponseT[ProfileResponse]
// @Security BearerAuth
// @Router /api/v1/profile.Get [post]
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, ok := parseCall(r, nil, true)
	if !ok {
		return
	}

	profile, err := h.profiles.Get(r.Context(), c.userID)
	if err != nil {
		jsonrpcx.WithDomainError(r, c.req.ID, err)
		return
	}

	jsonrpcx.Success(w, c.req.ID, profile)
}
