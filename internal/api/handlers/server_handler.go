package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/danghamo/stride/internal/api/jsonrpcx"
)

// ActiveSessionCounter counts sessions with a live heartbeat
type ActiveSessionCounter interface {
	ActiveCount(ctx context.Context) int
}

// StreamClientCounter counts connected stream clients
type StreamClientCounter interface {
	GetClientCount() int
}

// ServerHandler handles server information requests
type ServerHandler struct {
	version     string
	environment string
	sessions    ActiveSessionCounter
	streams     StreamClientCounter
	now         func() time.Time
}

// NewServerHandler creates a new server handler
func NewServerHandler(version, environment string, sessions ActiveSessionCounter, streams StreamClientCounter) *ServerHandler {
	return &ServerHandler{
		version:     version,
		environment: environment,
		sessions:    sessions,
		streams:     streams,
		now:         time.Now,
	}
}

// ServerInfoResponse represents server information
type ServerInfoResponse struct {
	Version        string    `json:"version"`
	Environment    string    `json:"environment"`
	ActiveSessions int       `json:"active_sessions"`
	StreamClients  int       `json:"stream_clients"`
	Time           time.Time `json:"time"`
}

type PingResponse struct {
	Message string `json:"message" example:"pong"`
}

// Info handles POST /api/v1/server.Info
// @Summary Server information
// @Tags server
// @Accept json
// @Produce json
// @Param request body jsonrpcx.RequestT[EmptyParams] true "JSON-RPC request"
// @Success 200 {object} jsonrpcx.ResponseT[ServerInfoResponse]
// @Router /api/v1/server.Info [post]
func (h *ServerHandler) Info(w http.ResponseWriter, r *http.Request) {
	c, ok := parseCall(r, nil, false)
	if !ok {
		return
	}

	info := ServerInfoResponse{
		Version:     h.version,
		Environment: h.environment,
		Time:        h.now().UTC(),
	}
	if h.sessions != nil {
		info.ActiveSessions = h.sessions.ActiveCount(r.Context())
	}
	if h.streams != nil {
		info.StreamClients = h.streams.GetClientCount()
	}

	jsonrpcx.Success(w, c.req.ID, info)
}

// Ping handles POST /api/v1/server.Ping
// @Summary Liveness probe
// @Tags server
// @Accept json
// @Produce json
// @Param request body jsonrpcx.RequestT[EmptyParams] true "JSON-RPC request"
// @Success 200 {object} jsonrpcx.ResponseT[PingResponse]
// @Router /api/v1/server.Ping [post]
func (h *ServerHandler) Ping(w http.ResponseWriter, r *http.Request) {
	c, ok := parseCall(r, nil, false)
	if !ok {
		return
	}

	jsonrpcx.Success(w, c.req.ID, PingResponse{Message: "pong"})
}
