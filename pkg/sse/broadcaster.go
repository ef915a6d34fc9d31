package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/danghamo/stride/internal/api/jsonrpcx"
	"github.com/danghamo/stride/internal/api/middleware"
	"github.com/danghamo/stride/pkg/logger"
)

const (
	clientBufferSize         = 64
	defaultHeartbeatInterval = 30 * time.Second
)

// SSEClient represents a connected SSE client. Only the connection's own
// HandleSSE goroutine writes to the response.
type SSEClient struct {
	ID     string
	UserID string
	send   chan []byte
	done   chan struct{}
	once   sync.Once
}

func newClient(id, userID string) *SSEClient {
	return &SSEClient{
		ID:     id,
		UserID: userID,
		send:   make(chan []byte, clientBufferSize),
		done:   make(chan struct{}),
	}
}

func (c *SSEClient) close() {
	c.once.Do(func() { close(c.done) })
}

// SyncFunc returns the notification sent to a client right after it
// connects, or false when there is nothing to sync
type SyncFunc func(userID string) (jsonrpcx.JsonRpcNotification, bool)

// SSEBroadcaster manages SSE connections and fans notifications out to them
type SSEBroadcaster struct {
	logger      *logger.Logger
	mutex       sync.RWMutex
	clients     map[string]*SSEClient
	userClients map[string]map[string]*SSEClient
	heartbeat   time.Duration
	sync        SyncFunc
	shutdown    chan struct{}
	closeOnce   sync.Once
}

// NewSSEBroadcaster creates a new SSE broadcaster
func NewSSEBroadcaster(logger *logger.Logger) *SSEBroadcaster {
	return &SSEBroadcaster{
		logger:      logger.WithComponent("sse-broadcaster"),
		clients:     make(map[string]*SSEClient),
		userClients: make(map[string]map[string]*SSEClient),
		heartbeat:   defaultHeartbeatInterval,
		shutdown:    make(chan struct{}),
	}
}

// WithHeartbeat sets the keep-alive interval
func (b *SSEBroadcaster) WithHeartbeat(interval time.Duration) *SSEBroadcaster {
	if interval > 0 {
		b.heartbeat = interval
	}
	return b
}

// WithSync sets the initial sync sent on connect
func (b *SSEBroadcaster) WithSync(sync SyncFunc) *SSEBroadcaster {
	b.sync = sync
	return b
}

// AddClient registers a client
func (b *SSEBroadcaster) AddClient(client *SSEClient) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.clients[client.ID] = client
	if b.userClients[client.UserID] == nil {
		b.userClients[client.UserID] = make(map[string]*SSEClient)
	}
	b.userClients[client.UserID][client.ID] = client

	b.logger.Debug("SSE client connected",
		zap.String("clientId", client.ID),
		zap.String("userId", client.UserID))
}

// RemoveClient unregisters a client and signals its connection to end
func (b *SSEBroadcaster) RemoveClient(clientID string) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	client, exists := b.clients[clientID]
	if !exists {
		return
	}
	client.close()
	delete(b.clients, clientID)

	if userClients := b.userClients[client.UserID]; userClients != nil {
		delete(userClients, clientID)
		if len(userClients) == 0 {
			delete(b.userClients, client.UserID)
		}
	}

	b.logger.Debug("SSE client disconnected",
		zap.String("clientId", clientID),
		zap.String("userId", client.UserID))
}

// BroadcastToAll sends a notification to every connected client
func (b *SSEBroadcaster) BroadcastToAll(notification jsonrpcx.JsonRpcNotification) {
	data, err := json.Marshal(notification)
	if err != nil {
		b.logger.Error("Failed to marshal JSON-RPC notification", zap.Error(err))
		return
	}

	b.mutex.RLock()
	clients := make([]*SSEClient, 0, len(b.clients))
	for _, client := range b.clients {
		clients = append(clients, client)
	}
	b.mutex.RUnlock()

	for _, client := range clients {
		b.enqueue(client, data)
	}
}

// BroadcastToUsers sends a notification to the given users' connections on
// this server; users connected elsewhere are skipped
func (b *SSEBroadcaster) BroadcastToUsers(targetUsers []string, notification jsonrpcx.JsonRpcNotification) {
	if len(targetUsers) == 0 {
		return
	}

	b.mutex.RLock()
	var clients []*SSEClient
	for _, userID := range targetUsers {
		for _, client := range b.userClients[userID] {
			clients = append(clients, client)
		}
	}
	b.mutex.RUnlock()

	if len(clients) == 0 {
		b.logger.Debug("No target users connected to this server",
			zap.Strings("targetUsers", targetUsers))
		return
	}

	data, err := json.Marshal(notification)
	if err != nil {
		b.logger.Error("Failed to marshal user notification", zap.Error(err))
		return
	}

	for _, client := range clients {
		b.enqueue(client, data)
	}
}

// enqueue never blocks; a client that cannot keep up loses the message
func (b *SSEBroadcaster) enqueue(client *SSEClient, data []byte) {
	select {
	case <-client.done:
	case client.send <- data:
	default:
		b.logger.Warn("SSE client buffer full, dropping message",
			zap.String("clientId", client.ID),
			zap.String("userId", client.UserID))
	}
}

// GetClientCount returns the number of connected clients
func (b *SSEBroadcaster) GetClientCount() int {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	return len(b.clients)
}

// UserConnected reports whether a user has an open stream on this server
func (b *SSEBroadcaster) UserConnected(userID string) bool {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	return len(b.userClients[userID]) > 0
}

// Close ends every connection. It is safe to call more than once.
func (b *SSEBroadcaster) Close() {
	b.closeOnce.Do(func() {
		b.logger.Debug("Shutting down SSE broadcaster")
		close(b.shutdown)

		b.mutex.Lock()
		defer b.mutex.Unlock()
		for _, client := range b.clients {
			client.close()
		}
		b.clients = make(map[string]*SSEClient)
		b.userClients = make(map[string]map[string]*SSEClient)
	})
}

// HandleSSE streams the authenticated user's notifications
func (b *SSEBroadcaster) HandleSSE(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		b.logger.Error("SSE: Authentication failed - no user ID in context")
		http.Error(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		b.logger.Error("SSE: Client does not support flusher interface")
		http.Error(w, "Server-Sent Events not supported", http.StatusInternalServerError)
		return
	}

	select {
	case <-b.shutdown:
		http.Error(w, "Server shutting down", http.StatusServiceUnavailable)
		return
	default:
	}

	w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	// streams outlive the server's write timeout
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	client := newClient(fmt.Sprintf("%s-%d", userID, time.Now().UnixNano()), userID)
	b.AddClient(client)
	defer b.RemoveClient(client.ID)

	if err := writeEvent(w, flusher, []byte(fmt.Sprintf(`{"type":"connected","client_id":%q}`, client.ID))); err != nil {
		return
	}

	if b.sync != nil {
		if notification, ok := b.sync(userID); ok {
			if data, err := json.Marshal(notification); err == nil {
				if err := writeEvent(w, flusher, data); err != nil {
					return
				}
			}
		}
	}

	heartbeat := time.NewTicker(b.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-client.done:
			return
		case <-r.Context().Done():
			b.logger.Debug("SSE request context cancelled", zap.String("clientId", client.ID))
			return
		case <-b.shutdown:
			return
		case data := <-client.send:
			if err := writeEvent(w, flusher, data); err != nil {
				b.logger.Warn("Failed to send to client", zap.String("clientId", client.ID), zap.Error(err))
				return
			}
		case <-heartbeat.C:
			payload := fmt.Sprintf(`{"type":"heartbeat","timestamp":%q}`, time.Now().Format(time.RFC3339))
			if err := writeEvent(w, flusher, []byte(payload)); err != nil {
				b.logger.Warn("Failed to send heartbeat", zap.String("clientId", client.ID), zap.Error(err))
				return
			}
		}
	}
}

// writeEvent writes one SSE data frame in a single write and flushes it
func writeEvent(w http.ResponseWriter, flusher http.Flusher, data []byte) error {
	frame := fmt.Sprintf("data: %s\n\n", data)
	n, err := w.Write([]byte(frame))
	if err != nil {
		return fmt.Errorf("write failed: %w", err)
	}
	if n != len(frame) {
		return fmt.Errorf("incomplete write: wrote %d/%d bytes", n, len(frame))
	}
	flusher.Flush()
	return nil
}
