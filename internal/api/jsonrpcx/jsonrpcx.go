package jsonrpcx

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/danghamo/stride/internal/domain/shared"
)

// Version is the only supported protocol version
const Version = "2.0"

// JSONRPCRequest represents a JSON-RPC 2.0 request
type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      any             `json:"id,omitempty"`
}

// JSONRPCResponse represents a JSON-RPC 2.0 response
type JSONRPCResponse struct {
	JSONRPC string        `json:"jsonrpc"`
	Result  any           `json:"result,omitempty"`
	Error   *JSONRPCError `json:"error,omitempty"`
	ID      any           `json:"id,omitempty"`
}

// JSONRPCError represents a JSON-RPC 2.0 error
type JSONRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// JsonRpcNotification is a server-pushed JSON-RPC message without an ID
type JsonRpcNotification struct {
	Jsonrpc string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// NewNotification builds a 2.0 notification
func NewNotification(method string, params any) JsonRpcNotification {
	return JsonRpcNotification{Jsonrpc: Version, Method: method, Params: params}
}

// JSON-RPC 2.0 error codes
const (
	ParseError     = -32700
	InvalidRequest = -32600
	MethodNotFound = -32601
	InvalidParams  = -32602
	InternalError  = -32603
)

type contextKey string

const errorSlotKey contextKey = "jsonrpc_error"

// errorSlot carries a handler's error response back up to ErrorAdapter,
// surviving request copies made by intermediate middleware
type errorSlot struct {
	response *JSONRPCResponse
}

// ParseRequest parses JSON-RPC 2.0 request from HTTP request body
func ParseRequest(r *http.Request) (*JSONRPCRequest, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	defer r.Body.Close()

	var req JSONRPCRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, err
	}

	if req.JSONRPC != Version {
		return nil, fmt.Errorf("unsupported jsonrpc version %q", req.JSONRPC)
	}

	return &req, nil
}

// DecodeParams unmarshals request params into v; absent params leave v untouched
func (req *JSONRPCRequest) DecodeParams(v any) error {
	if len(req.Params) == 0 || string(req.Params) == "null" {
		return nil
	}
	return json.Unmarshal(req.Params, v)
}

// Success sends a successful JSON-RPC 2.0 response
func Success(w http.ResponseWriter, id any, result any) {
	Response(w, JSONRPCResponse{
		JSONRPC: Version,
		Result:  result,
		ID:      id,
	})
}

// WithErrorSlot prepares the request context to receive a handler error
func WithErrorSlot(r *http.Request) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), errorSlotKey, &errorSlot{}))
}

// PendingError returns the error response a handler attached, if any
func PendingError(r *http.Request) (*JSONRPCResponse, bool) {
	slot, ok := r.Context().Value(errorSlotKey).(*errorSlot)
	if !ok || slot.response == nil {
		return nil, false
	}
	return slot.response, true
}

// WithError attaches an error to the request for the ErrorAdapter middleware
func WithError(r *http.Request, id any, code int, message string) {
	withResponse(r, &JSONRPCResponse{
		JSONRPC: Version,
		Error: &JSONRPCError{
			Code:    code,
			Message: message,
		},
		ID: id,
	})
}

// WithDomainError attaches a domain error, using its integer code as the
// JSON-RPC application error code and its string code as data
func WithDomainError(r *http.Request, id any, err error) {
	code, str, ok := shared.CodeOf(err)
	if !ok {
		WithError(r, id, InternalError, "Internal server error")
		return
	}
	withResponse(r, &JSONRPCResponse{
		JSONRPC: Version,
		Error: &JSONRPCError{
			Code:    code,
			Message: err.Error(),
			Data:    map[string]string{"code": str},
		},
		ID: id,
	})
}

func withResponse(r *http.Request, response *JSONRPCResponse) {
	if slot, ok := r.Context().Value(errorSlotKey).(*errorSlot); ok {
		slot.response = response
		return
	}
	ctx := context.WithValue(r.Context(), errorSlotKey, &errorSlot{response: response})
	*r = *r.WithContext(ctx)
}

// ErrorAdapter interface for middleware to send error responses
type ErrorAdapter interface {
	SendError(w http.ResponseWriter, id any, code int, message string)
}

// errorAdapter is the private implementation of ErrorAdapter
type errorAdapter struct{}

// NewErrorAdapter creates a new error adapter for middleware use
func NewErrorAdapter() ErrorAdapter {
	return &errorAdapter{}
}

// SendError sends an error JSON-RPC 2.0 response
func (ea *errorAdapter) SendError(w http.ResponseWriter, id any, code int, message string) {
	Response(w, JSONRPCResponse{
		JSONRPC: Version,
		Error: &JSONRPCError{
			Code:    code,
			Message: message,
		},
		ID: id,
	})
}

// Response sends a JSON-RPC 2.0 response (always HTTP 200)
func Response(w http.ResponseWriter, response JSONRPCResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	// Encode errors surface in the logging middleware through the status code
	_ = json.NewEncoder(w).Encode(response)
}

// RequestT is the typed request shape used in API docs
type RequestT[T any] struct {
	JSONRPC string `json:"jsonrpc" example:"2.0"`
	Method  string `json:"method"`
	Params  T      `json:"params"`
	ID      any    `json:"id"`
}

// ResponseT is the typed success shape used in API docs
type ResponseT[T any] struct {
	JSONRPC string `json:"jsonrpc" example:"2.0"`
	Result  T      `json:"result"`
	ID      any    `json:"id"`
}

// ErrorResponse is the error shape used in API docs
type ErrorResponse struct {
	JSONRPC string       `json:"jsonrpc" example:"2.0"`
	Error   JSONRPCError `json:"error"`
	ID      any          `json:"id"`
}
