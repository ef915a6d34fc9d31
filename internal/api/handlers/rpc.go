package handlers

import (
	"net/http"

	"github.com/danghamo/stride/internal/api/jsonrpcx"
	"github.com/danghamo/stride/internal/api/middleware"
)

// EmptyParams documents methods that take no params
type EmptyParams struct{}

// call is a parsed JSON-RPC call
type call struct {
	req    *jsonrpcx.JSONRPCRequest
	userID string
}

// parseCall checks the HTTP method, the caller and the envelope, then decodes
// params into the given value. On failure the matching JSON-RPC error is
// attached to r and false is returned.
func parseCall(r *http.Request, params any, requireUser bool) (*call, bool) {
	if r.Method != http.MethodPost {
		jsonrpcx.WithError(r, nil, jsonrpcx.MethodNotFound, "Method not allowed")
		return nil, false
	}

	userID, ok := middleware.GetUserID(r.Context())
	if requireUser && !ok {
		jsonrpcx.WithError(r, nil, jsonrpcx.InvalidRequest, "User not authenticated")
		return nil, false
	}

	req, err := jsonrpcx.ParseRequest(r)
	if err != nil {
		jsonrpcx.WithError(r, nil, jsonrpcx.ParseError, "Invalid JSON-RPC request")
		return nil, false
	}

	if params != nil {
		if err := req.DecodeParams(params); err != nil {
			jsonrpcx.WithError(r, req.ID, jsonrpcx.InvalidParams, "Invalid params")
			return nil, false
		}
	}

	return &call{req: req, userID: userID}, true
}
