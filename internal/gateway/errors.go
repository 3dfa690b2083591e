// ABOUTME: Maps internal error taxonomy onto HTTP statuses and stable codes.
// ABOUTME: Detail strings are suppressed unless dev mode is on.

package gateway

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/2389/lumen-gateway/internal/jsonrpc"
	"github.com/2389/lumen-gateway/internal/lifx"
	"github.com/2389/lumen-gateway/internal/orchestrator"
	"github.com/2389/lumen-gateway/internal/session"
	"github.com/2389/lumen-gateway/internal/worker"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// classify maps an error to its HTTP status, stable code, and safe message.
func classify(err error) (int, string, string) {
	var rpcErr *jsonrpc.Error
	switch {
	case errors.Is(err, orchestrator.ErrConcurrencyExceeded):
		return http.StatusServiceUnavailable, "concurrency_exceeded", "too many concurrent requests, try again shortly"
	case errors.Is(err, session.ErrRateLimited):
		return http.StatusTooManyRequests, "rate_limited", "session rate limit exceeded"
	case errors.Is(err, lifx.ErrCredentialFormat):
		return http.StatusBadRequest, "credential_format_error", "credential is not a plausible LIFX token"
	case errors.Is(err, orchestrator.ErrBadRequest):
		return http.StatusBadRequest, "bad_request", "request needs a message or a tool name"
	case errors.Is(err, orchestrator.ErrRestrictedTool):
		return http.StatusForbidden, "restricted_tool", "tool not permitted in restrictive mode"
	case errors.Is(err, orchestrator.ErrToolRoundsExceeded):
		return http.StatusBadGateway, "tool_rounds_exceeded", "model did not finish within the tool round budget"
	case errors.Is(err, worker.ErrSpawnTimeout):
		return http.StatusBadGateway, "spawn_timeout", "worker did not start in time"
	case errors.Is(err, worker.ErrSpawn):
		return http.StatusBadGateway, "spawn_error", "worker failed to start"
	case errors.Is(err, worker.ErrInitialization):
		return http.StatusBadGateway, "initialization_failure", "worker handshake failed"
	case errors.Is(err, worker.ErrMethodTimeout):
		return http.StatusGatewayTimeout, "method_timeout", "worker call timed out"
	case errors.Is(err, worker.ErrProcessExited):
		return http.StatusBadGateway, "protocol_error", "worker process died mid-request"
	case errors.As(err, &rpcErr):
		return http.StatusBadGateway, rpcErrorCode(rpcErr), rpcErr.Message
	default:
		return http.StatusInternalServerError, "internal_error", "internal error"
	}
}

// rpcErrorCode buckets a JSON-RPC error from the worker. Parse and
// invalid-request codes mean the wire protocol itself broke; everything
// else (method not found, invalid params, internal, tool-defined codes)
// is a failure of the requested tool call.
func rpcErrorCode(rpcErr *jsonrpc.Error) string {
	switch rpcErr.Code {
	case jsonrpc.CodeParseError, jsonrpc.CodeInvalidRequest:
		return "protocol_error"
	default:
		return "tool_execution_error"
	}
}

// writeError sends the structured error body. The raw error string rides
// along as detail only in dev mode.
func (g *Gateway) writeError(w http.ResponseWriter, err error) {
	status, code, message := classify(err)

	body := errorBody{Code: code, Message: message}
	if g.cfg.Server.DevMode {
		body.Detail = err.Error()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeErrorCode sends a fixed code without classification, for the
// middleware layer.
func writeErrorCode(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Code: code, Message: message})
}
