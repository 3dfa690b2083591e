// ABOUTME: JSON-RPC 2.0 request/response types and standard error codes.
// ABOUTME: Mirrors the MCP wire shapes used by tool workers over stdio.

package jsonrpc

import (
	"encoding/json"
	"strconv"
)

// Version is the only supported JSON-RPC version string.
const Version = "2.0"

// Standard JSON-RPC error codes
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// Request represents an outbound JSON-RPC 2.0 request.
// A Request with an empty ID is serialized as a notification.
type Request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      string `json:"id,omitempty"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// NewRequest builds a request for the given correlation id, method and params.
func NewRequest(id, method string, params any) Request {
	return Request{JSONRPC: Version, ID: id, Method: method, Params: params}
}

// NewNotification builds a request with no id; the worker must not reply to it.
func NewNotification(method string, params any) Request {
	return Request{JSONRPC: Version, Method: method, Params: params}
}

// Error represents a JSON-RPC 2.0 error object.
type Error struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	return "jsonrpc error " + strconv.Itoa(e.Code) + ": " + e.Message
}

// Message is a decoded inbound JSON-RPC 2.0 message. It may be a response
// (ID plus Result or Error) or a server-initiated request/notification
// (Method set). The codec does not reject either shape; the correlation
// layer decides what to do with each.
type Message struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// IsResponse reports whether the message is a call response: it carries an
// id and no method. Stray requests and notifications from the worker are
// not responses and never participate in correlation.
func (m *Message) IsResponse() bool {
	return m.Method == "" && len(m.ID) > 0 && string(m.ID) != "null"
}

// IDString returns the message id as a plain string. String ids are
// unquoted; numeric ids are returned in their literal form so that
// correlation by string comparison still works.
func (m *Message) IDString() string {
	var s string
	if err := json.Unmarshal(m.ID, &s); err == nil {
		return s
	}
	return string(m.ID)
}
