// ABOUTME: Request/response correlation and the MCP conversation over stdio.
// ABOUTME: Call matches responses by id; Initialize, ListTools, CallTool build on it.

package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/2389/lumen-gateway/internal/jsonrpc"
)

// protocolVersion is the MCP revision the gateway speaks to its workers.
const protocolVersion = "2025-03-26"

// newCallID builds an id unique across the process lifetime: a millisecond
// timestamp for ordering plus a random suffix against collisions.
func newCallID() string {
	return fmt.Sprintf("%d-%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}

// Call sends one JSON-RPC request and waits for the matching response,
// bounded by the method timeout. On timeout the call detaches; a response
// arriving later is dropped, never misdelivered.
func (h *Handle) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	return h.call(ctx, method, params, h.methodTimeout)
}

func (h *Handle) call(ctx context.Context, method string, params any, timeout time.Duration) (json.RawMessage, error) {
	id := newCallID()
	ch, err := h.register(id)
	if err != nil {
		return nil, err
	}

	frame, err := jsonrpc.Encode(jsonrpc.NewRequest(id, method, params))
	if err != nil {
		h.deregister(id)
		return nil, err
	}
	if err := h.writeLine(frame); err != nil {
		h.deregister(id)
		return nil, err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		if res.err != nil {
			return nil, res.err
		}
		return res.result, nil
	case <-timer.C:
		h.deregister(id)
		return nil, fmt.Errorf("%w: %s after %s", ErrMethodTimeout, method, timeout)
	case <-ctx.Done():
		h.deregister(id)
		return nil, ctx.Err()
	}
}

// Notify sends a JSON-RPC notification; no response is expected.
func (h *Handle) Notify(method string, params any) error {
	frame, err := jsonrpc.Encode(jsonrpc.NewNotification(method, params))
	if err != nil {
		return err
	}
	return h.writeLine(frame)
}

// InitializeResult is the worker's half of the MCP handshake.
type InitializeResult struct {
	ProtocolVersion string `json:"protocolVersion"`
	ServerInfo      struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	} `json:"serverInfo"`
}

// Initialize performs the MCP handshake: an initialize call bounded by the
// init timeout, then the initialized notification. The Handle is not ready
// for tool calls until this succeeds.
func (h *Handle) Initialize(ctx context.Context) (*InitializeResult, error) {
	params := map[string]any{
		"protocolVersion": protocolVersion,
		"capabilities":    map[string]any{},
		"clientInfo": map[string]any{
			"name":    "lumen-gateway",
			"version": "1.0.0",
		},
	}

	raw, err := h.call(ctx, "initialize", params, h.initTimeout)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInitialization, err)
	}

	var res InitializeResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("%w: decoding result: %v", ErrInitialization, err)
	}

	if err := h.Notify("notifications/initialized", nil); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInitialization, err)
	}

	h.logger.Debug("worker initialized",
		"session_id", h.SessionID,
		"server", res.ServerInfo.Name,
		"protocol", res.ProtocolVersion)
	return &res, nil
}

// ToolInfo describes one tool the worker advertises.
type ToolInfo struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"inputSchema,omitempty"`
}

// ListTools asks the worker for its tool catalog.
func (h *Handle) ListTools(ctx context.Context) ([]ToolInfo, error) {
	raw, err := h.Call(ctx, "tools/list", map[string]any{})
	if err != nil {
		return nil, err
	}
	var res struct {
		Tools []ToolInfo `json:"tools"`
	}
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("decoding tools/list result: %w", err)
	}
	return res.Tools, nil
}

// ToolResult is the outcome of one tool invocation. Text is the
// concatenated text content; IsError marks a tool-level failure that the
// worker reported in-band.
type ToolResult struct {
	Text    string
	IsError bool
}

// CallTool invokes one worker tool with the given arguments.
func (h *Handle) CallTool(ctx context.Context, name string, args map[string]any) (*ToolResult, error) {
	if args == nil {
		args = map[string]any{}
	}
	raw, err := h.Call(ctx, "tools/call", map[string]any{
		"name":      name,
		"arguments": args,
	})
	if err != nil {
		return nil, err
	}

	var res struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		IsError bool `json:"isError"`
	}
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("decoding tools/call result: %w", err)
	}

	out := &ToolResult{IsError: res.IsError}
	for _, c := range res.Content {
		if c.Type != "text" {
			continue
		}
		if out.Text != "" {
			out.Text += "\n"
		}
		out.Text += c.Text
	}
	return out, nil
}
