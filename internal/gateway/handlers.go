// ABOUTME: Request handlers for control, log query, and health endpoints.
// ABOUTME: Control admits the session, validates the credential, runs the orchestrator.

package gateway

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/2389/lumen-gateway/internal/lifx"
	"github.com/2389/lumen-gateway/internal/logsink"
	"github.com/2389/lumen-gateway/internal/orchestrator"
)

// ControlRequest is the JSON body of POST /api/control.
type ControlRequest struct {
	Credential    string         `json:"credential"`
	Message       string         `json:"message,omitempty"`
	Tool          string         `json:"tool,omitempty"`
	Args          map[string]any `json:"args,omitempty"`
	MaxToolRounds int            `json:"max_tool_rounds,omitempty"`
	Restrictive   bool           `json:"restrictive,omitempty"`
}

// ControlResponse is the success body of POST /api/control.
type ControlResponse struct {
	State      string                        `json:"state"`
	Reply      string                        `json:"reply"`
	ToolCalls  []orchestrator.ToolCallRecord `json:"tool_calls,omitempty"`
	Usage      UsageResponse                 `json:"usage"`
	DurationMS int64                         `json:"duration_ms"`
}

// UsageResponse is token accounting for the request.
type UsageResponse struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// LogsResponse is the body of GET /api/logs.
type LogsResponse struct {
	Entries []LogEntryResponse `json:"entries"`
	Count   int                `json:"count"`
}

// LogEntryResponse is one log entry as the client sees it.
type LogEntryResponse struct {
	Timestamp time.Time      `json:"timestamp"`
	Level     string         `json:"level"`
	Message   string         `json:"message"`
	Meta      map[string]any `json:"meta,omitempty"`
}

// handleControl handles POST /api/control.
func (g *Gateway) handleControl(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	sessionID := r.Header.Get(sessionHeader)

	var req ControlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorCode(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}

	if err := lifx.ValidateToken(req.Credential); err != nil {
		g.writeError(w, err)
		return
	}
	if _, err := g.sessions.Admit(sessionID, clientIP(r)); err != nil {
		g.writeError(w, err)
		return
	}

	res, err := g.orch.Handle(r.Context(), orchestrator.Request{
		SessionID:     sessionID,
		Credential:    req.Credential,
		Message:       req.Message,
		Tool:          req.Tool,
		Args:          req.Args,
		MaxToolRounds: req.MaxToolRounds,
		Restrictive:   req.Restrictive,
	})
	if err != nil {
		g.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ControlResponse{
		State:     string(res.State),
		Reply:     res.Reply,
		ToolCalls: res.ToolCalls,
		Usage: UsageResponse{
			PromptTokens:     res.Usage.PromptTokens,
			CompletionTokens: res.Usage.CompletionTokens,
			TotalTokens:      res.Usage.TotalTokens,
		},
		DurationMS: res.Duration.Milliseconds(),
	})
}

// handleLogs handles GET /api/logs with limit, level, and since filters.
// The caller sees system entries plus its own session's entries, never
// another session's.
func (g *Gateway) handleLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	sessionID := r.Header.Get(sessionHeader)

	opts := logsink.QueryOptions{Limit: g.cfg.Logs.QueryLimitCap}
	q := r.URL.Query()

	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			writeErrorCode(w, http.StatusBadRequest, "bad_request", "limit must be a positive integer")
			return
		}
		if limit > g.cfg.Logs.QueryLimitCap {
			limit = g.cfg.Logs.QueryLimitCap
		}
		opts.Limit = limit
	}
	if raw := q.Get("level"); raw != "" {
		var level slog.Level
		if err := level.UnmarshalText([]byte(raw)); err != nil {
			writeErrorCode(w, http.StatusBadRequest, "bad_request", "unknown level "+strconv.Quote(raw))
			return
		}
		opts.Level = &level
	}
	if raw := q.Get("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeErrorCode(w, http.StatusBadRequest, "bad_request", "since must be RFC 3339")
			return
		}
		opts.Since = since
	}

	entries := g.sink.Query(sessionID, logsink.StoreAll, opts)
	out := make([]LogEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, LogEntryResponse{
			Timestamp: e.Timestamp,
			Level:     e.Level.String(),
			Message:   e.Message,
			Meta:      e.Meta,
		})
	}
	writeJSON(w, http.StatusOK, LogsResponse{Entries: out, Count: len(out)})
}

// handleHealth handles GET /health; unauthenticated liveness.
func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":          "ok",
		"active_requests": g.orch.Active(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// clientIP extracts the remote address without the port.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
