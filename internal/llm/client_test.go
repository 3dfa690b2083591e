// ABOUTME: Tests for the chat completions client against an httptest server.
// ABOUTME: Covers auth headers, tool-call decoding, and error surfaces.

package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Complete(t *testing.T) {
	var gotAuth string
	var gotReq chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"choices": [{"message": {"role": "assistant", "content": "All three lights are on."}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 50, "completion_tokens": 10, "total_tokens": 60}
		}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key", "test-model", nil)
	msg, usage, err := c.Complete(context.Background(), []Message{
		{Role: "user", Content: "turn on the lights"},
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "test-model", gotReq.Model)
	assert.Equal(t, "All three lights are on.", msg.Content)
	assert.Equal(t, 60, usage.TotalTokens)
}

func TestClient_CompleteToolCalls(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"choices": [{"message": {
				"role": "assistant",
				"content": "",
				"tool_calls": [{"id": "call_1", "type": "function",
					"function": {"name": "set_state", "arguments": "{\"selector\":\"all\",\"power\":\"on\"}"}}]
			}, "finish_reason": "tool_calls"}],
			"usage": {"total_tokens": 80}
		}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", "m", nil)
	msg, _, err := c.Complete(context.Background(), nil, []Tool{
		{Type: "function", Function: ToolSpec{Name: "set_state"}},
	})
	require.NoError(t, err)

	require.Len(t, msg.ToolCalls, 1)
	assert.Equal(t, "call_1", msg.ToolCalls[0].ID)
	assert.Equal(t, "set_state", msg.ToolCalls[0].Function.Name)
	assert.JSONEq(t, `{"selector":"all","power":"on"}`, msg.ToolCalls[0].Function.Arguments)
}

func TestClient_CompleteHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"invalid api key"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "bad-key", "m", nil)
	_, _, err := c.Complete(context.Background(), nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.Contains(t, err.Error(), "invalid api key")
}

func TestClient_CompleteEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices": []}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", "m", nil)
	_, _, err := c.Complete(context.Background(), nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}

func TestClient_TrailingSlashBaseURL(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "k", "m", nil)
	_, _, err := c.Complete(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "/chat/completions", gotPath)
}
