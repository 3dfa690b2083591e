// ABOUTME: HTTP client for the LIFX cloud API: list, state, toggle, effects.
// ABOUTME: Maps API status codes onto sentinel errors callers can classify.

package lifx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL is the production LIFX HTTP API endpoint.
const DefaultBaseURL = "https://api.lifx.com/v1"

var (
	// ErrUnauthorized indicates the API token was rejected.
	ErrUnauthorized = errors.New("lifx: invalid or expired token")

	// ErrSelectorUnmatched indicates the selector matched no lights.
	ErrSelectorUnmatched = errors.New("lifx: selector matched no lights")

	// ErrInvalidArgument indicates the API rejected the request body.
	ErrInvalidArgument = errors.New("lifx: invalid request")
)

// Color is the HSBK color state of a light.
type Color struct {
	Hue        float64 `json:"hue"`
	Saturation float64 `json:"saturation"`
	Kelvin     int     `json:"kelvin"`
}

// Group names a LIFX group or location a light belongs to.
type Group struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Light is one device as reported by the API.
type Light struct {
	ID         string  `json:"id"`
	Label      string  `json:"label"`
	Connected  bool    `json:"connected"`
	Power      string  `json:"power"`
	Brightness float64 `json:"brightness"`
	Color      Color   `json:"color"`
	Group      Group   `json:"group"`
	Location   Group   `json:"location"`
}

// State is a partial desired state; nil fields are left unchanged.
type State struct {
	Power      string   `json:"power,omitempty"`
	Color      string   `json:"color,omitempty"`
	Brightness *float64 `json:"brightness,omitempty"`
	Duration   *float64 `json:"duration,omitempty"`
	Fast       bool     `json:"fast,omitempty"`
}

// Effect parameterizes the breathe and pulse effects. Peak applies to
// breathe only.
type Effect struct {
	Color     string   `json:"color"`
	FromColor string   `json:"from_color,omitempty"`
	Period    *float64 `json:"period,omitempty"`
	Cycles    *float64 `json:"cycles,omitempty"`
	Persist   bool     `json:"persist,omitempty"`
	PowerOn   *bool    `json:"power_on,omitempty"`
	Peak      *float64 `json:"peak,omitempty"`
}

// Result is the per-light outcome of a state change.
type Result struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Status string `json:"status"`
}

// Client calls the LIFX HTTP API with a bearer token.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	logger  *slog.Logger
}

// NewClient creates a Client. An empty baseURL selects the production API.
func NewClient(baseURL, token string, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
		logger:  logger,
	}
}

// ListLights returns the lights matching selector.
func (c *Client) ListLights(ctx context.Context, selector string) ([]Light, error) {
	var lights []Light
	if err := c.do(ctx, http.MethodGet, "/lights/"+escapeSelector(selector), nil, &lights); err != nil {
		return nil, err
	}
	return lights, nil
}

// SetState applies a partial state to the lights matching selector.
func (c *Client) SetState(ctx context.Context, selector string, state State) ([]Result, error) {
	return c.doResults(ctx, http.MethodPut, "/lights/"+escapeSelector(selector)+"/state", state)
}

// Toggle flips power for the lights matching selector over duration seconds.
func (c *Client) Toggle(ctx context.Context, selector string, duration float64) ([]Result, error) {
	body := map[string]float64{}
	if duration > 0 {
		body["duration"] = duration
	}
	return c.doResults(ctx, http.MethodPost, "/lights/"+escapeSelector(selector)+"/toggle", body)
}

// Breathe runs the breathe effect on the lights matching selector.
func (c *Client) Breathe(ctx context.Context, selector string, effect Effect) ([]Result, error) {
	return c.doResults(ctx, http.MethodPost, "/lights/"+escapeSelector(selector)+"/effects/breathe", effect)
}

// Pulse runs the pulse effect on the lights matching selector. Peak is
// ignored by this effect.
func (c *Client) Pulse(ctx context.Context, selector string, effect Effect) ([]Result, error) {
	effect.Peak = nil
	return c.doResults(ctx, http.MethodPost, "/lights/"+escapeSelector(selector)+"/effects/pulse", effect)
}

// doResults performs a state-changing call and decodes the per-light
// results envelope. Fast-mode responses carry no body.
func (c *Client) doResults(ctx context.Context, method, path string, body any) ([]Result, error) {
	var envelope struct {
		Results []Result `json:"results"`
	}
	if err := c.do(ctx, method, path, body, &envelope); err != nil {
		return nil, err
	}
	return envelope.Results, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("calling lifx api: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("reading lifx response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrUnauthorized
	case resp.StatusCode == http.StatusNotFound:
		return ErrSelectorUnmatched
	case resp.StatusCode == http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: %s", ErrInvalidArgument, apiErrorMessage(data))
	case resp.StatusCode >= 400:
		return fmt.Errorf("lifx api returned %d: %s", resp.StatusCode, apiErrorMessage(data))
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding lifx response: %w", err)
	}
	return nil
}

// apiErrorMessage pulls the error field out of an API error body, falling
// back to the raw body.
func apiErrorMessage(data []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(data, &e) == nil && e.Error != "" {
		return e.Error
	}
	s := strings.TrimSpace(string(data))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}

// escapeSelector path-escapes a selector while keeping the "kind:value"
// colon readable in logs and URLs.
func escapeSelector(selector string) string {
	if selector == "" {
		selector = "all"
	}
	escaped := url.PathEscape(selector)
	return strings.ReplaceAll(escaped, "%3A", ":")
}
