// ABOUTME: The request state machine: admit, spawn, initialize, execute, tear down.
// ABOUTME: Teardown and the concurrency decrement run on every exit path.

package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/2389/lumen-gateway/internal/llm"
	"github.com/2389/lumen-gateway/internal/worker"
)

// State names one phase of a control request.
type State string

const (
	StateAdmitted     State = "admitted"
	StateSpawning     State = "spawning"
	StateInitializing State = "initializing"
	StateExecuting    State = "executing"
	StateTearingDown  State = "tearing_down"
	StateCompleted    State = "completed"
	StateFailed       State = "failed"
)

var (
	// ErrConcurrencyExceeded indicates admission was denied because the
	// active-process cap is reached.
	ErrConcurrencyExceeded = errors.New("too many concurrent requests")

	// ErrRestrictedTool indicates a mutating tool was requested while
	// the request was flagged restrictive.
	ErrRestrictedTool = errors.New("tool not permitted in restrictive mode")

	// ErrToolRoundsExceeded indicates the model did not produce a final
	// answer within the tool-round budget.
	ErrToolRoundsExceeded = errors.New("tool round budget exhausted")

	// ErrBadRequest indicates the request named neither a message nor a
	// direct tool.
	ErrBadRequest = errors.New("request needs a message or a tool name")
)

// readOnlyTools are the tools permitted under restrictive mode.
var readOnlyTools = map[string]bool{
	"list_lights":      true,
	"resolve_selector": true,
}

// Worker is the slice of a live worker handle the orchestrator uses.
type Worker interface {
	Initialize(ctx context.Context) (*worker.InitializeResult, error)
	ListTools(ctx context.Context) ([]worker.ToolInfo, error)
	CallTool(ctx context.Context, name string, args map[string]any) (*worker.ToolResult, error)
	Terminate()
}

// Spawner creates workers. The production implementation wraps
// worker.Supervisor.
type Spawner interface {
	Spawn(ctx context.Context, credential, sessionID string) (Worker, error)
}

// supervisorSpawner adapts *worker.Supervisor to the Spawner interface.
type supervisorSpawner struct {
	sup *worker.Supervisor
}

// NewSupervisorSpawner wraps a Supervisor as a Spawner.
func NewSupervisorSpawner(sup *worker.Supervisor) Spawner {
	return supervisorSpawner{sup: sup}
}

func (s supervisorSpawner) Spawn(ctx context.Context, credential, sessionID string) (Worker, error) {
	h, err := s.sup.Spawn(ctx, credential, sessionID)
	if err != nil {
		return nil, err
	}
	return h, nil
}

// Request is one admitted control request. Exactly one of Message or Tool
// must be set: Message runs the LLM loop, Tool runs a single direct call.
type Request struct {
	SessionID  string
	Credential string

	Message string
	Tool    string
	Args    map[string]any

	// MaxToolRounds optionally lowers the configured round budget.
	MaxToolRounds int
	// Restrictive limits execution to read-only tools.
	Restrictive bool
}

// ToolCallRecord is one tool invocation made during a request.
type ToolCallRecord struct {
	Name    string `json:"name"`
	IsError bool   `json:"is_error"`
}

// Result is the outcome handed back to the HTTP layer.
type Result struct {
	State     State            `json:"state"`
	Reply     string           `json:"reply"`
	ToolCalls []ToolCallRecord `json:"tool_calls,omitempty"`
	Usage     llm.Usage        `json:"usage"`
	Duration  time.Duration    `json:"-"`
}

// Options configures the Orchestrator.
type Options struct {
	// MaxConcurrent caps simultaneously live worker processes.
	MaxConcurrent int
	// MaxToolRounds caps LLM loop iterations per request.
	MaxToolRounds int
}

// Orchestrator runs control requests. Safe for concurrent use; the
// active-process counter is the only cross-request shared state.
type Orchestrator struct {
	spawner Spawner
	llm     llm.Completer
	opts    Options
	logger  *slog.Logger

	active atomic.Int64
}

// New creates an Orchestrator.
func New(spawner Spawner, completer llm.Completer, opts Options, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		spawner: spawner,
		llm:     completer,
		opts:    opts,
		logger:  logger,
	}
}

// Active returns the number of requests currently holding a worker slot.
func (o *Orchestrator) Active() int64 {
	return o.active.Load()
}

// transition logs one state change under the owning session.
func (o *Orchestrator) transition(sessionID string, s State) {
	o.logger.Debug("request state", "session_id", sessionID, "state", s)
}

// Handle runs one request through the full state machine. Whatever path
// execution takes, teardown runs and the concurrency counter is released
// exactly once.
func (o *Orchestrator) Handle(ctx context.Context, req Request) (*Result, error) {
	if req.Message == "" && req.Tool == "" {
		return nil, ErrBadRequest
	}

	if o.active.Add(1) > int64(o.opts.MaxConcurrent) {
		o.active.Add(-1)
		return nil, fmt.Errorf("%w: limit %d", ErrConcurrencyExceeded, o.opts.MaxConcurrent)
	}
	defer o.active.Add(-1)

	start := time.Now()
	o.transition(req.SessionID, StateAdmitted)

	res, err := o.run(ctx, req)
	if err != nil {
		o.transition(req.SessionID, StateFailed)
		o.logger.Warn("request failed",
			"session_id", req.SessionID, "error", err, "duration", time.Since(start))
		return nil, err
	}

	o.transition(req.SessionID, StateCompleted)
	res.State = StateCompleted
	res.Duration = time.Since(start)
	o.logger.Info("request completed",
		"session_id", req.SessionID,
		"tool_calls", len(res.ToolCalls),
		"duration", res.Duration)
	return res, nil
}

// run is the spawn-through-execute portion; teardown of any spawned
// worker is guaranteed here no matter how execution exits.
func (o *Orchestrator) run(ctx context.Context, req Request) (res *Result, err error) {
	o.transition(req.SessionID, StateSpawning)
	w, spawnErr := o.spawner.Spawn(ctx, req.Credential, req.SessionID)

	defer func() {
		o.transition(req.SessionID, StateTearingDown)
		if w != nil {
			w.Terminate()
		}
	}()

	if spawnErr != nil {
		return nil, spawnErr
	}

	o.transition(req.SessionID, StateInitializing)
	if _, err := w.Initialize(ctx); err != nil {
		return nil, err
	}

	o.transition(req.SessionID, StateExecuting)
	if req.Tool != "" {
		return o.runDirect(ctx, w, req)
	}
	return o.runChat(ctx, w, req)
}

// runDirect executes a single named tool call.
func (o *Orchestrator) runDirect(ctx context.Context, w Worker, req Request) (*Result, error) {
	if req.Restrictive && !readOnlyTools[req.Tool] {
		return nil, fmt.Errorf("%w: %s", ErrRestrictedTool, req.Tool)
	}

	out, err := w.CallTool(ctx, req.Tool, req.Args)
	if err != nil {
		return nil, err
	}

	record := ToolCallRecord{Name: req.Tool, IsError: out.IsError}
	if out.IsError {
		return nil, fmt.Errorf("tool %s failed: %s", req.Tool, out.Text)
	}
	return &Result{
		Reply:     out.Text,
		ToolCalls: []ToolCallRecord{record},
	}, nil
}
