// ABOUTME: Supervisor spawns worker processes and returns live Handles.
// ABOUTME: Enforces the spawn deadline and injects the credential via environment.

package worker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"time"
)

// credentialEnvVar is the environment variable the worker reads its device
// credential from. The credential never appears on the command line, where
// it would leak through the process list.
const credentialEnvVar = "LIFX_TOKEN"

// Config holds the spawn parameters for worker processes.
type Config struct {
	// Command is the worker binary; Args are passed verbatim.
	Command string
	Args    []string

	// SpawnTimeout bounds process startup.
	SpawnTimeout time.Duration
	// TerminateGrace is how long a terminated worker gets to exit
	// voluntarily before it is killed.
	TerminateGrace time.Duration
	// InitTimeout bounds the MCP initialize handshake.
	InitTimeout time.Duration
	// MethodTimeout bounds every other call.
	MethodTimeout time.Duration
}

// Supervisor spawns one worker process per gateway request.
type Supervisor struct {
	cfg    Config
	logger *slog.Logger

	// launch starts the prepared command. Overridable in tests to
	// simulate slow or failing starts.
	launch func(cmd *exec.Cmd) error
}

// NewSupervisor creates a Supervisor with the given spawn configuration.
func NewSupervisor(cfg Config, logger *slog.Logger) *Supervisor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Supervisor{
		cfg:    cfg,
		logger: logger,
		launch: (*exec.Cmd).Start,
	}
}

// Spawn starts a worker process for the session and returns its Handle.
// The credential is delivered through the process environment only. If the
// process fails to start, or does not start within the spawn timeout, no
// Handle is returned and any late-started process is reaped.
func (s *Supervisor) Spawn(ctx context.Context, credential, sessionID string) (*Handle, error) {
	cmd := exec.Command(s.cfg.Command, s.cfg.Args...)
	cmd.Env = append(os.Environ(), credentialEnvVar+"="+credential)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: stdin pipe: %v", ErrSpawn, err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: stdout pipe: %v", ErrSpawn, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: stderr pipe: %v", ErrSpawn, err)
	}

	started := make(chan error, 1)
	go func() { started <- s.launch(cmd) }()

	timer := time.NewTimer(s.cfg.SpawnTimeout)
	defer timer.Stop()

	select {
	case err := <-started:
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSpawn, err)
		}
	case <-timer.C:
		go reapLateStart(cmd, started)
		return nil, fmt.Errorf("%w after %s", ErrSpawnTimeout, s.cfg.SpawnTimeout)
	case <-ctx.Done():
		go reapLateStart(cmd, started)
		return nil, ctx.Err()
	}

	h := &Handle{
		PID:       cmd.Process.Pid,
		SessionID: sessionID,
		StartedAt: time.Now(),

		cmd:    cmd,
		stdin:  stdin,
		logger: s.logger,

		initTimeout:   s.cfg.InitTimeout,
		methodTimeout: s.cfg.MethodTimeout,
		grace:         s.cfg.TerminateGrace,

		pending:  make(map[string]chan callResult),
		alive:    true,
		waitDone: make(chan struct{}),
	}

	s.logger.Debug("worker spawned",
		"session_id", sessionID, "pid", h.PID, "command", s.cfg.Command)

	go h.readStdout(stdout)
	go h.readStderr(stderr)
	go h.monitorExit()

	return h, nil
}

// reapLateStart kills a process whose start raced past the spawn deadline
// so an abandoned worker cannot linger.
func reapLateStart(cmd *exec.Cmd, started <-chan error) {
	if err := <-started; err != nil {
		return
	}
	if cmd.Process != nil {
		_ = cmd.Process.Kill()
	}
	_ = cmd.Wait()
}
