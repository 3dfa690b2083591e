// ABOUTME: Handle wraps a live worker process: stdio plumbing and termination.
// ABOUTME: Stdout feeds the codec and log mirror; stderr is log-only diagnostics.

package worker

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/2389/lumen-gateway/internal/jsonrpc"
)

// callResult carries one resolved call back to its waiter. Exactly one of
// result or err is set.
type callResult struct {
	result json.RawMessage
	err    error
}

// Handle is a live worker process bound to one session. All methods are
// safe for concurrent use.
type Handle struct {
	PID       int
	SessionID string
	StartedAt time.Time

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	logger *slog.Logger

	initTimeout   time.Duration
	methodTimeout time.Duration
	grace         time.Duration

	mu         sync.Mutex
	pending    map[string]chan callResult
	alive      bool
	terminated bool
	exitErr    error

	writeMu sync.Mutex

	// waitDone closes after cmd.Wait returns; Terminate blocks on it so
	// the process is fully reaped before teardown completes.
	waitDone chan struct{}
}

// Alive reports whether the process is still running.
func (h *Handle) Alive() bool {
	if h == nil {
		return false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.alive
}

// Terminate stops the worker: closes stdin, sends SIGTERM, and kills the
// process if it has not exited within the grace window. It is idempotent
// and a safe no-op on a nil Handle or an already-dead process.
func (h *Handle) Terminate() {
	if h == nil {
		return
	}

	h.mu.Lock()
	if h.terminated {
		h.mu.Unlock()
		return
	}
	h.terminated = true
	alive := h.alive
	h.mu.Unlock()

	if !alive {
		return
	}

	h.logger.Debug("terminating worker", "session_id", h.SessionID, "pid", h.PID)
	_ = h.stdin.Close()
	_ = h.cmd.Process.Signal(syscall.SIGTERM)

	select {
	case <-h.waitDone:
	case <-time.After(h.grace):
		h.logger.Warn("worker ignored graceful stop, killing",
			"session_id", h.SessionID, "pid", h.PID)
		_ = h.cmd.Process.Kill()
		<-h.waitDone
	}
}

// register allocates the pending slot for a call id. Fails once the
// process is dead or termination has begun.
func (h *Handle) register(id string) (chan callResult, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.terminated {
		return nil, ErrTerminated
	}
	if !h.alive {
		return nil, ErrProcessExited
	}
	ch := make(chan callResult, 1)
	h.pending[id] = ch
	return ch, nil
}

// deregister detaches a call that gave up waiting; a response arriving
// later is then treated as unknown and dropped.
func (h *Handle) deregister(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.pending, id)
}

// dispatch routes one decoded message to its waiting call. The pending
// entry is removed before the result is delivered, so each call resolves
// at most once.
func (h *Handle) dispatch(msg *jsonrpc.Message) {
	if !msg.IsResponse() {
		h.logger.Debug("worker sent non-response message",
			"session_id", h.SessionID, "method", msg.Method)
		return
	}

	id := msg.IDString()
	h.mu.Lock()
	ch, ok := h.pending[id]
	if ok {
		delete(h.pending, id)
	}
	h.mu.Unlock()

	if !ok {
		h.logger.Warn("worker response for unknown call id",
			"session_id", h.SessionID, "id", id)
		return
	}

	if msg.Error != nil {
		ch <- callResult{err: msg.Error}
		return
	}
	ch <- callResult{result: msg.Result}
}

// writeLine sends one encoded frame to the worker's stdin.
func (h *Handle) writeLine(frame []byte) error {
	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	if _, err := h.stdin.Write(frame); err != nil {
		return fmt.Errorf("writing to worker stdin: %w", err)
	}
	return nil
}

// readStdout feeds worker stdout through the line codec, mirroring every
// line into the log under the owning session before dispatching it.
func (h *Handle) readStdout(r io.Reader) {
	dec := &jsonrpc.Decoder{}
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			for _, ev := range dec.Feed(buf[:n]) {
				if ev.Err != nil {
					h.logger.Warn("undecodable worker output",
						"session_id", h.SessionID, "line", ev.Raw, "error", ev.Err)
					continue
				}
				h.logger.Debug("worker stdout",
					"session_id", h.SessionID, "line", ev.Raw)
				h.dispatch(ev.Msg)
			}
		}
		if err != nil {
			if rest := dec.Pending(); rest > 0 {
				h.logger.Debug("worker stdout closed with partial line",
					"session_id", h.SessionID, "buffered", rest)
			}
			return
		}
	}
}

// readStderr forwards worker diagnostics into the log, line by line.
// Stderr never reaches the codec.
func (h *Handle) readStderr(r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		h.logger.Warn("worker stderr", "session_id", h.SessionID, "line", line)
	}
}

// monitorExit reaps the process exactly once, fails all pending calls,
// and records the exit in the log under the owning session.
func (h *Handle) monitorExit() {
	err := h.cmd.Wait()

	h.mu.Lock()
	h.alive = false
	h.exitErr = err
	orphaned := h.pending
	h.pending = make(map[string]chan callResult)
	h.mu.Unlock()

	close(h.waitDone)

	for id, ch := range orphaned {
		ch <- callResult{err: fmt.Errorf("%w while call %s was pending", ErrProcessExited, id)}
	}

	if err != nil {
		h.logger.Warn("worker exited abnormally",
			"session_id", h.SessionID, "pid", h.PID, "error", err)
		return
	}
	h.logger.Debug("worker exited cleanly", "session_id", h.SessionID, "pid", h.PID)
}
