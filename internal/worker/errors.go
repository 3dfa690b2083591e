// ABOUTME: Sentinel errors for worker lifecycle and call failures.
// ABOUTME: Callers classify failures with errors.Is against these values.

package worker

import "errors"

var (
	// ErrSpawnTimeout indicates the worker did not start within the
	// configured spawn window.
	ErrSpawnTimeout = errors.New("worker spawn timed out")

	// ErrSpawn indicates the worker process could not be started at all.
	ErrSpawn = errors.New("worker failed to start")

	// ErrInitialization indicates the MCP initialize handshake failed.
	ErrInitialization = errors.New("worker initialization failed")

	// ErrMethodTimeout indicates a call received no response in time.
	ErrMethodTimeout = errors.New("worker call timed out")

	// ErrProcessExited indicates the worker died while calls were pending.
	ErrProcessExited = errors.New("worker process exited")

	// ErrTerminated indicates a call was attempted after termination began.
	ErrTerminated = errors.New("worker already terminated")
)
