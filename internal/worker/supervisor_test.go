// ABOUTME: Tests for worker spawn, timeout, termination, and exit handling.
// ABOUTME: Uses a shell-script fake worker that echoes JSON-RPC responses.

package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/lumen-gateway/internal/logsink"
)

// fakeWorkerScript speaks just enough line-framed JSON-RPC to drive the
// supervisor: it echoes the request id back in a canned response chosen by
// substring match on the request line.
const fakeWorkerScript = `#!/bin/sh
while IFS= read -r line; do
  case "$line" in
    *notifications/*) continue ;;
  esac
  id=${line#*\"id\":\"}
  id=${id%%\"*}
  case "$line" in
    *\"initialize\"*)
      printf '{"jsonrpc":"2.0","id":"%s","result":{"protocolVersion":"2025-03-26","capabilities":{},"serverInfo":{"name":"fake-worker","version":"0.1.0"}}}\n' "$id" ;;
    *tools/list*)
      printf '{"jsonrpc":"2.0","id":"%s","result":{"tools":[{"name":"list_lights","description":"List all lights","inputSchema":{"type":"object"}}]}}\n' "$id" ;;
    *unknown_tool*)
      printf '{"jsonrpc":"2.0","id":"%s","error":{"code":-32602,"message":"Unknown tool: unknown_tool"}}\n' "$id" ;;
    *slow_tool*)
      ;;
    *die_now*)
      exit 3 ;;
    *stderr_tool*)
      echo "something went sideways" >&2
      printf '{"jsonrpc":"2.0","id":"%s","result":{"content":[{"type":"text","text":"ok"}],"isError":false}}\n' "$id" ;;
    *)
      printf '{"jsonrpc":"2.0","id":"%s","result":{"content":[{"type":"text","text":"done"}],"isError":false}}\n' "$id" ;;
  esac
done
`

func writeFakeWorker(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fake-worker.sh")
	require.NoError(t, os.WriteFile(path, []byte(fakeWorkerScript), 0o755))
	return path
}

func testConfig(command string) Config {
	return Config{
		Command:        command,
		SpawnTimeout:   5 * time.Second,
		TerminateGrace: 2 * time.Second,
		InitTimeout:    3 * time.Second,
		MethodTimeout:  3 * time.Second,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func spawnFake(t *testing.T) *Handle {
	t.Helper()
	sup := NewSupervisor(testConfig(writeFakeWorker(t)), discardLogger())
	h, err := sup.Spawn(context.Background(), "test-token", "sess-1")
	require.NoError(t, err)
	t.Cleanup(h.Terminate)
	return h
}

func TestSupervisor_SpawnAndInitialize(t *testing.T) {
	h := spawnFake(t)
	assert.True(t, h.Alive())
	assert.NotZero(t, h.PID)

	res, err := h.Initialize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fake-worker", res.ServerInfo.Name)
	assert.Equal(t, "2025-03-26", res.ProtocolVersion)
}

func TestSupervisor_SpawnErrorMissingBinary(t *testing.T) {
	sup := NewSupervisor(testConfig("/nonexistent/worker-binary"), discardLogger())

	h, err := sup.Spawn(context.Background(), "tok", "sess-1")
	assert.Nil(t, h)
	assert.ErrorIs(t, err, ErrSpawn)
}

func TestSupervisor_SpawnTimeout(t *testing.T) {
	cfg := testConfig(writeFakeWorker(t))
	cfg.SpawnTimeout = 5 * time.Millisecond
	sup := NewSupervisor(cfg, discardLogger())
	sup.launch = func(*exec.Cmd) error {
		time.Sleep(300 * time.Millisecond)
		return errors.New("start abandoned")
	}

	start := time.Now()
	h, err := sup.Spawn(context.Background(), "tok", "sess-1")
	assert.Nil(t, h)
	assert.ErrorIs(t, err, ErrSpawnTimeout)
	assert.Less(t, time.Since(start), 200*time.Millisecond)

	// Teardown still runs defensively after a spawn failure.
	h.Terminate()
}

func TestSupervisor_SpawnContextCanceled(t *testing.T) {
	sup := NewSupervisor(testConfig(writeFakeWorker(t)), discardLogger())
	sup.launch = func(*exec.Cmd) error {
		time.Sleep(300 * time.Millisecond)
		return errors.New("start abandoned")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	h, err := sup.Spawn(ctx, "tok", "sess-1")
	assert.Nil(t, h)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHandle_TerminateIdempotent(t *testing.T) {
	h := spawnFake(t)

	h.Terminate()
	assert.False(t, h.Alive())

	// Second terminate is observably identical to the first.
	h.Terminate()
	assert.False(t, h.Alive())
}

func TestHandle_CallAfterTerminate(t *testing.T) {
	h := spawnFake(t)
	h.Terminate()

	_, err := h.Call(context.Background(), "tools/list", nil)
	assert.ErrorIs(t, err, ErrTerminated)
}

func TestHandle_ProcessExitFailsPendingCalls(t *testing.T) {
	h := spawnFake(t)

	_, err := h.CallTool(context.Background(), "die_now", nil)
	assert.ErrorIs(t, err, ErrProcessExited)

	// Exit is observed; a later call fails fast rather than hanging.
	_, err = h.Call(context.Background(), "tools/list", nil)
	assert.Error(t, err)
}

func TestHandle_StderrAndExitReachLogSink(t *testing.T) {
	sink := logsink.New(logsink.Options{MaxEntries: 100, MaxSessions: 10})
	logger := slog.New(logsink.NewHandler(slog.NewTextHandler(io.Discard, nil), sink))

	sup := NewSupervisor(testConfig(writeFakeWorker(t)), logger)
	h, err := sup.Spawn(context.Background(), "tok", "sess-logs")
	require.NoError(t, err)

	_, err = h.CallTool(context.Background(), "stderr_tool", nil)
	require.NoError(t, err)
	h.Terminate()

	entries := sink.Query("sess-logs", logsink.StoreSession, logsink.QueryOptions{})
	require.NotEmpty(t, entries)

	var sawStderr bool
	for _, e := range entries {
		assert.Equal(t, "sess-logs", e.SessionID)
		if e.Message == "worker stderr" {
			sawStderr = true
			assert.Equal(t, slog.LevelWarn, e.Level)
		}
	}
	assert.True(t, sawStderr, "stderr line should land in the session buffer")
}

func TestSupervisor_CredentialViaEnvironmentOnly(t *testing.T) {
	// The worker reads LIFX_TOKEN from its environment; the command line
	// carries no credential material.
	script := filepath.Join(t.TempDir(), "env-worker.sh")
	require.NoError(t, os.WriteFile(script, []byte(`#!/bin/sh
while IFS= read -r line; do
  case "$line" in *notifications/*) continue ;; esac
  id=${line#*\"id\":\"}
  id=${id%%\"*}
  printf '{"jsonrpc":"2.0","id":"%s","result":{"content":[{"type":"text","text":"%s"}],"isError":false}}\n' "$id" "$LIFX_TOKEN"
done
`), 0o755))

	sup := NewSupervisor(testConfig(script), discardLogger())
	h, err := sup.Spawn(context.Background(), "secret-cred", "sess-1")
	require.NoError(t, err)
	defer h.Terminate()

	res, err := h.CallTool(context.Background(), "whoami", nil)
	require.NoError(t, err)
	assert.Equal(t, "secret-cred", res.Text)
	assert.NotContains(t, sup.cfg.Args, "secret-cred")
}
