// ABOUTME: Package worker spawns and supervises per-request MCP worker processes.
// ABOUTME: A Handle couples the process with its stdio codec and call correlation.

// Package worker owns the lifecycle of the short-lived MCP worker process
// that serves exactly one gateway request. The Supervisor spawns the
// process with the device credential injected through its environment and
// returns a Handle; the Handle frames JSON-RPC calls over the worker's
// stdin, correlates responses arriving on stdout by request id, mirrors
// all worker output into the structured log, and terminates the process
// with a graceful-then-forceful escalation. Termination is idempotent and
// safe on a nil Handle so callers can tear down unconditionally.
package worker
