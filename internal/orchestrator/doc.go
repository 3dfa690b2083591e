// ABOUTME: Package orchestrator runs one control request end to end.
// ABOUTME: Owns the request state machine and the global concurrency cap.

// Package orchestrator drives a control request through its full
// lifecycle: admission against the global concurrency cap, spawning a
// dedicated worker process, the MCP handshake, execution (either one
// direct tool call or an LLM tool-calling loop), and guaranteed teardown.
// The worker and LLM are reached through narrow interfaces so the state
// machine is testable without processes or network.
package orchestrator
