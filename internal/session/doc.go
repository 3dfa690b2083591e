// ABOUTME: Package session tracks per-client session records and rate limits.
// ABOUTME: Store is an injected abstraction; the default backend is in-memory.

// Package session implements session bookkeeping for the gateway: one
// Record per client-chosen session identifier, carrying a request counter,
// creation time, and a token-bucket rate limiter. The Store interface
// decouples the gateway from the backing table so a shared store could be
// swapped in for a multi-instance deployment; the in-process MemoryStore
// is the only backend shipped here.
package session
