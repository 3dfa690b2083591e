// ABOUTME: Package logsink stores log entries in bounded, session-isolated buffers.
// ABOUTME: Classifies entries as system-wide or session-scoped and serves queries.

// Package logsink implements the session-isolated log store. Every entry
// lands in exactly one of two disjoint stores: the single system buffer or
// one session's buffer. The public query contract only ever merges the
// system buffer with the caller's own session buffer, so cross-session
// visibility is impossible by construction.
//
// All buffers are bounded: each evicts its oldest entry past a maximum
// size, and the set of tracked sessions is itself capped with the
// least-recently-created session evicted first.
package logsink
