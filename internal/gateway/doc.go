// ABOUTME: Package gateway is the HTTP surface: control, logs, and health.
// ABOUTME: Wraps every request in access-key and session-id middleware.

// Package gateway serves the web client API. POST /api/control admits a
// session, validates the credential shape, and hands the request to the
// orchestrator; GET /api/logs queries the caller's merged system+session
// log view; GET /health is unauthenticated liveness. Errors leave as
// structured JSON with stable machine-readable codes, with internal
// detail included only in dev mode.
package gateway
