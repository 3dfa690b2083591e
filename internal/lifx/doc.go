// ABOUTME: Package lifx wraps the LIFX HTTP API and exposes it as MCP tools.
// ABOUTME: The client is plain HTTP; tools.go binds it to an MCP server.

// Package lifx is the device side of the system: a client for the LIFX
// cloud HTTP API and the MCP tool surface the worker process serves over
// stdio. The client never logs or echoes the API token. Selectors follow
// the LIFX convention ("all", "id:...", "label:...", "group:...",
// "location:..."); ResolveSelector helps map free-form names onto them.
package lifx
