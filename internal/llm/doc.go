// ABOUTME: Package llm is a minimal OpenAI-compatible chat completions client.
// ABOUTME: Supports tool definitions and tool-call responses for function calling.

// Package llm talks to an OpenAI-compatible chat completions endpoint.
// The client does exactly one completion round per call; the multi-round
// tool loop belongs to the orchestrator. Any provider that speaks the
// chat/completions wire shape works by pointing base_url at it.
package llm
