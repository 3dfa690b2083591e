// ABOUTME: Package jsonrpc frames and parses newline-delimited JSON-RPC 2.0 messages.
// ABOUTME: Provides an incremental line decoder and wire types shared with workers.

// Package jsonrpc implements the wire protocol spoken between the gateway and
// its worker processes: JSON-RPC 2.0 messages, one per line, over a byte
// stream that may deliver partial lines.
//
// The Decoder is purely a framing/parsing layer. It knows nothing about
// request correlation; that lives in the worker package. Feeding the same
// bytes in any chunking produces the same sequence of events.
package jsonrpc
