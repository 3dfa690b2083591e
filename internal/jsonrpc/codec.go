// ABOUTME: Incremental newline-framing decoder and encoder for JSON-RPC streams.
// ABOUTME: Splits a byte stream into lines, decoding each into a message event.

package jsonrpc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrParse indicates a line that is not valid JSON.
var ErrParse = errors.New("malformed JSON line")

// ErrProtocol indicates a line that is valid JSON but not a valid
// JSON-RPC 2.0 message (wrong or missing version field).
var ErrProtocol = errors.New("protocol violation")

// Event is the result of decoding one complete line. Exactly one of Msg or
// Err is set. Raw always carries the original line so callers can mirror
// or report it; lines are never silently dropped.
type Event struct {
	Msg *Message
	Raw string
	Err error
}

// Decoder accumulates stream bytes and emits one Event per complete line.
// The final, possibly incomplete, line is retained until the next Feed.
// Decoder is not safe for concurrent use; each worker owns exactly one.
type Decoder struct {
	buf []byte
}

// Feed appends p to the internal buffer and returns events for every
// complete line now available. Empty lines are skipped.
func (d *Decoder) Feed(p []byte) []Event {
	d.buf = append(d.buf, p...)

	var events []Event
	for {
		i := bytes.IndexByte(d.buf, '\n')
		if i < 0 {
			return events
		}
		line := strings.TrimSpace(string(d.buf[:i]))
		d.buf = d.buf[i+1:]
		if line == "" {
			continue
		}
		events = append(events, decodeLine(line))
	}
}

// Pending returns the number of buffered bytes awaiting a newline.
func (d *Decoder) Pending() int {
	return len(d.buf)
}

// decodeLine decodes a single complete line into an Event, distinguishing
// parse failures from protocol-level violations.
func decodeLine(line string) Event {
	var msg Message
	if err := json.Unmarshal([]byte(line), &msg); err != nil {
		return Event{Raw: line, Err: fmt.Errorf("%w: %v", ErrParse, err)}
	}
	if msg.JSONRPC != Version {
		return Event{Raw: line, Err: fmt.Errorf("%w: jsonrpc version %q", ErrProtocol, msg.JSONRPC)}
	}
	return Event{Msg: &msg, Raw: line}
}

// Encode serializes v and appends the newline terminator, producing one
// complete wire frame.
func Encode(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding message: %w", err)
	}
	return append(b, '\n'), nil
}
