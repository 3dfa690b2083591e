// ABOUTME: Tests for the newline-framing JSON-RPC decoder and encoder.
// ABOUTME: Validates chunk-boundary independence, error events, and framing edges.

package jsonrpc

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecoder_SingleMessage(t *testing.T) {
	var d Decoder

	events := d.Feed([]byte(`{"jsonrpc":"2.0","id":"abc","result":{"ok":true}}` + "\n"))
	require.Len(t, events, 1)
	require.NoError(t, events[0].Err)
	require.NotNil(t, events[0].Msg)
	assert.True(t, events[0].Msg.IsResponse())
	assert.Equal(t, "abc", events[0].Msg.IDString())
}

func TestDecoder_PartialLineRetained(t *testing.T) {
	var d Decoder

	events := d.Feed([]byte(`{"jsonrpc":"2.0",`))
	assert.Empty(t, events, "partial line must never be parsed prematurely")
	assert.Positive(t, d.Pending())

	events = d.Feed([]byte(`"id":"x","result":null}` + "\n"))
	require.Len(t, events, 1)
	require.NoError(t, events[0].Err)
	assert.Equal(t, "x", events[0].Msg.IDString())
	assert.Zero(t, d.Pending())
}

func TestDecoder_MultipleMessagesInOneChunk(t *testing.T) {
	var d Decoder

	input := `{"jsonrpc":"2.0","id":"1","result":1}` + "\n" +
		`{"jsonrpc":"2.0","id":"2","result":2}` + "\n"
	events := d.Feed([]byte(input))
	require.Len(t, events, 2)
	assert.Equal(t, "1", events[0].Msg.IDString())
	assert.Equal(t, "2", events[1].Msg.IDString())
}

func TestDecoder_EmptyLinesSkipped(t *testing.T) {
	var d Decoder

	events := d.Feed([]byte("\n\n  \n" + `{"jsonrpc":"2.0","id":"1","result":1}` + "\n\n"))
	require.Len(t, events, 1)
	assert.Equal(t, "1", events[0].Msg.IDString())
}

func TestDecoder_ParseError(t *testing.T) {
	var d Decoder

	events := d.Feed([]byte("not json at all\n"))
	require.Len(t, events, 1)
	assert.ErrorIs(t, events[0].Err, ErrParse)
	assert.Equal(t, "not json at all", events[0].Raw, "error event carries the raw line")
	assert.Nil(t, events[0].Msg)
}

func TestDecoder_ProtocolError_VersionMismatch(t *testing.T) {
	var d Decoder

	// Valid JSON, wrong protocol version: reported as a protocol error,
	// not a parse error.
	events := d.Feed([]byte(`{"jsonrpc":"1.0","id":"1","result":1}` + "\n"))
	require.Len(t, events, 1)
	assert.ErrorIs(t, events[0].Err, ErrProtocol)
	assert.NotErrorIs(t, events[0].Err, ErrParse)
}

func TestDecoder_ProtocolError_MissingVersion(t *testing.T) {
	var d Decoder

	events := d.Feed([]byte(`{"id":"1","result":1}` + "\n"))
	require.Len(t, events, 1)
	assert.ErrorIs(t, events[0].Err, ErrProtocol)
}

func TestDecoder_ChunkBoundaryIndependence(t *testing.T) {
	input := `{"jsonrpc":"2.0","id":"1","result":{"n":1}}` + "\n" +
		"garbage line\n" +
		`{"jsonrpc":"2.0","id":"2","error":{"code":-32601,"message":"method not found"}}` + "\n" +
		`{"jsonrpc":"2.0","method":"notifications/progress","params":{}}` + "\n"

	var whole Decoder
	want := whole.Feed([]byte(input))
	require.Len(t, want, 4)

	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 50; trial++ {
		var d Decoder
		var got []Event
		rest := []byte(input)
		for len(rest) > 0 {
			n := 1 + rng.Intn(len(rest))
			got = append(got, d.Feed(rest[:n])...)
			rest = rest[n:]
		}

		require.Len(t, got, len(want), "trial %d", trial)
		for i := range want {
			if want[i].Err != nil {
				assert.Error(t, got[i].Err)
				assert.Equal(t, want[i].Raw, got[i].Raw)
				continue
			}
			assert.Equal(t, want[i].Msg.IDString(), got[i].Msg.IDString())
			assert.Equal(t, want[i].Msg.Method, got[i].Msg.Method)
		}
	}
}

func TestDecoder_NotificationIsNotResponse(t *testing.T) {
	var d Decoder

	events := d.Feed([]byte(`{"jsonrpc":"2.0","method":"notifications/message","params":{"level":"info"}}` + "\n"))
	require.Len(t, events, 1)
	require.NoError(t, events[0].Err)
	assert.False(t, events[0].Msg.IsResponse())
}

func TestDecoder_NumericID(t *testing.T) {
	var d Decoder

	events := d.Feed([]byte(`{"jsonrpc":"2.0","id":42,"result":null}` + "\n"))
	require.Len(t, events, 1)
	assert.True(t, events[0].Msg.IsResponse())
	assert.Equal(t, "42", events[0].Msg.IDString())
}

func TestEncode_AppendsNewline(t *testing.T) {
	b, err := Encode(NewRequest("id-1", "tools/list", nil))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(b), "\n"))
	assert.Equal(t, 1, strings.Count(string(b), "\n"))
	assert.Contains(t, string(b), `"jsonrpc":"2.0"`)
	assert.Contains(t, string(b), `"method":"tools/list"`)
}

func TestEncode_NotificationOmitsID(t *testing.T) {
	b, err := Encode(NewNotification("notifications/initialized", nil))
	require.NoError(t, err)
	assert.NotContains(t, string(b), `"id"`)
}
