// ABOUTME: Tests for bounded log storage, eviction, session isolation, and queries.
// ABOUTME: Validates the cross-session invariant and oldest-first eviction.

package logsink

import (
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sessionMeta(id string) map[string]any {
	return map[string]any{SessionKey: id}
}

func TestSink_RecordAndQuery(t *testing.T) {
	sink := New(Options{})

	sink.Record(slog.LevelInfo, "tool call complete", sessionMeta("sess-a"))

	entries := sink.Query("sess-a", StoreAll, QueryOptions{})
	require.Len(t, entries, 1)
	assert.Equal(t, "tool call complete", entries[0].Message)
	assert.Equal(t, ScopeSession, entries[0].Scope)
	assert.Equal(t, "sess-a", entries[0].SessionID)
}

func TestSink_BufferEviction_OldestFirst(t *testing.T) {
	sink := New(Options{MaxEntries: 500})

	for i := 0; i < 501; i++ {
		sink.Record(slog.LevelInfo, fmt.Sprintf("entry %d", i), sessionMeta("sess-a"))
	}

	entries := sink.Query("sess-a", StoreSession, QueryOptions{})
	require.Len(t, entries, 500, "exactly max entries retained")
	assert.Equal(t, "entry 1", entries[0].Message, "oldest entry evicted first")
	assert.Equal(t, "entry 500", entries[len(entries)-1].Message, "newest entry present")
}

func TestSink_SessionIsolation(t *testing.T) {
	sink := New(Options{})

	for i := 0; i < 10; i++ {
		sink.Record(slog.LevelInfo, fmt.Sprintf("a message %d", i), sessionMeta("sess-a"))
		sink.Record(slog.LevelInfo, fmt.Sprintf("b message %d", i), sessionMeta("sess-b"))
	}

	entries := sink.Query("sess-a", StoreAll, QueryOptions{})
	sessionEntries := 0
	for _, e := range entries {
		if e.Scope == ScopeSession {
			sessionEntries++
			assert.Equal(t, "sess-a", e.SessionID, "no entry tagged with another session")
		}
	}
	assert.Equal(t, 10, sessionEntries)
}

func TestSink_SystemEntriesVisibleToAllSessions(t *testing.T) {
	sink := New(Options{})

	sink.Record(slog.LevelInfo, "server startup complete", nil)
	sink.Record(slog.LevelInfo, "session work", sessionMeta("sess-a"))

	for _, sid := range []string{"sess-a", "sess-b"} {
		entries := sink.Query(sid, StoreAll, QueryOptions{})
		found := false
		for _, e := range entries {
			if e.Scope == ScopeSystem {
				found = true
			}
		}
		assert.True(t, found, "system entry visible to %s", sid)
	}

	entries := sink.Query("sess-b", StoreAll, QueryOptions{})
	for _, e := range entries {
		assert.NotEqual(t, "sess-a", e.SessionID)
	}
}

func TestSink_SessionCapEviction(t *testing.T) {
	sink := New(Options{MaxSessions: 3})

	for i := 0; i < 4; i++ {
		sink.Record(slog.LevelInfo, "work", sessionMeta(fmt.Sprintf("sess-%d", i)))
	}

	assert.Equal(t, 3, sink.SessionCount())
	assert.Empty(t, sink.Query("sess-0", StoreSession, QueryOptions{}),
		"least-recently-created session evicted entirely")
	assert.Len(t, sink.Query("sess-3", StoreSession, QueryOptions{}), 1)
}

func TestSink_QueryFilters(t *testing.T) {
	sink := New(Options{})

	sink.Record(slog.LevelDebug, "debug detail", sessionMeta("sess-a"))
	sink.Record(slog.LevelWarn, "worker exited abnormally", sessionMeta("sess-a"))
	cut := time.Now()
	sink.Record(slog.LevelWarn, "late warning", sessionMeta("sess-a"))

	warn := slog.LevelWarn
	byLevel := sink.Query("sess-a", StoreSession, QueryOptions{Level: &warn})
	require.Len(t, byLevel, 2)

	since := sink.Query("sess-a", StoreSession, QueryOptions{Since: cut})
	require.Len(t, since, 1)
	assert.Equal(t, "late warning", since[0].Message)

	limited := sink.Query("sess-a", StoreSession, QueryOptions{Limit: 1})
	require.Len(t, limited, 1)
	assert.Equal(t, "late warning", limited[0].Message, "limit keeps most recent")
}

func TestSink_QueryMergesChronologically(t *testing.T) {
	sink := New(Options{})

	sink.Record(slog.LevelInfo, "first session entry", sessionMeta("sess-a"))
	sink.Record(slog.LevelError, "infrastructure fault", nil) // system: no session id
	sink.Record(slog.LevelInfo, "second session entry", sessionMeta("sess-a"))

	entries := sink.Query("sess-a", StoreAll, QueryOptions{})
	require.Len(t, entries, 3)
	for i := 1; i < len(entries); i++ {
		assert.False(t, entries[i].Timestamp.Before(entries[i-1].Timestamp))
	}
}

func TestSink_Purge(t *testing.T) {
	sink := New(Options{})

	sink.Record(slog.LevelInfo, "work", sessionMeta("sess-a"))
	require.Len(t, sink.Query("sess-a", StoreSession, QueryOptions{}), 1)

	sink.Purge("sess-a")
	assert.Empty(t, sink.Query("sess-a", StoreSession, QueryOptions{}))
	assert.Equal(t, 0, sink.SessionCount())

	// Purge of an unknown session is a no-op.
	sink.Purge("sess-missing")
}

func TestSink_SystemBufferBounded(t *testing.T) {
	sink := New(Options{MaxEntries: 5})

	for i := 0; i < 8; i++ {
		sink.Record(slog.LevelError, fmt.Sprintf("fault %d", i), nil)
	}

	entries := sink.Query("any", StoreSystem, QueryOptions{})
	require.Len(t, entries, 5)
	assert.Equal(t, "fault 3", entries[0].Message)
}
