// ABOUTME: Bounded, evictable log storage with one system buffer and per-session buffers.
// ABOUTME: Record classifies and appends; Query merges system and own-session entries.

package logsink

import (
	"container/list"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Entry is one structured log record as stored by the sink.
type Entry struct {
	Timestamp time.Time      `json:"timestamp"`
	Level     slog.Level     `json:"level"`
	Message   string         `json:"message"`
	Meta      map[string]any `json:"meta,omitempty"`
	Scope     Scope          `json:"scope"`
	SessionID string         `json:"session_id,omitempty"`
}

// Options configures sink bounds and classification.
type Options struct {
	// MaxEntries bounds each buffer (system and per-session). Default 500.
	MaxEntries int
	// MaxSessions bounds the number of concurrently tracked session
	// buffers. Default 50. The least-recently-created session is evicted
	// entirely when the bound is exceeded.
	MaxSessions int
	// SystemKeywords overrides DefaultSystemKeywords when non-nil.
	SystemKeywords []string
}

const (
	defaultMaxEntries  = 500
	defaultMaxSessions = 50
)

// StoreType selects which stores a query reads.
type StoreType string

const (
	// StoreAll merges the system store with the session's own store.
	StoreAll StoreType = ""
	// StoreSystem restricts a query to operational entries.
	StoreSystem StoreType = "system"
	// StoreSession restricts a query to the session's own entries.
	StoreSession StoreType = "session"
)

// QueryOptions filter a query. Zero values mean "no filter".
type QueryOptions struct {
	// Level, when non-nil, keeps only entries at exactly that level.
	Level *slog.Level
	// Since keeps only entries at or after the given time.
	Since time.Time
	// Limit caps the number of returned entries (most recent kept).
	Limit int
}

// sessionBuffer pairs a session's ring buffer with its creation-order
// bookkeeping for whole-session eviction.
type sessionBuffer struct {
	ring      *ring
	createdAt time.Time
	element   *list.Element
}

// Sink owns all log storage. Components append through Record (or the slog
// Handler wrapping it) and never hold references to the underlying buffers.
type Sink struct {
	mu       sync.RWMutex
	opts     Options
	keywords []string
	system   *ring
	sessions map[string]*sessionBuffer
	order    *list.List // session ids in creation order, oldest at front
}

// New creates a sink with the given options, applying defaults for zero
// values.
func New(opts Options) *Sink {
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = defaultMaxEntries
	}
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = defaultMaxSessions
	}
	keywords := opts.SystemKeywords
	if keywords == nil {
		keywords = DefaultSystemKeywords
	}
	return &Sink{
		opts:     opts,
		keywords: keywords,
		system:   newRing(opts.MaxEntries),
		sessions: make(map[string]*sessionBuffer),
		order:    list.New(),
	}
}

// Record classifies the entry and appends it to the system store or the
// owning session's store, creating the session buffer on first use.
func (s *Sink) Record(level slog.Level, message string, meta map[string]any) {
	scope, sessionID := Classify(level, message, meta, s.keywords)

	entry := Entry{
		Timestamp: time.Now(),
		Level:     level,
		Message:   message,
		Meta:      meta,
		Scope:     scope,
		SessionID: sessionID,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if scope == ScopeSystem {
		s.system.push(entry)
		return
	}
	s.sessionBufferLocked(sessionID).ring.push(entry)
}

// sessionBufferLocked returns the buffer for a session, creating it and
// evicting the least-recently-created session past MaxSessions. Must be
// called with mu held.
func (s *Sink) sessionBufferLocked(sessionID string) *sessionBuffer {
	if buf, ok := s.sessions[sessionID]; ok {
		return buf
	}

	if len(s.sessions) >= s.opts.MaxSessions {
		if front := s.order.Front(); front != nil {
			oldest, _ := front.Value.(string)
			s.order.Remove(front)
			delete(s.sessions, oldest)
		}
	}

	buf := &sessionBuffer{
		ring:      newRing(s.opts.MaxEntries),
		createdAt: time.Now(),
	}
	buf.element = s.order.PushBack(sessionID)
	s.sessions[sessionID] = buf
	return buf
}

// Query returns the chronologically merged, filtered view of the system
// store and the named session's store. It never returns another session's
// entries.
func (s *Sink) Query(sessionID string, store StoreType, opts QueryOptions) []Entry {
	s.mu.RLock()
	var entries []Entry
	if store == StoreAll || store == StoreSystem {
		entries = append(entries, s.system.snapshot()...)
	}
	if store == StoreAll || store == StoreSession {
		if buf, ok := s.sessions[sessionID]; ok {
			entries = append(entries, buf.ring.snapshot()...)
		}
	}
	s.mu.RUnlock()

	filtered := entries[:0]
	for _, e := range entries {
		if opts.Level != nil && e.Level != *opts.Level {
			continue
		}
		if !opts.Since.IsZero() && e.Timestamp.Before(opts.Since) {
			continue
		}
		filtered = append(filtered, e)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Timestamp.Before(filtered[j].Timestamp)
	})

	if opts.Limit > 0 && len(filtered) > opts.Limit {
		filtered = filtered[len(filtered)-opts.Limit:]
	}
	return filtered
}

// Purge removes a session's buffer entirely. Invoked on session expiry.
func (s *Sink) Purge(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if buf, ok := s.sessions[sessionID]; ok {
		if buf.element != nil {
			s.order.Remove(buf.element)
		}
		delete(s.sessions, sessionID)
	}
}

// SessionCount returns the number of tracked session buffers.
func (s *Sink) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// ring is a fixed-capacity buffer that overwrites its oldest entry when
// full. Entries come back out in insertion order.
type ring struct {
	entries []Entry
	cap     int
	start   int
}

func newRing(capacity int) *ring {
	return &ring{entries: make([]Entry, 0, capacity), cap: capacity}
}

func (r *ring) push(e Entry) {
	if len(r.entries) < r.cap {
		r.entries = append(r.entries, e)
		return
	}
	r.entries[r.start] = e
	r.start = (r.start + 1) % r.cap
}

func (r *ring) snapshot() []Entry {
	out := make([]Entry, 0, len(r.entries))
	for i := 0; i < len(r.entries); i++ {
		out = append(out, r.entries[(r.start+i)%len(r.entries)])
	}
	return out
}
