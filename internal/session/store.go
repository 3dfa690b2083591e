// ABOUTME: Session records, the injectable Store abstraction, and the in-memory backend.
// ABOUTME: Manager layers admission (rate limiting, counters) and periodic sweeps on top.

package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ErrRateLimited indicates a session exceeded its request budget.
var ErrRateLimited = errors.New("session rate limit exceeded")

// Record is the bookkeeping for one client session. The session identifier
// is client-generated and opaque; the IP is advisory only.
type Record struct {
	ID        string
	IP        string
	Requests  int64
	CreatedAt time.Time
	LastSeen  time.Time

	limiter *rate.Limiter
}

// Store abstracts session state so it can be backed by an in-process table
// or a shared store. All methods are safe for concurrent use.
type Store interface {
	// Get returns the record for id, if present.
	Get(id string) (*Record, bool)
	// Put inserts or replaces a record.
	Put(rec *Record)
	// Delete removes a record. Removing an absent id is a no-op.
	Delete(id string)
	// Sweep removes records older than maxAge and returns their ids.
	Sweep(maxAge time.Duration) []string
}

// MemoryStore is the in-process Store backend.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*Record
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*Record)}
}

// Get returns the record for id, if present.
func (s *MemoryStore) Get(id string) (*Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	return rec, ok
}

// Put inserts or replaces a record.
func (s *MemoryStore) Put(rec *Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.ID] = rec
}

// Delete removes a record.
func (s *MemoryStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, id)
}

// Sweep removes records whose creation time is older than maxAge.
func (s *MemoryStore) Sweep(maxAge time.Duration) []string {
	cutoff := time.Now().Add(-maxAge)

	s.mu.Lock()
	defer s.mu.Unlock()

	var purged []string
	for id, rec := range s.records {
		if rec.CreatedAt.Before(cutoff) {
			delete(s.records, id)
			purged = append(purged, id)
		}
	}
	return purged
}

// Count returns the number of tracked sessions.
func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Options configures the Manager.
type Options struct {
	// RatePerMinute is the sustained request budget per session.
	RatePerMinute int
	// RateBurst is the instantaneous burst allowance.
	RateBurst int
	// MaxAge is how old a session may grow before the sweeper purges it.
	MaxAge time.Duration
	// SweepInterval is how often the sweeper runs.
	SweepInterval time.Duration
}

// Manager layers admission control over a Store: it creates records on
// first sight, keeps the request counter monotonically non-decreasing, and
// enforces the per-session rate limit.
type Manager struct {
	store  Store
	opts   Options
	logger *slog.Logger

	mu sync.Mutex // serializes get-or-create on admission
}

// NewManager creates a Manager over the given store.
func NewManager(store Store, opts Options, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{store: store, opts: opts, logger: logger}
}

// Admit records one request for the session, creating the record on first
// use, and returns ErrRateLimited when the session's budget is exhausted.
func (m *Manager) Admit(sessionID, ip string) (*Record, error) {
	m.mu.Lock()
	rec, ok := m.store.Get(sessionID)
	if !ok {
		rec = &Record{
			ID:        sessionID,
			IP:        ip,
			CreatedAt: time.Now(),
			limiter:   rate.NewLimiter(rate.Limit(float64(m.opts.RatePerMinute)/60.0), m.opts.RateBurst),
		}
		m.store.Put(rec)
		m.logger.Debug("session created", "session_id", sessionID, "ip", ip)
	}
	rec.Requests++
	rec.LastSeen = time.Now()
	m.mu.Unlock()

	if !rec.limiter.Allow() {
		return nil, ErrRateLimited
	}
	return rec, nil
}

// Remove deletes a session record immediately (explicit clear).
func (m *Manager) Remove(sessionID string) {
	m.store.Delete(sessionID)
}

// RunSweeper purges expired sessions on a ticker until ctx is done. The
// onPurge callback runs for each purged session id (used to drop the
// session's log buffer).
func (m *Manager) RunSweeper(ctx context.Context, onPurge func(sessionID string)) {
	ticker := time.NewTicker(m.opts.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			purged := m.store.Sweep(m.opts.MaxAge)
			for _, id := range purged {
				if onPurge != nil {
					onPurge(id)
				}
			}
			if len(purged) > 0 {
				m.logger.Info("session sweep complete", "purged", len(purged))
			}
		}
	}
}
