package store

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/tolerancevision/tolerancevision/server/internal/events"
)

// Entry is an event together with the time the store received it.
type Entry struct {
	Event      events.Event
	RecordedAt time.Time
}

// Store is a thread-safe in-memory activity log keyed by event id. A
// background goroutine (Run) evicts entries older than the configured TTL.
//
// Store implements events.Publisher so it can sit next to the Kafka
// publisher in an events.Multi.
type Store struct {
	mu   sync.RWMutex
	data map[string]*Entry
	ttl  time.Duration
	now  func() time.Time
}

// New creates a Store with the given retention.
func New(ttl time.Duration) *Store {
	return &Store{
		data: make(map[string]*Entry),
		ttl:  ttl,
		now:  time.Now,
	}
}

// Put records ev, replacing any entry with the same id.
func (s *Store) Put(ev events.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[ev.ID] = &Entry{Event: ev, RecordedAt: s.now()}
}

// Publish records ev. It never fails.
func (s *Store) Publish(_ context.Context, ev events.Event) error {
	s.Put(ev)
	return nil
}

// Close is a no-op; entries stay readable after shutdown starts.
func (s *Store) Close() error { return nil }

// Get returns the entry for id. The entry may be stale if it has not been
// evicted yet.
func (s *Store) Get(id string) (*Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.data[id]
	return e, ok
}

// List returns up to limit events recorded within the TTL, newest first.
// limit <= 0 returns all of them.
func (s *Store) List(limit int) []events.Event {
	s.mu.RLock()
	cutoff := s.now().Add(-s.ttl)
	entries := make([]*Entry, 0, len(s.data))
	for _, e := range s.data {
		if e.RecordedAt.After(cutoff) {
			entries = append(entries, e)
		}
	}
	s.mu.RUnlock()

	slices.SortFunc(entries, func(a, b *Entry) int {
		if c := b.RecordedAt.Compare(a.RecordedAt); c != 0 {
			return c
		}
		if c := b.Event.OccurredAt.Compare(a.Event.OccurredAt); c != 0 {
			return c
		}
		return cmp.Compare(a.Event.ID, b.Event.ID)
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}

	out := make([]events.Event, len(entries))
	for i, e := range entries {
		out[i] = e.Event
	}
	return out
}

// Count returns the number of entries held, including stale ones.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Evict removes entries recorded at or before now minus TTL and returns how
// many were removed.
func (s *Store) Evict(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := now.Add(-s.ttl)
	removed := 0
	for id, e := range s.data {
		if !e.RecordedAt.After(cutoff) {
			delete(s.data, id)
			removed++
		}
	}
	return removed
}

// Run evicts stale entries every half TTL (at least once a second) until ctx
// is cancelled.
func (s *Store) Run(ctx context.Context) {
	interval := max(s.ttl/2, time.Second)
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if n := s.Evict(now); n > 0 {
				slog.Debug("store: evicted old events", "count", n)
			}
		}
	}
}
