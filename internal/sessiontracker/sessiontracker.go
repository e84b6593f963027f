// Package sessiontracker is a leak-diagnostics registry for any
// long-lived, explicitly-released resource (WebSocket connections,
// scraper sessions, REST client handles). It exists to answer "what is
// still open, and for how long" without threading bookkeeping through
// every caller.
package sessiontracker

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kalshi-core/connectivity/internal/clockutil"
)

// Entry describes one outstanding tracked resource.
type Entry struct {
	ID        string
	Kind      string
	OpenedAt  time.Time
	Age       time.Duration
}

// Tracker is a mutex-protected registry of outstanding entries, grounded
// on the map+mutex shape of a stats collector: a single map guarded by
// one lock, with fluent helpers for building a point-in-time snapshot.
type Tracker struct {
	mu      sync.Mutex
	clock   clockutil.Clock
	entries map[string]trackedEntry
}

type trackedEntry struct {
	kind     string
	openedAt time.Time
}

// New builds an empty Tracker.
func New(clock clockutil.Clock) *Tracker {
	if clock == nil {
		clock = clockutil.SystemClock{}
	}
	return &Tracker{clock: clock, entries: make(map[string]trackedEntry)}
}

// Track registers a new open resource of the given kind and returns a
// release closure. The closure is idempotent: calling it more than once
// has no further effect.
func (t *Tracker) Track(kind string) func() {
	id := uuid.NewString()
	t.mu.Lock()
	t.entries[id] = trackedEntry{kind: kind, openedAt: t.clock.Now()}
	t.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			delete(t.entries, id)
			t.mu.Unlock()
		})
	}
}

// Outstanding returns a snapshot of every currently-open entry, oldest
// first.
func (t *Tracker) Outstanding() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.clock.Now()
	out := make([]Entry, 0, len(t.entries))
	for id, e := range t.entries {
		out = append(out, Entry{
			ID:       id,
			Kind:     e.kind,
			OpenedAt: e.openedAt,
			Age:      now.Sub(e.openedAt),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OpenedAt.Before(out[j].OpenedAt) })
	return out
}

// OlderThan filters Outstanding to entries open at least minAge, the
// set a periodic leak-diagnostics sweep should log about.
func (t *Tracker) OlderThan(minAge time.Duration) []Entry {
	all := t.Outstanding()
	out := all[:0:0]
	for _, e := range all {
		if e.Age >= minAge {
			out = append(out, e)
		}
	}
	return out
}

// Count reports the number of currently-open entries.
func (t *Tracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
