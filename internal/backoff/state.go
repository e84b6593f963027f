package backoff

import (
	"sync"
	"time"

	"github.com/kalshi-core/connectivity/internal/clockutil"
)

// stateManager owns all per-(service,kind) State values and serializes
// every mutation behind a single mutex, matching the engine's ordering
// guarantee that calculate_delay's read+increment happen atomically.
type stateManager struct {
	mu    sync.Mutex
	clock clockutil.Clock
	data  map[key]*State
}

func newStateManager(clock clockutil.Clock) *stateManager {
	return &stateManager{clock: clock, data: make(map[key]*State)}
}

func (m *stateManager) getOrInit(service string, kind Kind) *State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getOrInitLocked(service, kind)
}

func (m *stateManager) getOrInitLocked(service string, kind Kind) *State {
	k := key{service, kind}
	st, ok := m.data[k]
	if !ok {
		st = &State{LastFailureTime: m.clock.Now()}
		m.data[k] = st
	}
	return st
}

// updateFailureState increments attempt/consecutive-failures and stamps
// last-failure-time, returning the new attempt count. It takes the
// manager's lock itself, so calculate_delay's read+advance is atomic.
func (m *stateManager) updateFailureState(service string, kind Kind) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := m.getOrInitLocked(service, kind)
	st.AttemptCount++
	st.ConsecutiveFailures++
	st.LastFailureTime = m.clock.Now()
	return st.AttemptCount
}

func (m *stateManager) snapshot(service string, kind Kind) (State, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.data[key{service, kind}]
	if !ok {
		return State{}, false
	}
	return *st, true
}

// reset clears state for a single kind, or every kind for the service when
// kind is nil.
func (m *stateManager) reset(service string, kind *Kind) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if kind == nil {
		for k := range m.data {
			if k.service == service {
				delete(m.data, k)
			}
		}
		return
	}
	delete(m.data, key{service, *kind})
}

// cleanupOldState drops per-kind state whose last failure predates
// now-maxAge. A service with no remaining kinds is dropped entirely.
func (m *stateManager) cleanupOldState(maxAge time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.clock.Now()
	for k, st := range m.data {
		if now.Sub(st.LastFailureTime) > maxAge {
			delete(m.data, k)
		}
	}
}

func (m *stateManager) all() map[key]State {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[key]State, len(m.data))
	for k, st := range m.data {
		out[k] = *st
	}
	return out
}
