package lifecycle

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kalshi-core/connectivity/internal/backoff"
	"github.com/kalshi-core/connectivity/internal/health"
)

// Protocol is the set of hooks a concrete transport (REST, WebSocket,
// Scraper) supplies to the Manager, ported from the abstract
// establish_connection/check_connection_health/cleanup_connection trio of
// the original base connection manager.
type Protocol interface {
	Establish(ctx context.Context) error
	CheckHealth(ctx context.Context) health.Result
	Cleanup(ctx context.Context) error
}

// Transition is one state-change event, broadcast to any number of
// listeners without blocking the mutator.
type Transition struct {
	From      State
	To        State
	At        time.Time
	ErrorInfo string
}

// Config controls health-monitor cadence and reconnection thresholds.
type Config struct {
	HealthCheckInterval  time.Duration
	MaxConsecutiveFailures int
	StopGracePeriod      time.Duration
}

func DefaultConfig() Config {
	return Config{
		HealthCheckInterval:    30 * time.Second,
		MaxConsecutiveFailures: 3,
		StopGracePeriod:        5 * time.Second,
	}
}

// Manager owns exactly one ConnectionState and is the sole mutator of it,
// per spec §4.2's "transition_state is the only mutator" requirement.
type Manager struct {
	serviceName string
	protocol    Protocol
	cfg         Config
	engine      *backoff.Engine
	log         *logrus.Entry

	mu    sync.Mutex
	state State

	listenersMu sync.Mutex
	listeners   []chan Transition

	shutdownCh chan struct{}
	doneCh     chan struct{}
	wg         sync.WaitGroup
	stopOnce   sync.Once
}

// New builds a Manager for a protocol specialization.
func New(serviceName string, protocol Protocol, cfg Config, engine *backoff.Engine, log *logrus.Logger) *Manager {
	if cfg.HealthCheckInterval <= 0 {
		cfg.HealthCheckInterval = 30 * time.Second
	}
	if cfg.MaxConsecutiveFailures <= 0 {
		cfg.MaxConsecutiveFailures = 3
	}
	if cfg.StopGracePeriod <= 0 {
		cfg.StopGracePeriod = 5 * time.Second
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Manager{
		serviceName: serviceName,
		protocol:    protocol,
		cfg:         cfg,
		engine:      engine,
		log:         log.WithField("service", serviceName),
		state:       Disconnected,
		shutdownCh:  make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
}

// Subscribe registers a listener for state transitions. The returned
// channel is buffered so publication never blocks the mutator.
func (m *Manager) Subscribe() <-chan Transition {
	ch := make(chan Transition, 16)
	m.listenersMu.Lock()
	m.listeners = append(m.listeners, ch)
	m.listenersMu.Unlock()
	return ch
}

func (m *Manager) transitionState(newState State, errInfo string) {
	m.mu.Lock()
	old := m.state
	m.state = newState
	m.mu.Unlock()

	m.log.WithFields(logrus.Fields{"from": old.String(), "to": newState.String()}).Info("connection state transition")

	t := Transition{From: old, To: newState, At: time.Now(), ErrorInfo: errInfo}
	m.listenersMu.Lock()
	defer m.listenersMu.Unlock()
	for _, ch := range m.listeners {
		select {
		case ch <- t:
		default:
			m.log.Warn("state-transition listener is full, dropping notification")
		}
	}
}

// State returns the current state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Status returns a snapshot map suitable for a status endpoint.
func (m *Manager) Status() map[string]any {
	return map[string]any{
		"service": m.serviceName,
		"state":   m.State().String(),
	}
}

// Start invokes connect_with_retry, spawns the health monitor on success,
// and returns whether the connection was established.
func (m *Manager) Start(ctx context.Context) bool {
	ok := m.connectWithRetry(ctx)
	if !ok {
		return false
	}
	m.wg.Add(1)
	go m.healthMonitorLoop(ctx)
	return true
}

// connectWithRetry is the bounded retry loop of spec §4.2: on failure it
// consults the backoff engine under the "network" kind, sleeps, and
// reattempts; it gives up (transitioning to Failed) once ShouldRetry is
// false.
func (m *Manager) connectWithRetry(ctx context.Context) bool {
	m.transitionState(Connecting, "")
	for {
		select {
		case <-m.shutdownCh:
			return false
		default:
		}

		err := m.protocol.Establish(ctx)
		if err == nil {
			m.transitionState(Connected, "")
			if m.engine != nil {
				m.engine.Reset(m.serviceName, nil)
			}
			return true
		}

		if m.engine != nil && !m.engine.ShouldRetry(m.serviceName, backoff.KindNetwork) {
			m.transitionState(Failed, err.Error())
			return false
		}

		var delay time.Duration
		if m.engine != nil {
			delay = m.engine.CalculateDelay(m.serviceName, backoff.KindNetwork, nil)
		} else {
			delay = time.Second
		}
		m.log.WithError(err).WithField("delay", delay).Warn("connection attempt failed, retrying")

		select {
		case <-ctx.Done():
			return false
		case <-m.shutdownCh:
			return false
		case <-time.After(delay):
		}
	}
}

func (m *Manager) healthMonitorLoop(ctx context.Context) {
	defer m.wg.Done()
	ticker := time.NewTicker(m.cfg.HealthCheckInterval)
	defer ticker.Stop()

	consecutiveFailures := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.shutdownCh:
			return
		case <-ticker.C:
			result := m.protocol.CheckHealth(ctx)
			if result.Healthy {
				consecutiveFailures = 0
				continue
			}
			consecutiveFailures++
			if consecutiveFailures >= m.cfg.MaxConsecutiveFailures {
				m.transitionState(Reconnecting, result.Error)
				if !m.connectWithRetry(ctx) {
					return
				}
				consecutiveFailures = 0
			}
		}
	}
}

// Stop requests shutdown, waits up to StopGracePeriod for background
// tasks to exit, then invokes the protocol's cleanup hook.
func (m *Manager) Stop(ctx context.Context) {
	m.stopOnce.Do(func() {
		m.transitionState(ShuttingDown, "")
		close(m.shutdownCh)

		waitCh := make(chan struct{})
		go func() {
			m.wg.Wait()
			close(waitCh)
		}()
		select {
		case <-waitCh:
		case <-time.After(m.cfg.StopGracePeriod):
			m.log.Warn("stop grace period exceeded, forcing cleanup")
		}

		if err := m.protocol.Cleanup(ctx); err != nil {
			m.log.WithError(err).Error("cleanup failed")
		}
		close(m.doneCh)
	})
}

// Done reports when Stop has fully completed.
func (m *Manager) Done() <-chan struct{} {
	return m.doneCh
}
