// Package backoff implements the per-(service, failure-kind) exponential
// backoff state machine: growing, jittered, network-aware delays with
// bounded retries.
package backoff

import (
	"time"

	"github.com/kalshi-core/connectivity/internal/clockutil"
)

// DefaultMaxAge is the default state garbage-collection threshold.
const DefaultMaxAge = 1 * time.Hour

// Engine computes backoff delays and tracks retry state for every
// (service, kind) pair it has seen a failure for.
type Engine struct {
	configs map[Kind]Config
	network NetworkHealth
	state   *stateManager
	clock   clockutil.Clock
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithNetworkHealth injects the network-health monitor consulted for the
// degraded-multiplier step.
func WithNetworkHealth(n NetworkHealth) Option {
	return func(e *Engine) { e.network = n }
}

// WithConfigs overrides the default per-kind configuration for the kinds
// present in cfgs; other kinds keep their defaults.
func WithConfigs(cfgs map[Kind]Config) Option {
	return func(e *Engine) {
		for k, v := range cfgs {
			e.configs[k] = v
		}
	}
}

// WithClock injects a Clock, primarily for deterministic tests.
func WithClock(c clockutil.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// NewEngine builds a backoff Engine with the default per-kind configs,
// overridable via options.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{configs: DefaultConfigs(), clock: clockutil.SystemClock{}}
	for _, opt := range opts {
		opt(e)
	}
	e.state = newStateManager(e.clock)
	return e
}

func (e *Engine) configFor(kind Kind) Config {
	if cfg, ok := e.configs[kind]; ok {
		return cfg
	}
	return e.configs[KindGeneral]
}

// CalculateDelay computes the delay for the next attempt of (service, kind).
//
// When attempt is nil, the engine advances its tracked state: it
// increments attempt_count and consecutive_failures, stamps
// last_failure_time, and uses the new attempt count. When attempt is
// supplied, the call is a read-only preview: state is never mutated, only
// read. This is the documented resolution of the open question in spec §9 —
// preview never advances state, under any condition.
func (e *Engine) CalculateDelay(service string, kind Kind, attempt *int) time.Duration {
	cfg := e.configFor(kind)
	var current int
	if attempt != nil {
		current = *attempt
	} else {
		current = e.state.updateFailureState(service, kind)
	}
	return calculateFullDelay(cfg, current, e.network)
}

// ShouldRetry reports whether attempt_count is still below max_attempts for
// (service, kind). A service/kind never seen before can always retry.
func (e *Engine) ShouldRetry(service string, kind Kind) bool {
	cfg := e.configFor(kind)
	st, ok := e.state.snapshot(service, kind)
	if !ok {
		return true
	}
	return st.AttemptCount < cfg.MaxAttempts
}

// Reset clears backoff state for (service, kind). When kind is nil, every
// kind tracked for service is cleared.
func (e *Engine) Reset(service string, kind *Kind) {
	e.state.reset(service, kind)
}

// Status reports the current attempt/consecutive-failure counts and a
// preview of the next delay, without mutating state.
func (e *Engine) Status(service string, kind Kind) Status {
	cfg := e.configFor(kind)
	st, ok := e.state.snapshot(service, kind)
	if !ok {
		return Status{
			MaxAttempts: cfg.MaxAttempts,
			CanRetry:    true,
			NextDelay:   e.CalculateDelay(service, kind, intPtr(1)),
		}
	}
	nextAttempt := st.AttemptCount + 1
	return Status{
		Attempt:             st.AttemptCount,
		ConsecutiveFailures: st.ConsecutiveFailures,
		LastFailureTime:     st.LastFailureTime,
		HasFailed:           true,
		MaxAttempts:         cfg.MaxAttempts,
		CanRetry:            st.AttemptCount < cfg.MaxAttempts,
		NextDelay:           e.CalculateDelay(service, kind, &nextAttempt),
	}
}

// AllStatus enumerates Status for every (service, kind) pair that has ever
// failed. Supplemental operation recovered from
// backoff_manager_helpers/status_reporter.py's get_all_backoff_status,
// dropped by the spec.md distillation.
func (e *Engine) AllStatus() map[string]map[Kind]Status {
	all := e.state.all()
	out := make(map[string]map[Kind]Status, len(all))
	for k := range all {
		bucket, ok := out[k.service]
		if !ok {
			bucket = make(map[Kind]Status)
			out[k.service] = bucket
		}
		bucket[k.kind] = e.Status(k.service, k.kind)
	}
	return out
}

// CleanupOldState removes tracked state whose last failure predates
// now-maxAge, preventing unbounded growth of long-lived processes.
func (e *Engine) CleanupOldState(maxAge time.Duration) {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	e.state.cleanupOldState(maxAge)
}

func intPtr(v int) *int { return &v }
