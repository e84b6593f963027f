// Package ratelimit provides a token-bucket pacer for outbound request
// bursts that aren't already covered by a connection-lifecycle's own
// per-request limiter, notably catalog discovery's concurrent event-detail
// fetch fan-out.
package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Config controls the token bucket's steady rate and burst allowance.
type Config struct {
	RequestsPerSecond float64
	Burst             int
}

// DefaultConfig paces a concurrent fan-out at a moderate, sustained rate.
func DefaultConfig() Config {
	return Config{RequestsPerSecond: 20, Burst: 40}
}

// Limiter wraps golang.org/x/time/rate with a Reset hook for tests that
// need to drive a limiter back to a known state between phases.
type Limiter struct {
	mu      sync.RWMutex
	limiter *rate.Limiter
	config  Config
}

// New builds a Limiter. A non-positive RequestsPerSecond becomes 20, and a
// non-positive Burst becomes twice the (possibly defaulted) rate.
func New(cfg Config) *Limiter {
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 20
	}
	if cfg.Burst <= 0 {
		cfg.Burst = int(cfg.RequestsPerSecond * 2)
	}
	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		config:  cfg,
	}
}

// Wait blocks until a token is available or ctx is cancelled.
func (l *Limiter) Wait(ctx context.Context) error {
	l.mu.RLock()
	limiter := l.limiter
	l.mu.RUnlock()
	return limiter.Wait(ctx)
}

// Allow reports whether a token is immediately available, consuming it
// if so.
func (l *Limiter) Allow() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.limiter.Allow()
}

// Reset rebuilds the underlying bucket at the configured rate, discarding
// any accumulated burst credit.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.limiter = rate.NewLimiter(rate.Limit(l.config.RequestsPerSecond), l.config.Burst)
}
