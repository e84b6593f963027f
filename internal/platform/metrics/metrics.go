// Package metrics exports Prometheus collectors for connection
// lifecycle health and mirrors a JSON snapshot of them into Redis at
// connection_metrics:{service} (TTL 3600s) for services that read
// health state directly out of Redis rather than scraping /metrics.
package metrics

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kalshi-core/connectivity/internal/platform/xerrors"
)

const redisSnapshotTTL = time.Hour

// Metrics holds every Prometheus collector connectivity-core exports.
type Metrics struct {
	ConnectionState   *prometheus.GaugeVec
	ReconnectsTotal   *prometheus.CounterVec
	FailuresTotal     *prometheus.CounterVec
	RequestsTotal     *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
	HealthCheckResult *prometheus.GaugeVec

	service string
	mu      sync.Mutex
	started time.Time
}

// New creates a Metrics instance for service, registering its
// collectors against the default registry.
func New(service string) *Metrics {
	return NewWithRegistry(service, prometheus.DefaultRegisterer)
}

// NewWithRegistry is New with an explicit registerer, for tests that
// want an isolated registry.
func NewWithRegistry(service string, registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		service: service,
		started: time.Now(),
		ConnectionState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "connection_state",
				Help: "Current connection lifecycle state (1 = active state, one series per state label)",
			},
			[]string{"service", "state"},
		),
		ReconnectsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "connection_reconnects_total",
				Help: "Total number of reconnect attempts",
			},
			[]string{"service"},
		),
		FailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "connection_failures_total",
				Help: "Total number of connection failures by kind",
			},
			[]string{"service", "kind"},
		),
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "requests_total",
				Help: "Total number of outbound requests by status",
			},
			[]string{"service", "operation", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "request_duration_seconds",
				Help:    "Outbound request duration in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"service", "operation"},
		),
		HealthCheckResult: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "health_check_result",
				Help: "Most recent health check result (1 = healthy, 0 = unhealthy)",
			},
			[]string{"service"},
		),
	}

	if registerer != nil {
		registerer.MustRegister(
			m.ConnectionState,
			m.ReconnectsTotal,
			m.FailuresTotal,
			m.RequestsTotal,
			m.RequestDuration,
			m.HealthCheckResult,
		)
	}
	return m
}

// RecordRequest records one outbound request's outcome and duration.
func (m *Metrics) RecordRequest(operation, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(m.service, operation, status).Inc()
	m.RequestDuration.WithLabelValues(m.service, operation).Observe(duration.Seconds())
}

// RecordFailure increments the failure counter for a given kind.
func (m *Metrics) RecordFailure(kind string) {
	m.FailuresTotal.WithLabelValues(m.service, kind).Inc()
}

// RecordReconnect increments the reconnect counter.
func (m *Metrics) RecordReconnect() {
	m.ReconnectsTotal.WithLabelValues(m.service).Inc()
}

// SetConnectionState zeroes every other known state and sets the
// given one to 1, so the gauge vector always has exactly one active
// series per service.
func (m *Metrics) SetConnectionState(state string, allStates []string) {
	for _, s := range allStates {
		value := 0.0
		if s == state {
			value = 1.0
		}
		m.ConnectionState.WithLabelValues(m.service, s).Set(value)
	}
}

// SetHealthy records the latest health check result.
func (m *Metrics) SetHealthy(healthy bool) {
	value := 0.0
	if healthy {
		value = 1.0
	}
	m.HealthCheckResult.WithLabelValues(m.service).Set(value)
}

// Snapshot is the JSON shape written to connection_metrics:{service}.
type Snapshot struct {
	Service       string    `json:"service"`
	UptimeSeconds float64   `json:"uptime_seconds"`
	Timestamp     time.Time `json:"timestamp"`
}

// WriteRedisSnapshot serializes a point-in-time snapshot to
// connection_metrics:{service} with a one-hour TTL, matching the
// Redis-facing health key services read without scraping /metrics.
func (m *Metrics) WriteRedisSnapshot(ctx context.Context, rdb *redis.Client) error {
	snap := Snapshot{
		Service:       m.service,
		UptimeSeconds: time.Since(m.started).Seconds(),
		Timestamp:     time.Now(),
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		return xerrors.Wrap(xerrors.KindStore, "write_redis_snapshot", "failed to marshal metrics snapshot", err)
	}
	key := "connection_metrics:" + m.service
	if err := rdb.Set(ctx, key, payload, redisSnapshotTTL).Err(); err != nil {
		return xerrors.Wrap(xerrors.KindStore, "write_redis_snapshot", "failed to write metrics snapshot", err)
	}
	return nil
}

// Enabled mirrors the teacher's METRICS_ENABLED gate: disabled
// unless explicitly enabled via METRICS_ENABLED=1/true/yes/on.
func Enabled() bool {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv("METRICS_ENABLED")))
	switch raw {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
