// Package procmon caches process scans so that service and Redis
// health checks never pay the cost of a full psutil.process_iter
// equivalent sweep on every call.
package procmon

import (
	"context"
	"strings"
	"sync"
	"time"
)

// ProcessInfo is a cached snapshot of one running process.
type ProcessInfo struct {
	PID      int32
	Name     string
	Cmdline  []string
	LastSeen time.Time
}

// DefaultServicePatterns mirrors the teacher-domain keyword table used
// to classify processes by the command-line fragments they run with.
func DefaultServicePatterns() map[string][]string {
	return map[string][]string{
		"kalshi":      {"src.kalshi"},
		"rest":        {"src.kalshi", "rest"},
		"ws":          {"src.kalshi", "ws"},
		"monitor":     {"src.monitor", "simple_monitor"},
		"tracker":     {"src.tracker"},
		"price_alert": {"src.price_alert"},
	}
}

// deadProcessThreshold: if more than this fraction of the cached set
// disappears in one incremental scan, a full rescan is triggered.
const deadProcessThreshold = 0.1

// Monitor is a cached, thread-safe process scanner.
type Monitor struct {
	servicePatterns map[string][]string

	mu            sync.RWMutex
	processCache  map[int32]ProcessInfo
	serviceCache  map[string][]ProcessInfo
	redisCache    []ProcessInfo
	lastFullScan  time.Time
	scanInterval  time.Duration
}

// New builds a Monitor with the given service keyword patterns
// (DefaultServicePatterns() if nil) and the interval after which a
// stale cache triggers an incremental scan on read.
func New(servicePatterns map[string][]string, scanInterval time.Duration) *Monitor {
	if servicePatterns == nil {
		servicePatterns = DefaultServicePatterns()
	}
	if scanInterval <= 0 {
		scanInterval = 60 * time.Second
	}
	return &Monitor{
		servicePatterns: servicePatterns,
		processCache:    make(map[int32]ProcessInfo),
		serviceCache:    make(map[string][]ProcessInfo),
		scanInterval:    scanInterval,
	}
}

// Initialize performs an initial full scan; call before relying on any
// cached accessor.
func (m *Monitor) Initialize(ctx context.Context) error {
	return m.fullScan(ctx)
}

// EnsureFresh runs an incremental scan if the cache has aged past the
// scan interval.
func (m *Monitor) EnsureFresh(ctx context.Context) error {
	m.mu.RLock()
	stale := time.Since(m.lastFullScan) > m.scanInterval
	m.mu.RUnlock()
	if !stale {
		return nil
	}
	return m.incrementalScan(ctx)
}

// GetServiceProcesses returns the cached processes matching a service
// keyword pattern, refreshing the cache first if stale.
func (m *Monitor) GetServiceProcesses(ctx context.Context, serviceName string) ([]ProcessInfo, error) {
	if err := m.EnsureFresh(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]ProcessInfo(nil), m.serviceCache[serviceName]...), nil
}

// GetRedisProcesses returns the cached set of processes identified as
// Redis servers.
func (m *Monitor) GetRedisProcesses(ctx context.Context) ([]ProcessInfo, error) {
	if err := m.EnsureFresh(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]ProcessInfo(nil), m.redisCache...), nil
}

// GetProcessByPID looks up a single cached process.
func (m *Monitor) GetProcessByPID(ctx context.Context, pid int32) (ProcessInfo, bool, error) {
	if err := m.EnsureFresh(ctx); err != nil {
		return ProcessInfo{}, false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	info, ok := m.processCache[pid]
	return info, ok, nil
}

// FindProcessesByKeywords returns every cached process whose command
// line contains every given keyword.
func (m *Monitor) FindProcessesByKeywords(ctx context.Context, keywords []string) ([]ProcessInfo, error) {
	if err := m.EnsureFresh(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matches []ProcessInfo
	for _, info := range m.processCache {
		if matchesServicePattern(info.Cmdline, keywords) {
			matches = append(matches, info)
		}
	}
	return matches, nil
}

func matchesServicePattern(cmdline []string, pattern []string) bool {
	if len(cmdline) == 0 {
		return false
	}
	for _, expected := range pattern {
		found := false
		for _, arg := range cmdline {
			if strings.Contains(arg, expected) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func isRedisProcess(name string, cmdline []string) bool {
	if strings.Contains(name, "redis-server") {
		return true
	}
	for _, arg := range cmdline {
		if strings.Contains(strings.ToLower(arg), "redis") {
			return true
		}
	}
	return false
}
