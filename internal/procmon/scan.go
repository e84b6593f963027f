package procmon

import (
	"context"
	"time"

	"github.com/shirou/gopsutil/v3/process"
	"github.com/sirupsen/logrus"

	"github.com/kalshi-core/connectivity/internal/platform/xerrors"
)

const fullScanTimeout = 5 * time.Second

// fullScan rebuilds the entire process/service/redis cache from a
// fresh process_iter-equivalent sweep.
func (m *Monitor) fullScan(ctx context.Context) error {
	scanCtx, cancel := context.WithTimeout(ctx, fullScanTimeout)
	defer cancel()

	type result struct {
		processes map[int32]ProcessInfo
		services  map[string][]ProcessInfo
		redis     []ProcessInfo
		err       error
	}
	resultCh := make(chan result, 1)

	go func() {
		processes, services, redis, err := m.scanAll()
		resultCh <- result{processes, services, redis, err}
	}()

	select {
	case <-scanCtx.Done():
		logrus.Warn("full process scan timed out")
		m.mu.Lock()
		m.processCache = map[int32]ProcessInfo{}
		m.serviceCache = map[string][]ProcessInfo{}
		m.redisCache = nil
		m.lastFullScan = time.Now()
		m.mu.Unlock()
		return nil
	case r := <-resultCh:
		if r.err != nil {
			return xerrors.Wrap(xerrors.KindStore, "full_scan", "process scan failed", r.err)
		}
		m.mu.Lock()
		m.processCache = r.processes
		m.serviceCache = r.services
		m.redisCache = r.redis
		m.lastFullScan = time.Now()
		m.mu.Unlock()
		logrus.WithField("processes", len(r.processes)).Debug("full process scan complete")
		return nil
	}
}

func (m *Monitor) scanAll() (map[int32]ProcessInfo, map[string][]ProcessInfo, []ProcessInfo, error) {
	procs, err := process.Processes()
	if err != nil {
		return nil, nil, nil, err
	}

	processes := make(map[int32]ProcessInfo, len(procs))
	services := make(map[string][]ProcessInfo)
	var redisProcs []ProcessInfo

	now := time.Now()
	for _, p := range procs {
		name, err := p.Name()
		if err != nil {
			continue
		}
		cmdline, err := p.CmdlineSlice()
		if err != nil {
			cmdline = nil
		}

		info := ProcessInfo{PID: p.Pid, Name: name, Cmdline: cmdline, LastSeen: now}
		processes[p.Pid] = info

		for serviceName, pattern := range m.servicePatterns {
			if matchesServicePattern(cmdline, pattern) {
				services[serviceName] = append(services[serviceName], info)
				break
			}
		}

		if isRedisProcess(name, cmdline) {
			redisProcs = append(redisProcs, info)
		}
	}

	return processes, services, redisProcs, nil
}

// incrementalScan drops dead pids from the cache and triggers a full
// rescan only when the dead fraction crosses deadProcessThreshold;
// otherwise the incrementally-pruned cache stands.
func (m *Monitor) incrementalScan(ctx context.Context) error {
	m.mu.RLock()
	pids := make([]int32, 0, len(m.processCache))
	for pid := range m.processCache {
		pids = append(pids, pid)
	}
	total := len(m.processCache)
	m.mu.RUnlock()

	var deadPIDs []int32
	for _, pid := range pids {
		exists, err := process.PidExists(pid)
		if err != nil || !exists {
			deadPIDs = append(deadPIDs, pid)
		}
	}

	if len(deadPIDs) == 0 {
		return nil
	}

	m.mu.Lock()
	for _, pid := range deadPIDs {
		delete(m.processCache, pid)
	}
	m.mu.Unlock()

	triggerFull := total > 0 && float64(len(deadPIDs)) > float64(total)*deadProcessThreshold
	if triggerFull {
		logrus.WithField("dead", len(deadPIDs)).WithField("total", total).Info("too many dead processes, triggering full scan")
		return m.fullScan(ctx)
	}
	return nil
}
