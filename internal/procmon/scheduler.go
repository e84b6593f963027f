package procmon

import (
	"context"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// StartBackgroundScanning registers a cron job (e.g. "@every 30s")
// that runs an incremental scan on each tick, replacing the teacher's
// asyncio background-task loop with cron's scheduler.
func (m *Monitor) StartBackgroundScanning(ctx context.Context, spec string) (*cron.Cron, error) {
	if err := m.Initialize(ctx); err != nil {
		return nil, err
	}

	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		if err := m.incrementalScan(ctx); err != nil {
			logrus.WithError(err).Warn("background process scan failed")
		}
	})
	if err != nil {
		return nil, err
	}
	c.Start()
	logrus.WithField("spec", spec).Info("started process monitor background scanning")
	return c, nil
}
