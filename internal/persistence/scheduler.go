package persistence

import (
	"context"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Scheduler periodically re-validates persistence configuration,
// recovering the original's service-level polling wrapper: spec.md
// names only the synchronous ValidatePersistence/ConfigurePersistence
// operations, the periodic driver is supplemental.
type Scheduler struct {
	manager *Manager
	cron    *cron.Cron
	onCheck func(ok bool, message string)
}

// NewScheduler wires a Manager to a cron spec (e.g. "@every 5m").
// onCheck, if non-nil, is invoked with the result of every validation
// pass so callers can feed it into health/metrics reporting.
func NewScheduler(manager *Manager, onCheck func(ok bool, message string)) *Scheduler {
	return &Scheduler{
		manager: manager,
		cron:    cron.New(),
		onCheck: onCheck,
	}
}

// Start registers the periodic validation job and begins running it.
func (s *Scheduler) Start(ctx context.Context, spec string) error {
	_, err := s.cron.AddFunc(spec, func() {
		ok, message := s.manager.ValidatePersistence(ctx)
		if !ok {
			logrus.WithField("message", message).Warn("redis persistence validation failed")
			if configured, cfgErr := s.manager.ConfigurePersistence(ctx); cfgErr != nil || !configured {
				logrus.WithError(cfgErr).Warn("failed to reconfigure redis persistence after validation failure")
			}
		} else {
			logrus.WithField("message", message).Debug("redis persistence validated")
		}
		if s.onCheck != nil {
			s.onCheck(ok, message)
		}
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop halts the scheduler, waiting for any in-flight job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
