package substore

import (
	"context"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/kalshi-core/connectivity/internal/platform/xerrors"
)

// UpdateServiceStatus records this service's latest status string
// (e.g. "connected", "degraded", "offline") under its own field in the
// shared status hash.
func (s *Store) UpdateServiceStatus(ctx context.Context, status string) error {
	if err := s.rdb.HSet(ctx, serviceStatusKey, s.servicePrefix, status).Err(); err != nil {
		logrus.WithError(err).WithField("status", status).Error("error updating service status")
		return xerrors.Wrap(xerrors.KindStore, "update_service_status", "failed to write service status", err)
	}
	return nil
}

// GetServiceStatus returns the last recorded status for this service,
// or ("", false) if none has been recorded.
func (s *Store) GetServiceStatus(ctx context.Context) (string, bool, error) {
	status, err := s.rdb.HGet(ctx, serviceStatusKey, s.servicePrefix).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		logrus.WithError(err).Error("error getting service status")
		return "", false, xerrors.Wrap(xerrors.KindStore, "get_service_status", "failed to read service status", err)
	}
	return status, true, nil
}

// GetAllServiceStatuses returns the full status hash, keyed by service
// prefix.
func (s *Store) GetAllServiceStatuses(ctx context.Context) (map[string]string, error) {
	statuses, err := s.rdb.HGetAll(ctx, serviceStatusKey).Result()
	if err != nil {
		logrus.WithError(err).Error("error getting all service statuses")
		return nil, xerrors.Wrap(xerrors.KindStore, "get_all_service_statuses", "failed to read service status hash", err)
	}
	return statuses, nil
}
