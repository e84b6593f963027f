package substore

import (
	"context"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/kalshi-core/connectivity/internal/platform/xerrors"
)

// marketKeyFor and snapshotKeyFor apply the KeyFunc overrides set by
// WithKeyFuncs; without an override they fall back to the plain
// "kalshi:market:<ticker>" / "kalshi:snapshot:<ticker>" convention.
func (s *Store) marketKeyFor(ticker string) string {
	if s.marketKey != nil {
		return s.marketKey(ticker)
	}
	return defaultMarketKey(ticker)
}

func (s *Store) snapshotKeyFor(ticker string) string {
	if s.snapshotKey != nil {
		return s.snapshotKey(ticker)
	}
	return defaultSnapshotKey(ticker)
}

// RemoveServiceKeys tears down every key namespaced to this service's
// prefix: its subscription fields in the shared hash, its subscription
// IDs hash, and its status field. It does not touch market/snapshot
// data or the companion subscribed-markets set.
func (s *Store) RemoveServiceKeys(ctx context.Context) error {
	fields, err := s.servicePrefixedFields(ctx)
	if err != nil {
		return err
	}

	pipe := s.rdb.Pipeline()
	if len(fields) > 0 {
		pipe.HDel(ctx, subscriptionsKey, fields...)
	}
	pipe.Del(ctx, s.subscriptionIDsKey)
	pipe.HDel(ctx, serviceStatusKey, s.servicePrefix)

	if _, err := pipe.Exec(ctx); err != nil {
		logrus.WithError(err).WithField("prefix", s.servicePrefix).Error("error removing service keys")
		return xerrors.Wrap(xerrors.KindStore, "remove_service_keys", "failed to pipeline service key removal", err)
	}
	logrus.WithField("prefix", s.servicePrefix).WithField("fields", len(fields)).Info("removed service keys")
	return nil
}

func (s *Store) servicePrefixedFields(ctx context.Context) ([]string, error) {
	raw, err := s.rdb.HGetAll(ctx, subscriptionsKey).Result()
	if err != nil {
		return nil, xerrors.Wrap(xerrors.KindStore, "remove_service_keys", "failed to enumerate subscriptions hash", err)
	}
	prefix := s.fieldPrefix()
	fields := make([]string, 0, len(raw))
	for key := range raw {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			fields = append(fields, key)
		}
	}
	sort.Strings(fields)
	return fields, nil
}

// RemoveMarketCompletely removes every trace of a market: its
// subscription field, its membership in the subscribed set, its market
// hash, and its snapshot hash, all in a single pipeline.
func (s *Store) RemoveMarketCompletely(ctx context.Context, marketTicker string) error {
	pipe := s.rdb.Pipeline()
	pipe.SRem(ctx, subscribedSetKey, marketTicker)
	pipe.HDel(ctx, subscriptionsKey, s.fieldKey(marketTicker))
	pipe.Del(ctx, s.marketKeyFor(marketTicker))
	pipe.Del(ctx, s.snapshotKeyFor(marketTicker))

	if _, err := pipe.Exec(ctx); err != nil {
		logrus.WithError(err).WithField("ticker", marketTicker).Error("error removing market completely")
		return xerrors.Wrap(xerrors.KindStore, "remove_market_completely", "failed to pipeline market removal", err)
	}
	return nil
}

// RemoveAllKalshiKeys deletes every key matching the given patterns,
// defaulting to "kalshi:*" when none are given. Intended for full
// teardown between test runs or environment resets, not routine use.
func (s *Store) RemoveAllKalshiKeys(ctx context.Context, patterns ...string) (int, error) {
	if len(patterns) == 0 {
		patterns = []string{"kalshi:*"}
	}

	removed := 0
	for _, pattern := range patterns {
		keys, err := s.rdb.Keys(ctx, pattern).Result()
		if err != nil {
			return removed, xerrors.Wrap(xerrors.KindStore, "remove_all_kalshi_keys", "failed to enumerate keys for pattern "+pattern, err)
		}
		if len(keys) == 0 {
			continue
		}
		if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
			return removed, xerrors.Wrap(xerrors.KindStore, "remove_all_kalshi_keys", "failed to delete keys for pattern "+pattern, err)
		}
		removed += len(keys)
	}
	logrus.WithField("removed", removed).Info("removed all kalshi keys")
	return removed, nil
}
