package substore

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/kalshi-core/connectivity/internal/platform/xerrors"
)

// GetSubscribedMarkets returns the set of market tickers this service
// (by prefix) has an active ("1") subscription field for.
func (s *Store) GetSubscribedMarkets(ctx context.Context) (map[string]struct{}, error) {
	raw, err := s.rdb.HGetAll(ctx, subscriptionsKey).Result()
	if err != nil {
		logrus.WithError(err).Error("error getting subscribed markets")
		return nil, xerrors.Wrap(xerrors.KindStore, "get_subscribed_markets", "failed to read subscriptions hash", err)
	}

	prefix := s.servicePrefix + ":"
	markets := make(map[string]struct{})
	for key, value := range raw {
		if strings.HasPrefix(key, prefix) && value == "1" {
			markets[strings.TrimPrefix(key, prefix)] = struct{}{}
		}
	}
	return markets, nil
}

// AddSubscribedMarket marks a market as subscribed under this service's
// prefix and tracks it in the companion set.
func (s *Store) AddSubscribedMarket(ctx context.Context, marketTicker string) error {
	if err := s.rdb.HSet(ctx, subscriptionsKey, s.fieldKey(marketTicker), "1").Err(); err != nil {
		logrus.WithError(err).WithField("ticker", marketTicker).Error("error adding subscribed market")
		return xerrors.Wrap(xerrors.KindStore, "add_subscribed_market", "failed to set subscription field", err)
	}
	if err := s.rdb.SAdd(ctx, subscribedSetKey, marketTicker).Err(); err != nil {
		return xerrors.Wrap(xerrors.KindStore, "add_subscribed_market", "failed to add to subscribed set", err)
	}
	return nil
}

// RemoveSubscribedMarket clears the subscription field under this
// service's prefix. It does not touch the companion set or market data
// — use RemoveMarketCompletely for full teardown.
func (s *Store) RemoveSubscribedMarket(ctx context.Context, marketTicker string) error {
	if err := s.rdb.HDel(ctx, subscriptionsKey, s.fieldKey(marketTicker)).Err(); err != nil {
		logrus.WithError(err).WithField("ticker", marketTicker).Error("error removing subscribed market")
		return xerrors.Wrap(xerrors.KindStore, "remove_subscribed_market", "failed to delete subscription field", err)
	}
	return nil
}

// RecordSubscriptionIDs persists vendor-assigned subscription IDs for a
// batch of markets, namespaced under this service's prefix.
func (s *Store) RecordSubscriptionIDs(ctx context.Context, subscriptions map[string]string) error {
	if len(subscriptions) == 0 {
		return nil
	}
	payload := make(map[string]interface{}, len(subscriptions))
	prefix := s.fieldPrefix()
	for market, subID := range subscriptions {
		if subID == "" {
			continue
		}
		payload[prefix+market] = subID
	}
	if len(payload) == 0 {
		return nil
	}
	if err := s.rdb.HSet(ctx, s.subscriptionIDsKey, payload).Err(); err != nil {
		logrus.WithError(err).Error("error recording subscription ids")
		return xerrors.Wrap(xerrors.KindStore, "record_subscription_ids", "failed to store subscription ids", err)
	}
	return nil
}

// FetchSubscriptionIDs retrieves previously recorded subscription IDs
// for the given markets; markets with no recorded ID are omitted.
func (s *Store) FetchSubscriptionIDs(ctx context.Context, markets []string) (map[string]string, error) {
	if len(markets) == 0 {
		return map[string]string{}, nil
	}
	prefix := s.fieldPrefix()
	fields := make([]string, len(markets))
	for i, m := range markets {
		fields[i] = prefix + m
	}

	values, err := s.rdb.HMGet(ctx, s.subscriptionIDsKey, fields...).Result()
	if err != nil {
		logrus.WithError(err).Error("error fetching subscription ids")
		return nil, xerrors.Wrap(xerrors.KindStore, "fetch_subscription_ids", "failed to read subscription ids", err)
	}

	recovered := make(map[string]string, len(markets))
	for i, v := range values {
		if v == nil {
			continue
		}
		if s, ok := v.(string); ok {
			recovered[markets[i]] = s
		}
	}
	return recovered, nil
}

// ClearSubscriptionIDs deletes subscription IDs for the specified
// markets, namespaced under this service's prefix.
func (s *Store) ClearSubscriptionIDs(ctx context.Context, markets []string) error {
	if len(markets) == 0 {
		return nil
	}
	prefix := s.fieldPrefix()
	fields := make([]string, len(markets))
	for i, m := range markets {
		fields[i] = prefix + m
	}
	if err := s.rdb.HDel(ctx, s.subscriptionIDsKey, fields...).Err(); err != nil {
		logrus.WithError(err).Error("error clearing subscription ids")
		return xerrors.Wrap(xerrors.KindStore, "clear_subscription_ids", "failed to delete subscription ids", err)
	}
	return nil
}

func (s *Store) fieldPrefix() string {
	if s.servicePrefix == "" {
		return ""
	}
	return s.servicePrefix + ":"
}
