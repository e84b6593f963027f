// Package substore tracks which markets each service (REST poller,
// WebSocket feed, ...) is subscribed to, their vendor-assigned
// subscription IDs, and per-service health status, all in a Redis
// namespace shared across services.
package substore

import (
	"github.com/go-redis/redis/v8"
)

const (
	subscriptionsKey   = "ops:subscriptions:kalshi"
	subscribedSetKey   = "kalshi:subscribed_markets"
	serviceStatusKey   = "ops:service_status:kalshi"
)

// KeyFunc lets a deployment override how market/snapshot keys are
// named; both default to the plain "kalshi:market:<ticker>" /
// "kalshi:snapshot:<ticker>" convention when nil.
type KeyFunc func(marketTicker string) string

// Store is scoped to one service prefix ("rest", "ws", ...); every
// subscription field it writes or reads is namespaced under that prefix.
type Store struct {
	rdb                *redis.Client
	servicePrefix      string
	subscriptionIDsKey string
	marketKey          KeyFunc
	snapshotKey        KeyFunc
}

// New builds a Store for the given service prefix. subscriptionIDsKey
// defaults to "ops:subscription_ids:kalshi:<prefix>" when empty.
func New(rdb *redis.Client, servicePrefix string, subscriptionIDsKey string) *Store {
	if subscriptionIDsKey == "" {
		subscriptionIDsKey = "ops:subscription_ids:kalshi:" + servicePrefix
	}
	return &Store{rdb: rdb, servicePrefix: servicePrefix, subscriptionIDsKey: subscriptionIDsKey}
}

// WithKeyFuncs overrides the market/snapshot key builders; returns the
// same Store for chaining.
func (s *Store) WithKeyFuncs(marketKey, snapshotKey KeyFunc) *Store {
	s.marketKey = marketKey
	s.snapshotKey = snapshotKey
	return s
}

func (s *Store) fieldKey(marketTicker string) string {
	return s.servicePrefix + ":" + marketTicker
}

func defaultMarketKey(ticker string) string   { return "kalshi:market:" + ticker }
func defaultSnapshotKey(ticker string) string { return "kalshi:snapshot:" + ticker }
