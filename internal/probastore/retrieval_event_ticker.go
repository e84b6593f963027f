package probastore

import (
	"context"
	"strings"

	"github.com/kalshi-core/connectivity/internal/platform/xerrors"
)

// GetEventTickerForKey resolves the event_ticker field for a probability
// key given as "SYMBOL:expiry:strike:strike_type".
func (s *Store) GetEventTickerForKey(ctx context.Context, pattern string) (string, error) {
	parts := strings.SplitN(pattern, ":", 4)
	if len(parts) < 4 {
		return "", xerrors.New(xerrors.KindStore, "get_event_ticker_for_key", "invalid pattern for event type lookup: "+pattern)
	}
	symbol, expiry, strike, strikeType := parts[0], parts[1], parts[2], parts[3]
	redisKey := humanReadableKey(symbol, expiry, strikeType, strike)

	rdb, err := s.redis(ctx)
	if err != nil {
		return "", err
	}

	data, err := rdb.HGetAll(ctx, redisKey).Result()
	if err != nil {
		return "", xerrors.Wrap(xerrors.KindStore, "get_event_ticker_for_key", "failed to get event ticker for key "+pattern, err)
	}
	if len(data) == 0 {
		return "", errDataNotFound(symbol, redisKey)
	}

	if ticker, ok := data["event_ticker"]; ok && ticker != "" {
		return ticker, nil
	}
	return "", xerrors.New(xerrors.KindStore, "get_event_ticker_for_key", "no event_ticker found for key "+redisKey)
}
