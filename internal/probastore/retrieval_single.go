package probastore

import (
	"context"

	"github.com/kalshi-core/connectivity/internal/platform/xerrors"
)

// GetProbabilityData reads a single human-readable record by its full
// key components. When eventTitle is non-empty, a stored event_title
// mismatch is treated as a fatal error.
func (s *Store) GetProbabilityData(ctx context.Context, currency, expiry, strike, strikeType, eventTitle string) (ProbabilityFields, error) {
	currencyUpper := upper(currency)

	roundedStrike, err := normaliseStrikeValue(strike)
	if err != nil {
		roundedStrike = strike
	}
	key := humanReadableKey(currencyUpper, expiry, strikeType, roundedStrike)

	rdb, err := s.redis(ctx)
	if err != nil {
		return nil, err
	}

	raw, err := rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, xerrors.Wrap(xerrors.KindStore, "get_probability_data", "failed to get probability data for "+key, err)
	}
	if len(raw) == 0 {
		return nil, errDataNotFound(currencyUpper, key)
	}

	result := ProbabilityFields(decodeProbabilityHash(raw))
	if eventTitle != "" {
		if stored, _ := result["event_title"].(string); stored != eventTitle {
			return nil, xerrors.New(xerrors.KindStore, "get_probability_data",
				"probability payload for "+key+" does not match requested event title "+eventTitle)
		}
	}
	return result, nil
}
