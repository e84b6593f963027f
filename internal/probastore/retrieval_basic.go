package probastore

import (
	"context"
	"encoding/json"

	"github.com/sirupsen/logrus"

	"github.com/kalshi-core/connectivity/internal/platform/xerrors"
)

// GetProbabilities reads the compact `probabilities:CURRENCY` hash and
// decodes each "expiry:strike" field's JSON payload, returning results
// sorted chronologically by expiry and numerically by strike.
func (s *Store) GetProbabilities(ctx context.Context, currency string) ([]ExpiryBucket, error) {
	currencyUpper := upper(currency)
	key := compactKey(currencyUpper)

	rdb, err := s.redis(ctx)
	if err != nil {
		return nil, err
	}

	logrus.WithField("key", key).Info("getting probabilities")
	allData, err := rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, xerrors.Wrap(xerrors.KindStore, "get_probabilities", "failed to get probabilities for "+currencyUpper, err)
	}
	if len(allData) == 0 {
		return nil, errDataNotFound(currencyUpper, "")
	}

	buckets := map[string]map[string]ProbabilityFields{}
	for field, valueText := range allData {
		expiry, strike, serr := splitProbabilityField(field)
		if serr != nil {
			return nil, serr
		}

		var payload map[string]any
		if jerr := json.Unmarshal([]byte(valueText), &payload); jerr != nil {
			return nil, xerrors.Wrap(xerrors.KindStore, "get_probabilities", "error parsing probability payload for field "+field, jerr)
		}

		strikeBucket := buckets[expiry]
		if strikeBucket == nil {
			strikeBucket = map[string]ProbabilityFields{}
			buckets[expiry] = strikeBucket
		}
		fields := strikeBucket[strike]
		if fields == nil {
			fields = ProbabilityFields{}
			strikeBucket[strike] = fields
		}
		for k, v := range payload {
			fields[k] = v
		}
	}

	out := make([]ExpiryBucket, 0, len(buckets))
	for expiry, strikes := range buckets {
		bucket := ExpiryBucket{Expiry: expiry}
		for strike, fields := range strikes {
			bucket.Strikes = append(bucket.Strikes, StrikeValue{Strike: strike, Fields: fields})
		}
		out = append(out, bucket)
	}
	sortExpiryBuckets(out)
	return out, nil
}
