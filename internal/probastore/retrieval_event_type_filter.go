package probastore

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/kalshi-core/connectivity/internal/platform/xerrors"
)

// GetProbabilitiesByEventType scans every human-readable key under the
// currency prefix, keeps only those whose stored event_type matches, and
// groups the survivors expiry -> strike_type -> strike.
func (s *Store) GetProbabilitiesByEventType(ctx context.Context, currency, eventType string) ([]EventTypeExpiryBucket, error) {
	currencyUpper := upper(currency)
	rdb, err := s.redis(ctx)
	if err != nil {
		return nil, err
	}

	prefix := humanReadablePrefix(currencyUpper)
	rawKeys, err := rdb.Keys(ctx, prefix+"*").Result()
	if err != nil {
		return nil, xerrors.Wrap(xerrors.KindStore, "get_probabilities_by_event_type", "failed to fetch event type "+eventType+" for "+currencyUpper, err)
	}

	var matched []string
	for _, key := range rawKeys {
		storedType, herr := rdb.HGet(ctx, key, "event_type").Result()
		if herr != nil || storedType == "" {
			continue
		}
		if storedType == eventType {
			matched = append(matched, key)
		}
	}
	if len(matched) == 0 {
		return nil, xerrors.New(xerrors.KindStore, "get_probabilities_by_event_type", "no data found for event type '"+eventType+"' for "+currencyUpper)
	}

	byBucket := map[[2]string][]StrikeValue{}
	expiries := map[string]map[string]struct{}{}
	for _, keyStr := range matched {
		expiry, strikeType, strike, perr := parseProbabilityKey(keyStr)
		if perr != nil {
			return nil, perr
		}
		raw, gerr := rdb.HGetAll(ctx, keyStr).Result()
		if gerr != nil {
			return nil, xerrors.Wrap(xerrors.KindStore, "get_probabilities_by_event_type", "failed to read key "+keyStr, gerr)
		}
		if len(raw) == 0 {
			return nil, xerrors.New(xerrors.KindStore, "get_probabilities_by_event_type", "probability payload missing for key "+keyStr)
		}
		processed := decodeProbabilityHash(raw)

		if expiries[expiry] == nil {
			expiries[expiry] = map[string]struct{}{}
		}
		expiries[expiry][strikeType] = struct{}{}

		bKey := [2]string{expiry, strikeType}
		byBucket[bKey] = append(byBucket[bKey], StrikeValue{Strike: strike, Fields: ProbabilityFields(processed)})
	}

	out := make([]EventTypeExpiryBucket, 0, len(expiries))
	for expiry, strikeTypes := range expiries {
		eb := EventTypeExpiryBucket{Expiry: expiry}
		for strikeType := range strikeTypes {
			eb.StrikeTypes = append(eb.StrikeTypes, StrikeTypeBucket{
				StrikeType: strikeType,
				Strikes:    byBucket[[2]string{expiry, strikeType}],
			})
		}
		out = append(out, eb)
	}
	sortEventTypeExpiryBuckets(out)

	logrus.WithFields(logrus.Fields{
		"currency":   currencyUpper,
		"event_type": eventType,
		"keys":       len(matched),
	}).Info("retrieved probabilities by event type")

	return out, nil
}

// GetProbabilitiesGroupedByEventType is a convenience wrapper that calls
// GetAllEventTypes then GetProbabilitiesByEventType for each one found.
func (s *Store) GetProbabilitiesGroupedByEventType(ctx context.Context, currency string) ([]EventTypeGroup, error) {
	eventTypes, err := s.GetAllEventTypes(ctx, currency)
	if err != nil {
		return nil, err
	}

	out := make([]EventTypeGroup, 0, len(eventTypes))
	for _, eventType := range eventTypes {
		expiries, err := s.GetProbabilitiesByEventType(ctx, currency, eventType)
		if err != nil {
			return nil, err
		}
		out = append(out, EventTypeGroup{EventType: eventType, Expiries: expiries})
	}
	return out, nil
}
