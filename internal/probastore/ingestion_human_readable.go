package probastore

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/kalshi-core/connectivity/internal/platform/xerrors"
)

// StoreProbabilitiesHumanReadable persists probabilities in the
// per-strike hash encoding (spec §4.5): all existing keys under the
// currency prefix are queued for delete, every new record is queued as
// an `hset mapping`, the whole batch executes in one pipeline, and a
// sample of the newly written keys is re-verified with EXISTS.
func (s *Store) StoreProbabilitiesHumanReadable(ctx context.Context, currency string, data ProbabilityBulkData) (bool, error) {
	currencyUpper := upper(currency)
	rdb, err := s.redis(ctx)
	if err != nil {
		return false, err
	}

	totalStrikes := 0
	for _, strikes := range data {
		totalStrikes += len(strikes)
	}
	logrus.WithFields(logrus.Fields{
		"currency": currencyUpper,
		"expiries": len(data),
		"strikes":  totalStrikes,
	}).Info("storing human-readable probabilities")

	prefix := humanReadablePrefix(currencyUpper)
	existingKeys, err := rdb.Keys(ctx, prefix+"*").Result()
	if err != nil {
		return false, xerrors.Wrap(xerrors.KindStore, "store_probabilities_human_readable", "failed to enumerate existing keys", err)
	}

	pipe := rdb.Pipeline()
	for _, key := range existingKeys {
		pipe.Del(ctx, key)
	}

	fieldCount := 0
	sampleLogged := 0
	const sampleLogLimit = 5
	const verificationSampleLimit = 4
	var sampleKeys []string
	eventTickerCounts := map[string]int{}

	for expiry, strikes := range data {
		for strikeVal, payload := range strikes {
			record, berr := buildProbabilityRecord(currencyUpper, expiry, strikeVal, payload, true)
			if berr != nil {
				return s.handleHumanReadableFailure(ctx, rdb, currencyUpper, berr)
			}
			if len(record.Fields) == 0 {
				logrus.WithField("key", record.Key).Debug("skipping probability key with empty payload")
				continue
			}
			if sampleLogged < sampleLogLimit {
				logrus.WithField("key", record.Key).WithField("payload", payload).Info("probability store storing key")
				sampleLogged++
			}

			fieldsAny := make(map[string]interface{}, len(record.Fields))
			for k, v := range record.Fields {
				fieldsAny[k] = v
			}
			pipe.HSet(ctx, record.Key, fieldsAny)
			fieldCount++

			if len(sampleKeys) < verificationSampleLimit {
				sampleKeys = append(sampleKeys, record.Key)
			}
			if record.EventTicker != "" {
				eventTickerCounts[record.EventTicker]++
			}
		}
	}

	logrus.WithField("hash_updates", fieldCount).Info("executing redis pipeline for human-readable probabilities")
	results, err := pipe.Exec(ctx)
	expectedOps := len(existingKeys) + fieldCount
	if err != nil {
		return s.handleHumanReadableFailure(ctx, rdb, currencyUpper, err)
	}
	if len(results) != expectedOps {
		return s.handleHumanReadableFailure(ctx, rdb, currencyUpper,
			fmt.Errorf("redis pipeline returned %d results; expected %d", len(results), expectedOps))
	}

	if err := verifyProbabilityStorage(ctx, rdb, sampleKeys, currencyUpper); err != nil {
		return false, err
	}

	logrus.WithFields(logrus.Fields{
		"currency":      currencyUpper,
		"fields":        fieldCount,
		"event_tickers": len(eventTickerCounts),
	}).Info("stored human-readable probability entries")

	return true, nil
}

func (s *Store) handleHumanReadableFailure(ctx context.Context, rdb *redis.Client, currency string, cause error) (bool, error) {
	_ = runDirectConnectivityTest(ctx, rdb, currency)
	return false, xerrors.Wrap(xerrors.KindStore, "store_probabilities_human_readable", fmt.Sprintf("failed to store human-readable probabilities for %s", currency), cause)
}
