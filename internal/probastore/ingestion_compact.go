package probastore

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/kalshi-core/connectivity/internal/platform/xerrors"
)

// StoreProbabilities persists probabilities in the compact single-hash
// encoding (spec §4.5): the whole `probabilities:CURRENCY` hash is
// replaced atomically in one pipeline (delete + one hset per field), then
// the pipeline result count and the post-write hlen are both validated
// against the field count.
func (s *Store) StoreProbabilities(ctx context.Context, currency string, data ProbabilityBulkData) (bool, error) {
	currencyUpper := upper(currency)
	key := compactKey(currencyUpper)

	rdb, err := s.redis(ctx)
	if err != nil {
		return false, err
	}

	pipe := rdb.TxPipeline()
	pipe.Del(ctx, key)

	fieldCount := 0
	confidenceCount := 0
	sampleLogged := 0
	for expiry, strikes := range data {
		for strike, payload := range strikes {
			field := expiry + ":" + strike
			serialized, hasConfidence, serr := serializeCompactPayload(payload)
			if serr != nil {
				return false, xerrors.Wrap(xerrors.KindStore, "store_probabilities", fmt.Sprintf("failed to store probabilities for %s", currencyUpper), serr)
			}
			if sampleLogged < 5 {
				logrus.WithField("field", field).WithField("data", payload).Debug("probability store adding field")
				sampleLogged++
			}
			if hasConfidence {
				confidenceCount++
			}
			pipe.HSet(ctx, key, field, serialized)
			fieldCount++
		}
	}

	results, err := pipe.Exec(ctx)
	if err != nil {
		return false, xerrors.Wrap(xerrors.KindStore, "store_probabilities", fmt.Sprintf("failed to store probabilities for %s: redis error", currencyUpper), err)
	}

	expectedOps := 1 + fieldCount
	if len(results) != expectedOps {
		return false, xerrors.New(xerrors.KindStore, "store_probabilities", fmt.Sprintf("redis pipeline returned %d results; expected %d", len(results), expectedOps))
	}

	successfulSets := 0
	for _, cmd := range results[1:] {
		if intCmd, ok := cmd.(interface{ Val() int64 }); ok && intCmd.Val() != 0 {
			successfulSets++
		}
	}
	if successfulSets != fieldCount {
		return false, xerrors.New(xerrors.KindStore, "store_probabilities",
			fmt.Sprintf("redis stored %d entries for %s; expected %d", successfulSets, currencyUpper, fieldCount))
	}

	actualCount, err := rdb.HLen(ctx, key).Result()
	if err != nil {
		return false, xerrors.Wrap(xerrors.KindStore, "store_probabilities", "failed to verify field count", err)
	}
	if int(actualCount) != fieldCount {
		return false, xerrors.New(xerrors.KindStore, "store_probabilities",
			fmt.Sprintf("field count mismatch after storing probabilities for %s: expected %d, got %d", currencyUpper, fieldCount, actualCount))
	}

	logrus.WithFields(logrus.Fields{
		"fields":      fieldCount,
		"confidences": confidenceCount,
		"currency":    currencyUpper,
	}).Info("stored probability fields")

	return true, nil
}
