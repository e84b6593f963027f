package probastore

import (
	"context"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/kalshi-core/connectivity/internal/platform/xerrors"
)

// StoreProbability persists a single probability entry in the
// human-readable encoding, bypassing the batch pipeline machinery. NaN
// error/confidence values are rewritten to the literal "NaN" string
// after the record is built, matching the single-entry write path's
// explicit override (the bulk human-readable writer relies on the
// lowercase "nan" produced by generic value serialization instead).
func (s *Store) StoreProbability(ctx context.Context, data ProbabilityData) error {
	currencyUpper := upper(data.Currency)

	payload := map[string]any{
		"strike_type": data.StrikeType,
		"probability": data.Probability,
	}
	if data.Error != nil {
		payload["error"] = *data.Error
	}
	if data.Confidence != nil {
		payload["confidence"] = *data.Confidence
	}
	if data.HasRange {
		payload["range_low"] = optionalFloat(data.RangeLow)
		payload["range_high"] = optionalFloat(data.RangeHigh)
	}

	record, err := buildProbabilityRecord(currencyUpper, data.Expiry, data.Strike, payload, false)
	if err != nil {
		return xerrors.Wrap(xerrors.KindStore, "store_probability", "failed to build probability record", err)
	}
	if len(record.Fields) == 0 {
		return xerrors.New(xerrors.KindStore, "store_probability", "no data to store for key: "+record.Key)
	}

	if data.Error != nil && math.IsNaN(*data.Error) {
		record.Fields["error"] = "NaN"
	}
	if data.Confidence != nil && math.IsNaN(*data.Confidence) {
		record.Fields["confidence"] = "NaN"
	}

	rdb, err := s.redis(ctx)
	if err != nil {
		return err
	}

	fieldsAny := make(map[string]interface{}, len(record.Fields))
	for k, v := range record.Fields {
		fieldsAny[k] = v
	}
	if err := rdb.HSet(ctx, record.Key, fieldsAny).Err(); err != nil {
		return xerrors.Wrap(xerrors.KindStore, "store_probability", "failed to store single probability for "+record.Key, err)
	}

	logrus.WithField("key", record.Key).Debug("stored single probability entry")
	return nil
}

func optionalFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}
