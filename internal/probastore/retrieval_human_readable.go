package probastore

import (
	"context"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/kalshi-core/connectivity/internal/platform/xerrors"
)

// GetProbabilitiesHumanReadable enumerates every human-readable key under
// the currency prefix and groups it expiry -> event_title -> strike_type
// -> strike. A record with no event_title field is fatal, matching the
// read contract's "missing event_title is fatal" invariant.
func (s *Store) GetProbabilitiesHumanReadable(ctx context.Context, currency string) ([]HumanReadableExpiryBucket, error) {
	currencyUpper := upper(currency)
	rdb, err := s.redis(ctx)
	if err != nil {
		return nil, err
	}

	prefix := humanReadablePrefix(currencyUpper)
	rawKeys, err := rdb.Keys(ctx, prefix+"*").Result()
	if err != nil {
		return nil, xerrors.Wrap(xerrors.KindStore, "get_probabilities_human_readable", "failed to get human-readable probabilities for "+currencyUpper, err)
	}
	if len(rawKeys) == 0 {
		return nil, errDataNotFound(currencyUpper, "human-readable probabilities")
	}

	type strikeTypeKey struct{ expiry, eventTitle, strikeType string }
	byBucket := map[strikeTypeKey][]StrikeValue{}
	expiryOrder := map[string]struct{}{}
	eventTitlesByExpiry := map[string]map[string]struct{}{}
	strikeTypesByExpiryTitle := map[[2]string]map[string]struct{}{}

	for _, keyStr := range rawKeys {
		expiry, strikeType, strike, perr := parseProbabilityKey(keyStr)
		if perr != nil {
			return nil, perr
		}

		raw, gerr := rdb.HGetAll(ctx, keyStr).Result()
		if gerr != nil {
			return nil, xerrors.Wrap(xerrors.KindStore, "get_probabilities_human_readable", "failed to read key "+keyStr, gerr)
		}
		if len(raw) == 0 {
			return nil, xerrors.New(xerrors.KindStore, "get_probabilities_human_readable", "probability payload missing for key "+keyStr+" while building human-readable view")
		}

		processed := decodeProbabilityHash(raw)
		eventTitleRaw, ok := processed["event_title"]
		if !ok || eventTitleRaw == nil {
			return nil, xerrors.New(xerrors.KindStore, "get_probabilities_human_readable", "missing event_title for key "+keyStr)
		}
		eventTitle := toString(eventTitleRaw)

		expiryOrder[expiry] = struct{}{}
		if eventTitlesByExpiry[expiry] == nil {
			eventTitlesByExpiry[expiry] = map[string]struct{}{}
		}
		eventTitlesByExpiry[expiry][eventTitle] = struct{}{}

		stKey := [2]string{expiry, eventTitle}
		if strikeTypesByExpiryTitle[stKey] == nil {
			strikeTypesByExpiryTitle[stKey] = map[string]struct{}{}
		}
		strikeTypesByExpiryTitle[stKey][strikeType] = struct{}{}

		bKey := strikeTypeKey{expiry, eventTitle, strikeType}
		byBucket[bKey] = append(byBucket[bKey], StrikeValue{Strike: strike, Fields: ProbabilityFields(processed)})
	}

	var out []HumanReadableExpiryBucket
	for expiry := range expiryOrder {
		eb := HumanReadableExpiryBucket{Expiry: expiry}
		for eventTitle := range eventTitlesByExpiry[expiry] {
			tb := EventTitleBucket{EventTitle: eventTitle}
			for strikeType := range strikeTypesByExpiryTitle[[2]string{expiry, eventTitle}] {
				tb.StrikeTypes = append(tb.StrikeTypes, StrikeTypeBucket{
					StrikeType: strikeType,
					Strikes:    byBucket[strikeTypeKey{expiry, eventTitle, strikeType}],
				})
			}
			eb.EventTitles = append(eb.EventTitles, tb)
		}
		out = append(out, eb)
	}

	sortExpiryBucketsHuman(out)

	logrus.WithFields(logrus.Fields{
		"currency": currencyUpper,
		"keys":     len(rawKeys),
		"expiries": len(out),
	}).Debug("processed human-readable probability keys")

	return out, nil
}

func sortExpiryBucketsHuman(buckets []HumanReadableExpiryBucket) {
	sort.SliceStable(buckets, func(i, j int) bool {
		return expiryLess(expirySortKey(buckets[i].Expiry), expirySortKey(buckets[j].Expiry))
	})
	for i := range buckets {
		titles := buckets[i].EventTitles
		sort.SliceStable(titles, func(a, b int) bool { return titles[a].EventTitle < titles[b].EventTitle })
		for j := range titles {
			sortStrikeTypeBuckets(titles[j].StrikeTypes)
		}
	}
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
