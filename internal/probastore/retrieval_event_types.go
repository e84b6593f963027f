package probastore

import (
	"context"
	"sort"

	"github.com/kalshi-core/connectivity/internal/platform/xerrors"
)

// GetAllEventTypes collects the unique non-null event_type values across
// all human-readable keys for a currency.
func (s *Store) GetAllEventTypes(ctx context.Context, currency string) ([]string, error) {
	currencyUpper := upper(currency)
	rdb, err := s.redis(ctx)
	if err != nil {
		return nil, err
	}

	prefix := humanReadablePrefix(currencyUpper)
	rawKeys, err := rdb.Keys(ctx, prefix+"*").Result()
	if err != nil {
		return nil, xerrors.Wrap(xerrors.KindStore, "get_all_event_types", "failed to enumerate event types for "+currencyUpper, err)
	}
	if len(rawKeys) == 0 {
		return nil, errDataNotFound(currencyUpper, "event types")
	}

	seen := map[string]struct{}{}
	for _, key := range rawKeys {
		value, herr := rdb.HGet(ctx, key, "event_type").Result()
		if herr != nil || value == "" || value == "null" {
			continue
		}
		seen[value] = struct{}{}
	}

	if len(seen) == 0 {
		return nil, xerrors.New(xerrors.KindStore, "get_all_event_types", "no event types found for "+currencyUpper)
	}

	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Strings(out)
	return out, nil
}
