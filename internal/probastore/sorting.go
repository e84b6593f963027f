package probastore

import "sort"

func sortStrikeValues(values []StrikeValue) {
	sort.SliceStable(values, func(i, j int) bool {
		ki, erri := strikeSortKey(values[i].Strike)
		kj, errj := strikeSortKey(values[j].Strike)
		if erri != nil || errj != nil {
			return values[i].Strike < values[j].Strike
		}
		return less(ki, kj)
	})
}

func sortExpiryBuckets(buckets []ExpiryBucket) {
	sort.SliceStable(buckets, func(i, j int) bool {
		return expiryLess(expirySortKey(buckets[i].Expiry), expirySortKey(buckets[j].Expiry))
	})
	for i := range buckets {
		sortStrikeValues(buckets[i].Strikes)
	}
}

func sortStrikeTypeBuckets(buckets []StrikeTypeBucket) {
	sort.SliceStable(buckets, func(i, j int) bool { return buckets[i].StrikeType < buckets[j].StrikeType })
	for i := range buckets {
		sortStrikeValues(buckets[i].Strikes)
	}
}

func sortEventTypeExpiryBuckets(buckets []EventTypeExpiryBucket) {
	sort.SliceStable(buckets, func(i, j int) bool {
		return expiryLess(expirySortKey(buckets[i].Expiry), expirySortKey(buckets[j].Expiry))
	})
	for i := range buckets {
		sortStrikeTypeBuckets(buckets[i].StrikeTypes)
	}
}
