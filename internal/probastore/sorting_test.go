package probastore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSortExpiryBucketsOrdersChronologicallyAndNumerically(t *testing.T) {
	buckets := []ExpiryBucket{
		{Expiry: "2025-02-01T00:00:00Z", Strikes: []StrikeValue{{Strike: "200"}, {Strike: "50"}}},
		{Expiry: "2025-01-01T00:00:00Z", Strikes: []StrikeValue{{Strike: ">100"}, {Strike: "100"}, {Strike: "<100"}}},
	}
	sortExpiryBuckets(buckets)

	assert.Equal(t, "2025-01-01T00:00:00Z", buckets[0].Expiry)
	assert.Equal(t, []string{"<100", "100", ">100"}, strikeStrings(buckets[0].Strikes))
	assert.Equal(t, "2025-02-01T00:00:00Z", buckets[1].Expiry)
	assert.Equal(t, []string{"50", "200"}, strikeStrings(buckets[1].Strikes))
}

func strikeStrings(values []StrikeValue) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = v.Strike
	}
	return out
}
