package probastore

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormaliseStrikeValue(t *testing.T) {
	v, err := normaliseStrikeValue(59999.6)
	require.NoError(t, err)
	assert.Equal(t, "60000", v)

	_, err = normaliseStrikeValue("not-a-number")
	assert.Error(t, err)

	_, err = normaliseStrikeValue(math.NaN())
	assert.Error(t, err)
}

func TestStrikeSortKeyOrdering(t *testing.T) {
	plain, err := strikeSortKey("50000")
	require.NoError(t, err)
	gt, err := strikeSortKey(">50000")
	require.NoError(t, err)
	lt, err := strikeSortKey("<50000")
	require.NoError(t, err)

	assert.True(t, less(lt, plain))
	assert.True(t, less(plain, gt))
}

func TestParseProbabilityKeySimple(t *testing.T) {
	expiry, strikeType, strike, err := parseProbabilityKey("probabilities:BTC:2025-01-01:greater:50000")
	require.NoError(t, err)
	assert.Equal(t, "2025-01-01", expiry)
	assert.Equal(t, "greater", strikeType)
	assert.Equal(t, "50000", strike)
}

func TestParseProbabilityKeyWithColonInExpiry(t *testing.T) {
	expiry, strikeType, strike, err := parseProbabilityKey("probabilities:BTC:2025-01-01T00:00:00+00:00:greater:50000")
	require.NoError(t, err)
	assert.Equal(t, "2025-01-01T00:00:00+00:00", expiry)
	assert.Equal(t, "greater", strikeType)
	assert.Equal(t, "50000", strike)
}

func TestSplitProbabilityFieldThreeForms(t *testing.T) {
	expiry, strike, err := splitProbabilityField("2025-01-01T00:00:00Z:50000")
	require.NoError(t, err)
	assert.Equal(t, "2025-01-01T00:00:00Z", expiry)
	assert.Equal(t, "50000", strike)

	expiry, strike, err = splitProbabilityField("2025-01-01T00:00:00+00:00:50000")
	require.NoError(t, err)
	assert.Equal(t, "2025-01-01T00:00:00+00:00", expiry)
	assert.Equal(t, "50000", strike)

	expiry, strike, err = splitProbabilityField("2025-01-01:50000")
	require.NoError(t, err)
	assert.Equal(t, "2025-01-01", expiry)
	assert.Equal(t, "50000", strike)
}
