package probastore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildProbabilityRecordDefaultsMissingEventTicker(t *testing.T) {
	payload := map[string]any{
		"strike_type": "greater",
		"probability": 0.73,
	}
	record, err := buildProbabilityRecord("BTC", "2025-01-01", 59999.6, payload, true)
	require.NoError(t, err)
	assert.Equal(t, "probabilities:BTC:2025-01-01:greater:60000", record.Key)
	assert.Equal(t, "null", record.Fields["event_ticker"])
	assert.Equal(t, "", record.EventTicker)
}

func TestBuildProbabilityRecordKeepsExplicitEventTicker(t *testing.T) {
	payload := map[string]any{
		"strike_type":  "less",
		"probability":  0.4,
		"event_ticker": "KX-EVT-1",
	}
	record, err := buildProbabilityRecord("ETH", "2025-02-01", 2000.0, payload, true)
	require.NoError(t, err)
	assert.Equal(t, "KX-EVT-1", record.Fields["event_ticker"])
	assert.Equal(t, "KX-EVT-1", record.EventTicker)
}

func TestBuildProbabilityRecordExcludesStrikeFields(t *testing.T) {
	payload := map[string]any{
		"strike_type":   "between",
		"probability":   0.5,
		"floor_strike":  100.0,
		"cap_strike":    200.0,
		"market_ticker": "X-1",
	}
	record, err := buildProbabilityRecord("BTC", "2025-01-01", 150.0, payload, false)
	require.NoError(t, err)
	_, hasFloor := record.Fields["floor_strike"]
	_, hasCap := record.Fields["cap_strike"]
	_, hasMarket := record.Fields["market_ticker"]
	assert.False(t, hasFloor)
	assert.False(t, hasCap)
	assert.False(t, hasMarket)
	assert.Equal(t, "0.5", record.Fields["probability"])
}

func TestBuildProbabilityRecordNullableRangeFields(t *testing.T) {
	payload := map[string]any{
		"strike_type": "greater",
		"probability": 0.9,
		"range_low":   nil,
		"range_high":  105.0,
	}
	record, err := buildProbabilityRecord("BTC", "2025-01-01", 100.0, payload, false)
	require.NoError(t, err)
	assert.Equal(t, "null", record.Fields["range_low"])
	assert.Equal(t, "105", record.Fields["range_high"])
}

func TestSerializeCompactPayloadPreservesNaNConfidence(t *testing.T) {
	serialized, hasConfidence, err := serializeCompactPayload(map[string]any{
		"probability": 0.5,
		"confidence":  nan(),
	})
	require.NoError(t, err)
	assert.True(t, hasConfidence)
	assert.Contains(t, serialized, `"confidence":"NaN"`)
}

func nan() float64 {
	var zero float64
	return zero / zero
}
