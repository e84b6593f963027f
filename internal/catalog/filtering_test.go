package catalog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClassifyMarket(t *testing.T) {
	assert.Equal(t, CategoryCrypto, ClassifyMarket("BTC-25JAN01-T50000"))
	assert.Equal(t, CategoryCrypto, ClassifyMarket("KXBTC-25JAN01-B90000"))
	assert.Equal(t, CategoryWeather, ClassifyMarket("KXHIGHNY-25JAN01-T50"))
	assert.Equal(t, CategoryOther, ClassifyMarket("INXD-25JAN01-T4500"))
}

func TestWeatherStationToken(t *testing.T) {
	assert.Equal(t, "NY", WeatherStationToken("KXHIGHNY-25JAN01-T50"))
	assert.Equal(t, "", WeatherStationToken("KXHIGH"))
}

func TestValidateStrikesRejectsBothMissing(t *testing.T) {
	m := map[string]any{"ticker": "X"}
	assert.False(t, hasValidStrikes(m))
}

func TestValidateStrikesRejectsEqual(t *testing.T) {
	m := map[string]any{"ticker": "X", "cap_strike": 50.0, "floor_strike": 50.0}
	assert.False(t, hasValidStrikes(m))
}

func TestValidateStrikesAcceptsOneSided(t *testing.T) {
	m := map[string]any{"ticker": "X", "cap_strike": 50.0}
	assert.True(t, hasValidStrikes(m))
}

func TestValidateStrikesResolvesNestedStrikeObject(t *testing.T) {
	m := map[string]any{
		"ticker": "X",
		"strike": map[string]any{"floor_strike": 10.0, "cap_strike": 20.0, "type": "custom"},
	}
	assert.True(t, hasValidStrikes(m))

	market := convertToDiscoveredMarket(m)
	assert.Equal(t, "custom", market.StrikeType)
	require := func(v *float64) float64 {
		if v == nil {
			t.Fatal("expected non-nil strike pointer")
		}
		return *v
	}
	assert.Equal(t, 10.0, require(market.FloorStrike))
	assert.Equal(t, 20.0, require(market.CapStrike))
}

func TestExtractFieldPrefersTopLevelOverNested(t *testing.T) {
	m := map[string]any{
		"floor_strike": 5.0,
		"strike":       map[string]any{"floor_strike": 99.0},
	}
	v, ok := extractField(m, "floor_strike")
	assert.True(t, ok)
	assert.Equal(t, 5.0, v)
}

func TestIsExpiringWithinWindow(t *testing.T) {
	future := time.Now().Add(2 * time.Hour).UTC().Format(time.RFC3339)
	past := time.Now().Add(-time.Hour).UTC().Format(time.RFC3339)
	assert.True(t, isExpiringWithinWindow(future, 3*time.Hour))
	assert.False(t, isExpiringWithinWindow(past, 3*time.Hour))
	assert.False(t, isExpiringWithinWindow(future, time.Hour))
}

func TestGroupMarketsByEvent(t *testing.T) {
	closeTime := time.Now().Add(time.Hour).UTC().Format(time.RFC3339)
	markets := []map[string]any{
		{"event_ticker": "EVT-1", "close_time": closeTime, "ticker": "A"},
		{"event_ticker": "EVT-1", "close_time": closeTime, "ticker": "B"},
		{"event_ticker": "", "close_time": closeTime, "ticker": "C"},
	}
	groups := groupMarketsByEvent(markets, 2*time.Hour)
	assert.Len(t, groups["EVT-1"], 2)
	assert.Len(t, groups, 1)
}
