package catalog

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"

	"github.com/kalshi-core/connectivity/internal/platform/xerrors"
)

// strikeFieldPaths lists the JSONPath candidates tried in order for a
// given field, since the exchange's raw market payload nests
// strike-related fields differently across contract types (a
// straight-strike market carries them top-level; a custom-strike
// market nests them under "strike"). The first path that resolves
// wins.
var strikeFieldPaths = map[string][]string{
	"floor_strike": {"$.floor_strike", "$.strike.floor_strike"},
	"cap_strike":   {"$.cap_strike", "$.strike.cap_strike"},
	"strike_type":  {"$.strike_type", "$.strike.type"},
}

// extractField resolves field out of market's raw payload by trying
// each of its candidate JSONPath expressions in turn, returning the
// first one that resolves to a non-nil value.
func extractField(market map[string]any, field string) (any, bool) {
	paths, ok := strikeFieldPaths[field]
	if !ok {
		paths = []string{"$." + field}
	}
	for _, path := range paths {
		v, err := jsonpath.Get(path, market)
		if err != nil || v == nil {
			continue
		}
		return v, true
	}
	return nil, false
}

var cryptoMonthCode = regexp.MustCompile(`\d{2}(JAN|FEB|MAR|APR|MAY|JUN|JUL|AUG|SEP|OCT|NOV|DEC)\d{2}`)

var cryptoTickerPrefixes = []string{"BTC", "ETH", "KXBTC", "KXETH"}
var cryptoAssets = []string{"BTC", "ETH"}

var defaultWeatherStations = []string{"AUS", "AUSHAUS", "CHI", "DEN", "LAX", "MIA", "NY", "NYC", "PHIL", "PHL"}

// ClassifyMarket assigns a market to crypto/weather/other per the ticker
// heuristics of market_categorizer.py + crypto_pattern_matcher.py +
// weather_filter.py.
func ClassifyMarket(ticker string) MarketCategory {
	upper := strings.ToUpper(ticker)
	if strings.HasPrefix(upper, "KXHIGH") {
		return CategoryWeather
	}
	if matchesCryptoTicker(upper) {
		return CategoryCrypto
	}
	return CategoryOther
}

func matchesCryptoTicker(tickerUpper string) bool {
	for _, prefix := range cryptoTickerPrefixes {
		if strings.HasPrefix(tickerUpper, prefix) {
			return true
		}
	}
	if !cryptoMonthCode.MatchString(tickerUpper) {
		return false
	}
	tokens := splitTokens(tickerUpper)
	for _, tok := range tokens {
		if tokenMatchesCrypto(tok) {
			return true
		}
	}
	return false
}

func splitTokens(s string) []string {
	var tokens []string
	var cur strings.Builder
	isSep := func(r rune) bool { return !(r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') }
	for _, r := range s {
		if isSep(r) {
			if cur.Len() > 0 {
				tokens = append(tokens, cur.String())
				cur.Reset()
			}
			continue
		}
		cur.WriteRune(r)
	}
	if cur.Len() > 0 {
		tokens = append(tokens, cur.String())
	}
	return tokens
}

func tokenMatchesCrypto(token string) bool {
	for _, prefix := range cryptoTickerPrefixes {
		if strings.HasPrefix(token, prefix) {
			return true
		}
	}
	for _, asset := range cryptoAssets {
		if tokenMatchesAsset(token, asset) {
			return true
		}
	}
	return false
}

func tokenMatchesAsset(token, asset string) bool {
	if token == asset {
		return true
	}
	if !strings.HasPrefix(token, asset) {
		return false
	}
	remainder := token[len(asset):]
	if remainder == "" {
		return true
	}
	if remainder[0] >= '0' && remainder[0] <= '9' {
		return true
	}
	for _, suffix := range []string{"MAX", "MIN", "T", "B", "USD"} {
		if strings.HasPrefix(remainder, suffix) {
			return true
		}
	}
	return false
}

// WeatherStationToken extracts the station code from a KXHIGH-prefixed
// ticker, e.g. "KXHIGHNY-25JAN01-T50" -> "NY".
func WeatherStationToken(tickerUpper string) string {
	suffix := strings.TrimPrefix(tickerUpper, "KXHIGH")
	if suffix == "" {
		return ""
	}
	station := strings.SplitN(suffix, "-", 2)[0]
	return strings.ToUpper(station)
}

// DefaultWeatherStations returns the built-in weather-station whitelist.
// This package does not load a station mapping file; the built-in set is
// the only whitelist it provides.
func DefaultWeatherStations() map[string]struct{} {
	out := make(map[string]struct{}, len(defaultWeatherStations))
	for _, s := range defaultWeatherStations {
		out[s] = struct{}{}
	}
	return out
}

func isExpiringWithinWindow(closeTimeStr string, window time.Duration) bool {
	if closeTimeStr == "" {
		return false
	}
	closeTime, err := time.Parse(time.RFC3339, closeTimeStr)
	if err != nil {
		return false
	}
	delta := time.Until(closeTime)
	return delta > 0 && delta <= window
}

func validateStrikes(market map[string]any) error {
	capStrike, hasCap := extractField(market, "cap_strike")
	floorStrike, hasFloor := extractField(market, "floor_strike")
	ticker, _ := market["ticker"].(string)

	if !hasCap && !hasFloor {
		return xerrors.New(xerrors.KindValidation, "validate_strikes", "market "+ticker+" missing both cap_strike and floor_strike")
	}
	if hasCap && hasFloor {
		cf, cok := asFloat(capStrike)
		ff, fok := asFloat(floorStrike)
		if cok && fok && cf == ff {
			return xerrors.New(xerrors.KindValidation, "validate_strikes", "market "+ticker+" has equal cap_strike and floor_strike")
		}
	}
	return nil
}

func hasValidStrikes(market map[string]any) bool {
	return validateStrikes(market) == nil
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func floatPtr(v any) *float64 {
	f, ok := asFloat(v)
	if !ok {
		return nil
	}
	return &f
}

func strikeFloatPtr(market map[string]any, field string) *float64 {
	v, ok := extractField(market, field)
	if !ok {
		return nil
	}
	return floatPtr(v)
}

func groupMarketsByEvent(markets []map[string]any, window time.Duration) map[string][]map[string]any {
	groups := make(map[string][]map[string]any)
	for _, market := range markets {
		eventTicker, _ := market["event_ticker"].(string)
		closeTime, _ := market["close_time"].(string)
		if eventTicker == "" || closeTime == "" {
			continue
		}
		if !isExpiringWithinWindow(closeTime, window) {
			continue
		}
		groups[eventTicker] = append(groups[eventTicker], market)
	}
	return groups
}

func filterMarketsForWindow(nestedMarkets []any, window time.Duration) []map[string]any {
	var out []map[string]any
	for _, m := range nestedMarkets {
		market, ok := m.(map[string]any)
		if !ok {
			continue
		}
		closeTime, _ := market["close_time"].(string)
		if closeTime != "" && isExpiringWithinWindow(closeTime, window) {
			out = append(out, market)
		}
	}
	return out
}

func filterMarketsWithValidStrikes(markets []map[string]any, stats *SkippedMarketStats) []map[string]any {
	var out []map[string]any
	for _, m := range markets {
		if hasValidStrikes(m) {
			out = append(out, m)
			continue
		}
		if stats != nil {
			ticker, _ := m["ticker"].(string)
			stats.Record(ticker, "invalid_strikes", categoryLabel(ClassifyMarket(ticker)))
		}
	}
	return out
}

func categoryLabel(c MarketCategory) string {
	switch c {
	case CategoryCrypto:
		return "crypto"
	case CategoryWeather:
		return "weather"
	default:
		return "other"
	}
}

func convertToDiscoveredMarket(market map[string]any) DiscoveredMarket {
	ticker, _ := market["ticker"].(string)
	closeTime, _ := market["close_time"].(string)
	var strikeType string
	if v, ok := extractField(market, "strike_type"); ok {
		strikeType = fmt.Sprintf("%v", v)
	}
	return DiscoveredMarket{
		Ticker:      strings.ToUpper(ticker),
		CloseTime:   closeTime,
		FloorStrike: strikeFloatPtr(market, "floor_strike"),
		CapStrike:   strikeFloatPtr(market, "cap_strike"),
		StrikeType:  strikeType,
		Raw:         market,
	}
}
