package probastore

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

var nullableOptionalFields = map[string]struct{}{"range_low": {}, "range_high": {}}
var excludedFields = map[string]struct{}{"strike_type": {}, "floor_strike": {}, "cap_strike": {}, "market_ticker": {}}

// ProbabilityFieldDiagnostics records which optional fields were actually
// serialized, for debug logging.
type ProbabilityFieldDiagnostics struct {
	ErrorValue       any
	StoredError      bool
	ConfidenceValue  any
	StoredConfidence bool
}

// ProbabilityRecord is the Redis-ready representation of one probability
// entry: the key it belongs under and its string-valued field map.
type ProbabilityRecord struct {
	Key         string
	Fields      map[string]string
	EventTicker string
	Diagnostics ProbabilityFieldDiagnostics
}

// buildProbabilityRecord constructs the Redis key and field map for a
// probability entry. payload carries arbitrary attributes (probability,
// error, confidence, range_low/high, event_ticker, event_title, ...);
// strike_type/floor_strike/cap_strike/market_ticker are always excluded
// from the stored fields since they drive the key itself.
func buildProbabilityRecord(currency, expiry string, strikeValue any, payload map[string]any, defaultMissingEventTicker bool) (ProbabilityRecord, error) {
	strikeType, _ := payload["strike_type"].(string)
	if strikeType == "" {
		strikeType = "unknown"
	}
	normalizedStrike, err := normaliseStrikeValue(strikeValue)
	if err != nil {
		return ProbabilityRecord{}, err
	}
	key := humanReadableKey(currency, expiry, strikeType, normalizedStrike)

	fields, diagnostics := serializeProbabilityPayload(payload, defaultMissingEventTicker)

	eventTicker := fields["event_ticker"]
	if eventTicker == "null" {
		eventTicker = ""
	}

	return ProbabilityRecord{
		Key:         key,
		Fields:      fields,
		EventTicker: eventTicker,
		Diagnostics: diagnostics,
	}, nil
}

// serializeProbabilityPayload mirrors probability_payloads.py's field
// walk: nullable fields are stored verbatim (or "null"), event_ticker
// gets default-missing handling, and every remaining non-excluded,
// non-nil field is stringified.
func serializeProbabilityPayload(payload map[string]any, defaultMissingEventTicker bool) (map[string]string, ProbabilityFieldDiagnostics) {
	mapping := make(map[string]string, len(payload))
	diagnostics := ProbabilityFieldDiagnostics{
		ErrorValue:      payload["error"],
		ConfidenceValue: payload["confidence"],
	}

	for field := range nullableOptionalFields {
		if v, ok := payload[field]; ok {
			mapping[field] = serializeNullable(v)
		}
	}

	eventTickerValue := payload["event_ticker"]
	if defaultMissingEventTicker {
		if eventTickerValue == nil || strings.TrimSpace(fmt.Sprintf("%v", eventTickerValue)) == "" {
			mapping["event_ticker"] = "null"
		} else {
			mapping["event_ticker"] = serializeValue(eventTickerValue)
		}
	} else if eventTickerValue != nil {
		mapping["event_ticker"] = serializeValue(eventTickerValue)
	}

	// Deterministic order isn't required by Redis, but stable iteration
	// keeps diagnostics logging reproducible.
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, field := range keys {
		if shouldSkipField(field) {
			continue
		}
		value := payload[field]
		if value == nil {
			continue
		}
		mapping[field] = serializeValue(value)
		if field == "error" {
			diagnostics.StoredError = true
		}
		if field == "confidence" {
			diagnostics.StoredConfidence = true
		}
	}

	return mapping, diagnostics
}

func shouldSkipField(field string) bool {
	if _, ok := excludedFields[field]; ok {
		return true
	}
	if _, ok := nullableOptionalFields[field]; ok {
		return true
	}
	return field == "event_ticker"
}

func serializeNullable(v any) string {
	if v == nil {
		return "null"
	}
	return serializeValue(v)
}

// serializeValue stringifies a payload value. NaN floats encode as the
// lowercase "nan" marker here; callers that need the uppercase "NaN"
// sentinel for error/confidence (spec §4.5) override those two fields
// explicitly after the record is built.
func serializeValue(v any) string {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) {
			return "nan"
		}
		return strconv.FormatFloat(n, 'g', -1, 64)
	case float32:
		return serializeValue(float64(n))
	default:
		return fmt.Sprintf("%v", v)
	}
}
