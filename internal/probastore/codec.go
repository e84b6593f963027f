package probastore

import (
	"encoding/json"
	"math"
	"strconv"

	"github.com/kalshi-core/connectivity/internal/platform/xerrors"
)

// serializeCompactPayload JSON-encodes a single compact-format probability
// payload. A NaN confidence value is rewritten to the literal string
// "NaN" before marshalling so the round trip preserves it through JSON,
// which has no native NaN representation.
func serializeCompactPayload(data map[string]any) (string, bool, error) {
	normalized := make(map[string]any, len(data))
	for k, v := range data {
		normalized[k] = v
	}

	hasConfidence := false
	if confidence, ok := normalized["confidence"]; ok && confidence != nil {
		hasConfidence = true
		if f, ok := confidence.(float64); ok && math.IsNaN(f) {
			normalized["confidence"] = "NaN"
		}
	}

	raw, err := json.Marshal(normalized)
	if err != nil {
		return "", false, xerrors.Wrap(xerrors.KindStore, "serialize_compact_payload", "failed to serialise probability payload", err)
	}
	return string(raw), hasConfidence, nil
}

// decodeProbabilityHash converts a raw Redis hash (string -> string) into
// typed values: the "NaN" sentinel passes through verbatim, everything
// else that parses as a float becomes numeric, and anything else stays a
// string.
func decodeProbabilityHash(raw map[string]string) map[string]any {
	out := make(map[string]any, len(raw))
	for field, value := range raw {
		if value == "NaN" {
			out[field] = "NaN"
			continue
		}
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			out[field] = f
			continue
		}
		out[field] = value
	}
	return out
}
