package probastore

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/kalshi-core/connectivity/internal/platform/xerrors"
)

// normaliseStrikeValue rounds a numeric strike to the nearest integer for
// use in a Redis key, half-away-from-zero (math.Round), and rejects
// non-finite or non-numeric inputs.
func normaliseStrikeValue(strikeValue any) (string, error) {
	f, ok := toFloat(strikeValue)
	if !ok {
		return "", xerrors.New(xerrors.KindValidation, "normalise_strike", fmt.Sprintf("strike value %v must be numeric", strikeValue))
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", xerrors.New(xerrors.KindValidation, "normalise_strike", fmt.Sprintf("strike value %v must be finite", strikeValue))
	}
	return strconv.FormatInt(int64(math.Round(f)), 10), nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// strikeSortTier mirrors strike_sort_key's (tier, value) pair: plain
// numeric values sort in tier 0 by value, ">"-prefixed keys sort after
// everything in tier 1, "<"-prefixed keys sort before everything in
// tier -1, and "start-end" ranges sort in tier 0 by their start.
type strikeSortTier struct {
	tier  int
	value float64
}

func less(a, b strikeSortTier) bool {
	if a.tier != b.tier {
		return a.tier < b.tier
	}
	return a.value < b.value
}

func strikeSortKey(strikeKey string) (strikeSortTier, error) {
	if f, err := strconv.ParseFloat(strikeKey, 64); err == nil {
		return strikeSortTier{0, f}, nil
	}

	if strings.HasPrefix(strikeKey, ">") || strings.HasPrefix(strikeKey, "<") {
		f, err := strconv.ParseFloat(strikeKey[1:], 64)
		if err != nil {
			return strikeSortTier{}, xerrors.New(xerrors.KindValidation, "strike_sort_key", fmt.Sprintf("invalid strike key %q", strikeKey))
		}
		if strikeKey[0] == '>' {
			return strikeSortTier{1, f}, nil
		}
		return strikeSortTier{-1, f}, nil
	}

	if idx := strings.Index(strikeKey, "-"); idx >= 0 {
		start := strikeKey[:idx]
		f, err := strconv.ParseFloat(start, 64)
		if err != nil {
			return strikeSortTier{}, xerrors.New(xerrors.KindValidation, "strike_sort_key", fmt.Sprintf("invalid strike range %q", strikeKey))
		}
		return strikeSortTier{0, f}, nil
	}

	return strikeSortTier{}, xerrors.New(xerrors.KindValidation, "strike_sort_key", fmt.Sprintf("unsupported strike key %q", strikeKey))
}

// expirySortValue normalizes an expiry key for chronological sorting:
// ISO-8601 timestamps parse to time.Time, everything else sorts lexically.
type expirySortValue struct {
	isTime bool
	t      time.Time
	s      string
}

func expirySortKey(expiryKey string) expirySortValue {
	if strings.Contains(expiryKey, "T") {
		normalized := strings.Replace(expiryKey, "Z", "+00:00", 1)
		if t, err := time.Parse("2006-01-02T15:04:05-07:00", normalized); err == nil {
			return expirySortValue{isTime: true, t: t}
		}
		if t, err := time.Parse(time.RFC3339, expiryKey); err == nil {
			return expirySortValue{isTime: true, t: t}
		}
	}
	return expirySortValue{s: expiryKey}
}

func expiryLess(a, b expirySortValue) bool {
	if a.isTime && b.isTime {
		return a.t.Before(b.t)
	}
	if a.isTime != b.isTime {
		return !a.isTime
	}
	return a.s < b.s
}

// parseProbabilityKey splits "probabilities:CURRENCY:EXPIRY:STRIKE_TYPE:STRIKE"
// into its three variable components. Expiry may itself contain colons
// (ISO-8601 offsets), so when more than five ":"-separated parts are
// present the middle span is rejoined as the expiry.
func parseProbabilityKey(keyStr string) (expiry, strikeType, strike string, err error) {
	parts := strings.Split(keyStr, ":")
	const minParts = 5
	if len(parts) < minParts {
		return "", "", "", xerrors.New(xerrors.KindStore, "parse_probability_key", fmt.Sprintf("invalid probability key format: %s", keyStr))
	}

	if len(parts) > minParts {
		expiry = strings.Join(parts[2:len(parts)-2], ":")
		strikeType = parts[len(parts)-2]
		strike = parts[len(parts)-1]
	} else {
		expiry = parts[2]
		strikeType = parts[3]
		strike = parts[4]
	}

	if expiry == "" {
		return "", "", "", xerrors.New(xerrors.KindStore, "parse_probability_key", fmt.Sprintf("could not extract expiry from key: %s", keyStr))
	}
	return expiry, strikeType, strike, nil
}

func compactKey(currencyUpper string) string {
	return "probabilities:" + currencyUpper
}

func humanReadableKey(currencyUpper, expiry, strikeType, strikeInt string) string {
	return fmt.Sprintf("probabilities:%s:%s:%s:%s", currencyUpper, expiry, strikeType, strikeInt)
}

func humanReadablePrefix(currencyUpper string) string {
	return "probabilities:" + currencyUpper + ":"
}

// splitProbabilityField splits a compact-hash field ("expiry:strike") into
// its two components. Three formats must be disambiguated since expiry
// itself may contain colons: trailing "Z:", trailing "+00:00:", or
// otherwise the last colon in the string.
func splitProbabilityField(field string) (expiry, strike string, err error) {
	if idx := strings.Index(field, "Z:"); idx != -1 {
		return field[:idx+1], field[idx+2:], nil
	}
	if idx := strings.Index(field, "+00:00:"); idx != -1 {
		return field[:idx+6], field[idx+7:], nil
	}
	if idx := strings.LastIndex(field, ":"); idx != -1 {
		return field[:idx], field[idx+1:], nil
	}
	return "", "", xerrors.New(xerrors.KindStore, "split_probability_field", fmt.Sprintf("invalid probability field format: %s", field))
}
