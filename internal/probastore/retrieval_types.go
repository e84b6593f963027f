package probastore

// ProbabilityFields is the decoded field set of one probability record;
// values are either float64, the literal string "NaN", or a plain string.
type ProbabilityFields map[string]any

// StrikeValue pairs a strike key with its decoded fields.
type StrikeValue struct {
	Strike string
	Fields ProbabilityFields
}

// ExpiryBucket groups strikes under one expiry (compact-format result).
type ExpiryBucket struct {
	Expiry  string
	Strikes []StrikeValue
}

// StrikeTypeBucket groups strikes under one strike_type.
type StrikeTypeBucket struct {
	StrikeType string
	Strikes    []StrikeValue
}

// EventTitleBucket groups strike-type buckets under one event title
// (human-readable result).
type EventTitleBucket struct {
	EventTitle  string
	StrikeTypes []StrikeTypeBucket
}

// HumanReadableExpiryBucket groups event titles under one expiry.
type HumanReadableExpiryBucket struct {
	Expiry      string
	EventTitles []EventTitleBucket
}

// EventTypeExpiryBucket groups strike-type buckets under one expiry, for
// the event-type-filtered view (no event_title layer).
type EventTypeExpiryBucket struct {
	Expiry      string
	StrikeTypes []StrikeTypeBucket
}

// EventTypeGroup pairs an event type with its expiry buckets.
type EventTypeGroup struct {
	EventType string
	Expiries  []EventTypeExpiryBucket
}
