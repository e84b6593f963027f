package substore

import "testing"

func TestFieldKeyNamespacesByServicePrefix(t *testing.T) {
	s := New(nil, "rest", "")
	if got := s.fieldKey("KXBTC-25-T100"); got != "rest:KXBTC-25-T100" {
		t.Fatalf("fieldKey = %q", got)
	}
}

func TestNewDefaultsSubscriptionIDsKey(t *testing.T) {
	s := New(nil, "ws", "")
	if s.subscriptionIDsKey != "ops:subscription_ids:kalshi:ws" {
		t.Fatalf("subscriptionIDsKey = %q", s.subscriptionIDsKey)
	}

	s2 := New(nil, "ws", "custom:key")
	if s2.subscriptionIDsKey != "custom:key" {
		t.Fatalf("subscriptionIDsKey override = %q", s2.subscriptionIDsKey)
	}
}

func TestMarketAndSnapshotKeyDefaults(t *testing.T) {
	s := New(nil, "rest", "")
	if got := s.marketKeyFor("TICKER"); got != "kalshi:market:TICKER" {
		t.Fatalf("marketKeyFor = %q", got)
	}
	if got := s.snapshotKeyFor("TICKER"); got != "kalshi:snapshot:TICKER" {
		t.Fatalf("snapshotKeyFor = %q", got)
	}
}

func TestMarketAndSnapshotKeyOverride(t *testing.T) {
	s := New(nil, "rest", "").WithKeyFuncs(
		func(ticker string) string { return "custom:market:" + ticker },
		func(ticker string) string { return "custom:snapshot:" + ticker },
	)
	if got := s.marketKeyFor("TICKER"); got != "custom:market:TICKER" {
		t.Fatalf("marketKeyFor override = %q", got)
	}
	if got := s.snapshotKeyFor("TICKER"); got != "custom:snapshot:TICKER" {
		t.Fatalf("snapshotKeyFor override = %q", got)
	}
}

func TestFieldPrefixEmptyServicePrefix(t *testing.T) {
	s := New(nil, "", "")
	if got := s.fieldPrefix(); got != "" {
		t.Fatalf("fieldPrefix = %q", got)
	}
}
