package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalshi-core/connectivity/internal/restclient"
)

type noopSigner struct{}

func (noopSigner) Sign(method, path string, ts int64) (map[string]string, error) {
	return map[string]string{}, nil
}

func TestDiscoverMutuallyExclusiveMarketsEndToEnd(t *testing.T) {
	closeTime := time.Now().Add(2 * time.Hour).UTC().Format(time.RFC3339)

	mux := http.NewServeMux()
	mux.HandleFunc("/trade-api/v2/markets", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"markets": []map[string]any{
				{"ticker": "EVT-A-1", "event_ticker": "EVT-A", "close_time": closeTime},
				{"ticker": "EVT-A-2", "event_ticker": "EVT-A", "close_time": closeTime},
			},
		})
	})
	mux.HandleFunc("/trade-api/v2/events/EVT-A", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"event": map[string]any{
				"mutually_exclusive": true,
				"title":              "Event A",
				"category":           "crypto",
				"markets": []any{
					map[string]any{"ticker": "EVT-A-1", "close_time": closeTime, "cap_strike": 60000.0},
					map[string]any{"ticker": "EVT-A-2", "close_time": closeTime, "floor_strike": 59000.0},
				},
			},
		})
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	cfg := restclient.DefaultConfig(srv.URL)
	client := restclient.New(cfg, noopSigner{}, nil)

	events, stats, err := DiscoverMutuallyExclusiveMarkets(context.Background(), client, Config{ExpiryWindow: 4 * time.Hour, MinMarketsPerEvent: 2}, nil, nil)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "EVT-A", events[0].EventTicker)
	assert.Len(t, events[0].Markets, 2)
	assert.Equal(t, 0, stats.TotalSkipped)
}

func TestDiscoverFailsOnRepeatedCursor(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/trade-api/v2/markets", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"markets": []map[string]any{}, "cursor": "same"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := restclient.New(restclient.DefaultConfig(srv.URL), noopSigner{}, nil)
	_, _, err := DiscoverMutuallyExclusiveMarkets(context.Background(), client, DefaultConfig(), nil, nil)
	require.Error(t, err)
}

func TestDiscoverFailsOnNonConsecutiveRepeatedCursor(t *testing.T) {
	pages := []string{"A", "B", "A"}
	call := 0

	mux := http.NewServeMux()
	mux.HandleFunc("/trade-api/v2/markets", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		cursor := pages[call]
		call++
		json.NewEncoder(w).Encode(map[string]any{"markets": []map[string]any{}, "cursor": cursor})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := restclient.New(restclient.DefaultConfig(srv.URL), noopSigner{}, nil)
	_, _, err := DiscoverMutuallyExclusiveMarkets(context.Background(), client, DefaultConfig(), nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "repeated cursor")
}
