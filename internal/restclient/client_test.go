package restclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSigner struct{}

func (stubSigner) Sign(method, path string, ts int64) (map[string]string, error) {
	return map[string]string{"ACCESS-KEY": "stub"}, nil
}

func TestAPIRequestRejectsRelativePath(t *testing.T) {
	c := New(DefaultConfig("http://example.invalid"), stubSigner{}, nil)
	_, err := c.APIRequest(context.Background(), "GET", "no-leading-slash", nil, nil, "op")
	require.Error(t, err)
}

func TestAPIRequestSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{"balance": 100, "updated_ts": 1700000000})
	}))
	defer srv.Close()

	cfg := DefaultConfig(srv.URL)
	c := New(cfg, stubSigner{}, nil)
	bal, err := c.GetBalance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(100), bal.BalanceCents)
}

func TestAPIRequestRetriesOn429ThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer srv.Close()

	cfg := DefaultConfig(srv.URL)
	cfg.BackoffBase = 10 * time.Millisecond
	cfg.BackoffMax = 50 * time.Millisecond
	cfg.MaxRetries = 3
	c := New(cfg, stubSigner{}, nil)

	payload, err := c.APIRequest(context.Background(), "GET", "/trade-api/v2/exchange/status", nil, nil, "op")
	require.NoError(t, err)
	assert.Equal(t, true, payload["ok"])
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestAPIRequestFailsOnNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]any{"error": "boom"})
	}))
	defer srv.Close()

	cfg := DefaultConfig(srv.URL)
	cfg.MaxRetries = 1
	c := New(cfg, stubSigner{}, nil)
	_, err := c.APIRequest(context.Background(), "GET", "/trade-api/v2/exchange/status", nil, nil, "op")
	require.Error(t, err)
}
