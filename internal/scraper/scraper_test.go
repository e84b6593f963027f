package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckHealthPassesWhenHalfURLsValidate(t *testing.T) {
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer good.Close()
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer bad.Close()

	c := New(DefaultConfig(), []string{good.URL, bad.URL})
	c.RegisterValidator(good.URL, JSONPathExists("status"))

	healthy, details := c.CheckHealth(context.Background())
	assert.True(t, healthy)
	assert.Equal(t, 1, details["passed"])
	assert.Equal(t, 2, details["total"])
}

func TestCheckHealthFailsWhenMostURLsFail(t *testing.T) {
	bad1 := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer bad1.Close()
	bad2 := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer bad2.Close()
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer good.Close()

	c := New(DefaultConfig(), []string{bad1.URL, bad2.URL, good.URL})
	healthy, _ := c.CheckHealth(context.Background())
	assert.False(t, healthy)
}

func TestScrapeURLIsolatesErrors(t *testing.T) {
	c := New(DefaultConfig(), nil)
	_, valid, err := c.ScrapeURL(context.Background(), "http://127.0.0.1:1/definitely-not-listening")
	require.Error(t, err)
	assert.False(t, valid)
}
