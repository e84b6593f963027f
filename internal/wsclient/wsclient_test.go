package wsclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalshi-core/connectivity/internal/sessiontracker"
)

func echoServer(t *testing.T) *httptest.Server {
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()
		for {
			mt, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := conn.WriteMessage(mt, msg); err != nil {
				return
			}
		}
	}))
}

func TestSendReceiveRoundTrip(t *testing.T) {
	srv := echoServer(t)
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	tracker := sessiontracker.New(nil)
	c := New(DefaultConfig(wsURL), tracker)
	require.NoError(t, c.Dial(context.Background()))
	defer c.Close()

	assert.Equal(t, 1, tracker.Count())

	require.NoError(t, c.Send([]byte("hello")))
	msg, err := c.Receive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "hello", string(msg))
}

func TestReceiveRespectsContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upgrader := websocket.Upgrader{}
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()
		time.Sleep(time.Second)
	}))
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	c := New(DefaultConfig(wsURL), nil)
	require.NoError(t, c.Dial(context.Background()))
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.Receive(ctx)
	require.Error(t, err)
}

func TestIsStaleInitiallyFalse(t *testing.T) {
	srv := echoServer(t)
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	c := New(DefaultConfig(wsURL), nil)
	require.NoError(t, c.Dial(context.Background()))
	defer c.Close()
	assert.False(t, c.IsStale())
}
