// Package wsclient wraps gorilla/websocket.Conn with the bidirectional
// message transport and application-level ping/pong liveness of spec
// §4.2.2. One Client owns exactly one Conn, matching the REST client's
// one-owner-per-session convention.
package wsclient

import (
	"context"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/gorilla/websocket"

	"github.com/kalshi-core/connectivity/internal/platform/xerrors"
	"github.com/kalshi-core/connectivity/internal/sessiontracker"
)

// Config controls dial headers, ping cadence, and pong timeout.
type Config struct {
	URL          string
	Headers      map[string][]string
	PingInterval time.Duration
	PongTimeout  time.Duration
	CloseTimeout time.Duration
}

// DefaultConfig matches spec §5's ping/pong defaults.
func DefaultConfig(url string) Config {
	return Config{
		URL:          url,
		PingInterval: 10 * time.Second,
		PongTimeout:  10 * time.Second,
		CloseTimeout: 5 * time.Second,
	}
}

// Client wraps one gorilla/websocket.Conn. Gorilla permits exactly one
// concurrent reader and one concurrent writer, so writes are serialized
// behind writeMu.
type Client struct {
	cfg     Config
	tracker *sessiontracker.Tracker

	writeMu sync.Mutex
	conn    *websocket.Conn

	mu          sync.Mutex
	lastPong    time.Time
	release     func()
}

// New builds an unconnected Client.
func New(cfg Config, tracker *sessiontracker.Tracker) *Client {
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 10 * time.Second
	}
	if cfg.PongTimeout <= 0 {
		cfg.PongTimeout = 10 * time.Second
	}
	if cfg.CloseTimeout <= 0 {
		cfg.CloseTimeout = 5 * time.Second
	}
	return &Client{cfg: cfg, tracker: tracker}
}

// Dial opens the bidirectional connection with ping_interval=0 on the
// underlying library (we manage pings ourselves at the application level,
// per spec §4.2.2).
func (c *Client) Dial(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, c.cfg.URL, c.cfg.Headers)
	if err != nil {
		return xerrors.Wrap(xerrors.KindTransport, "ws_dial", "failed to dial websocket", err)
	}

	c.mu.Lock()
	c.lastPong = time.Now()
	c.mu.Unlock()

	conn.SetPongHandler(func(string) error {
		c.mu.Lock()
		c.lastPong = time.Now()
		c.mu.Unlock()
		return nil
	})

	c.writeMu.Lock()
	c.conn = conn
	c.writeMu.Unlock()

	if c.tracker != nil {
		c.release = c.tracker.Track("websocket")
	}
	return nil
}

// Send writes one text frame, serialized against concurrent Ping calls.
func (c *Client) Send(message []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.conn == nil {
		return xerrors.New(xerrors.KindTransport, "ws_send", "not connected")
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
		return xerrors.Wrap(xerrors.KindTransport, "ws_send", "write failed", err)
	}
	return nil
}

// Receive reads one frame. Binary payloads are decoded as UTF-8 with
// replacement of invalid sequences, per spec §4.2.2.
func (c *Client) Receive(ctx context.Context) ([]byte, error) {
	if c.conn == nil {
		return nil, xerrors.New(xerrors.KindTransport, "ws_receive", "not connected")
	}
	type result struct {
		data []byte
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		_, data, err := c.conn.ReadMessage()
		ch <- result{data, err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.err != nil {
			return nil, xerrors.Wrap(xerrors.KindTransport, "ws_receive", "read failed", r.err)
		}
		if !utf8.Valid(r.data) {
			return []byte(toValidUTF8(r.data)), nil
		}
		return r.data, nil
	}
}

func toValidUTF8(b []byte) string {
	const replacement = "�"
	out := make([]rune, 0, len(b))
	for i := 0; i < len(b); {
		r, size := utf8.DecodeRune(b[i:])
		if r == utf8.RuneError && size == 1 {
			out = append(out, []rune(replacement)...)
			i++
			continue
		}
		out = append(out, r)
		i += size
	}
	return string(out)
}

// Ping sends an application-level ping and reports whether a pong arrived
// within PongTimeout.
func (c *Client) Ping(ctx context.Context) error {
	c.writeMu.Lock()
	conn := c.conn
	c.writeMu.Unlock()
	if conn == nil {
		return xerrors.New(xerrors.KindTransport, "ws_ping", "not connected")
	}
	deadline := time.Now().Add(c.cfg.PongTimeout)
	c.writeMu.Lock()
	err := conn.WriteControl(websocket.PingMessage, nil, deadline)
	c.writeMu.Unlock()
	if err != nil {
		return xerrors.Wrap(xerrors.KindTransport, "ws_ping", "ping write failed", err)
	}

	timer := time.NewTimer(c.cfg.PongTimeout)
	defer timer.Stop()
	poll := time.NewTicker(50 * time.Millisecond)
	defer poll.Stop()
	sentAt := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return xerrors.New(xerrors.KindTransport, "ws_ping", "pong timeout")
		case <-poll.C:
			c.mu.Lock()
			pong := c.lastPong
			c.mu.Unlock()
			if pong.After(sentAt) {
				return nil
			}
		}
	}
}

// IsStale reports whether the connection has gone silent for more than
// twice the ping interval, the threshold spec §4.2.2 names explicitly.
func (c *Client) IsStale() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Since(c.lastPong) > 2*c.cfg.PingInterval
}

// Close sends a normal-closure close frame (with a CloseTimeout write
// deadline) and then closes the connection; pending reads are not drained.
func (c *Client) Close() error {
	c.writeMu.Lock()
	conn := c.conn
	c.writeMu.Unlock()
	if c.release != nil {
		c.release()
	}
	if conn == nil {
		return nil
	}
	deadline := time.Now().Add(c.cfg.CloseTimeout)
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	return conn.Close()
}
