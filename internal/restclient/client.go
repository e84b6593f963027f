// Package restclient implements the signed, retrying REST transport to the
// exchange API described in spec §4.3.
package restclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/kalshi-core/connectivity/internal/clockutil"
	"github.com/kalshi-core/connectivity/internal/platform/httputil"
	"github.com/kalshi-core/connectivity/internal/platform/xerrors"
	"github.com/kalshi-core/connectivity/internal/sessiontracker"
)

// maxResponseBodyBytes bounds how much of an exchange API response body
// gets buffered into memory, guarding against an unbounded response.
const maxResponseBodyBytes = 10 << 20

// Config carries the per-request timeouts and retry parameters.
type Config struct {
	BaseURL         string
	ConnectTimeout  time.Duration
	ReadTimeout     time.Duration
	TotalTimeout    time.Duration
	MaxRetries      int
	BackoffBase     time.Duration
	BackoffMax      time.Duration
	RatePerSecond   float64
	RateBurst       int
}

// DefaultConfig matches spec §5's default timeout table.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:        baseURL,
		ConnectTimeout: 10 * time.Second,
		ReadTimeout:    20 * time.Second,
		TotalTimeout:   30 * time.Second,
		MaxRetries:     3,
		BackoffBase:    500 * time.Millisecond,
		BackoffMax:     10 * time.Second,
		RatePerSecond:  10,
		RateBurst:      20,
	}
}

// Client is the signed, retrying, rate-limited REST transport. One Client
// owns exactly one pooled *http.Client, matching spec §4.2.1's "each HTTP
// session is owned by exactly one connection-lifecycle instance".
type Client struct {
	cfg     Config
	signer  Signer
	clock   clockutil.Clock
	limiter *rate.Limiter
	tracker *sessiontracker.Tracker

	initOnce sync.Once
	httpOnce sync.Once
	http     *http.Client

	mu      sync.Mutex
	success int64
	failure int64
}

// New builds a Client. The HTTP transport is created lazily on first use,
// serialized behind a sync.Once so only one creation can win under
// concurrent first callers, matching spec §4.3 step 2.
func New(cfg Config, signer Signer, tracker *sessiontracker.Tracker) *Client {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 1
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = 10
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = int(cfg.RatePerSecond * 2)
	}
	return &Client{
		cfg:     cfg,
		signer:  signer,
		clock:   clockutil.SystemClock{},
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.RateBurst),
		tracker: tracker,
	}
}

func (c *Client) ensureSession() *http.Client {
	c.httpOnce.Do(func() {
		transport, ok := httputil.DefaultTransportWithMinTLS12().(*http.Transport)
		if !ok {
			transport = &http.Transport{}
		}
		transport.DialContext = (&net.Dialer{Timeout: c.cfg.ConnectTimeout}).DialContext
		c.http = &http.Client{
			Timeout:   c.cfg.TotalTimeout,
			Transport: transport,
		}
	})
	return c.http
}

// APIRequest executes the exchange-signed request/retry/parse algorithm of
// spec §4.3 steps 1-5.
func (c *Client) APIRequest(ctx context.Context, method, path string, params url.Values, body any, op string) (map[string]any, error) {
	if !strings.HasPrefix(path, "/") {
		return nil, xerrors.New(xerrors.KindValidation, op, "path must start with /")
	}

	var release func()
	if c.tracker != nil {
		release = c.tracker.Track("rest:" + op)
		defer release()
	}

	httpClient := c.ensureSession()

	var bodyBytes []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, xerrors.Wrap(xerrors.KindValidation, op, "failed to encode request body", err)
		}
		bodyBytes = b
	}

	reqURL := strings.TrimRight(c.cfg.BaseURL, "/") + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	maxAttempts := c.cfg.MaxRetries
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, xerrors.Wrap(xerrors.KindTransport, op, "rate limiter wait cancelled", err)
		}

		result, statusCode, err := c.doOnce(ctx, method, reqURL, path, bodyBytes, op)
		if err == nil {
			c.recordOutcome(true)
			return result, nil
		}
		c.recordOutcome(false)
		lastErr = err

		retryable := statusCode == http.StatusTooManyRequests || xerrorsIsTransport(err)
		if !retryable || attempt == maxAttempts {
			break
		}
		delay := c.retryDelay(attempt)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	if kind, ok := xerrors.KindOf(lastErr); ok && kind == xerrors.KindRateLimit {
		return nil, xerrors.Wrap(xerrors.KindRateLimit, op, fmt.Sprintf("rate limit exceeded after %d attempts", maxAttempts), lastErr)
	}
	return nil, lastErr
}

func xerrorsIsTransport(err error) bool {
	kind, ok := xerrors.KindOf(err)
	return ok && kind == xerrors.KindTransport
}

func (c *Client) retryDelay(attempt int) time.Duration {
	base := c.cfg.BackoffBase
	if base <= 0 {
		base = 500 * time.Millisecond
	}
	max := c.cfg.BackoffMax
	if max <= 0 {
		max = 10 * time.Second
	}
	factor := math.Pow(2, float64(attempt-1))
	d := time.Duration(float64(base) * factor)
	if d > max {
		return max
	}
	return d
}

func (c *Client) doOnce(ctx context.Context, method, fullURL, path string, bodyBytes []byte, op string) (map[string]any, int, error) {
	var reader io.Reader
	if bodyBytes != nil {
		reader = bytes.NewReader(bodyBytes)
	}
	req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
	if err != nil {
		return nil, 0, xerrors.Wrap(xerrors.KindTransport, op, "failed to build request", err)
	}
	if bodyBytes != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	headers, err := c.signer.Sign(method, path, c.clock.Now().UnixMilli())
	if err != nil {
		return nil, 0, xerrors.Wrap(xerrors.KindAuthentication, op, "failed to sign request", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.ensureSession().Do(req)
	if err != nil {
		return nil, 0, xerrors.Wrap(xerrors.KindTransport, op, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, resp.StatusCode, xerrors.New(xerrors.KindRateLimit, op, "received 429")
	}

	raw, truncated, err := httputil.ReadAllWithLimit(resp.Body, maxResponseBodyBytes)
	if err != nil {
		return nil, resp.StatusCode, xerrors.Wrap(xerrors.KindTransport, op, "failed to read response body", err)
	}
	if truncated {
		return nil, resp.StatusCode, xerrors.New(xerrors.KindTransport, op, "response body exceeded size limit")
	}

	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, resp.StatusCode, xerrors.Wrap(xerrors.KindValidation, op, fmt.Sprintf("response for %s was not a JSON object: %s", path, string(raw)), err)
	}

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusAccepted:
		return payload, resp.StatusCode, nil
	default:
		return nil, resp.StatusCode, xerrors.New(xerrors.KindValidation, op, fmt.Sprintf("request %s returned %d: %v", path, resp.StatusCode, payload))
	}
}

func (c *Client) recordOutcome(ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ok {
		c.success++
	} else {
		c.failure++
	}
}

// Counters returns (success, failure) request counts, consumed by the REST
// connection-lifecycle health tracker.
func (c *Client) Counters() (int64, int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.success, c.failure
}
