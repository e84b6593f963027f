// Package scraper implements the multi-URL content fetcher of spec
// §4.2.3: a connection-pooled HTTP session with pluggable validators and
// a half-of-urls-pass health definition.
package scraper

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/tidwall/gjson"

	"github.com/kalshi-core/connectivity/internal/platform/httputil"
	"github.com/kalshi-core/connectivity/internal/platform/resilience"
	"github.com/kalshi-core/connectivity/internal/platform/xerrors"
)

// maxScrapeBodyBytes bounds how much of a scraped page gets buffered
// into memory per URL.
const maxScrapeBodyBytes = 5 << 20

// Validator inspects a fetched body and reports whether it looks sane.
// Implementations typically use gjson to probe loosely-structured JSON
// without a fixed schema, per spec §4.2.3.
type Validator func(body []byte) bool

// JSONPathExists returns a Validator requiring path to resolve to a value.
func JSONPathExists(path string) Validator {
	return func(body []byte) bool {
		return gjson.GetBytes(body, path).Exists()
	}
}

// Config controls the pooled session and default request headers.
type Config struct {
	UserAgent string
	Accept    string
	Timeout   time.Duration
}

// DefaultConfig mirrors a standard browser request signature.
func DefaultConfig() Config {
	return Config{
		UserAgent: "Mozilla/5.0 (compatible; connectivity-core/1.0)",
		Accept:    "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		Timeout:   15 * time.Second,
	}
}

// Client fetches a fixed set of URLs and validates their bodies.
type Client struct {
	cfg        Config
	httpClient *http.Client

	mu         sync.Mutex
	urls       []string
	validators map[string][]Validator
	breakers   map[string]*resilience.CircuitBreaker
}

// New builds a Client for the given URL set. Each URL gets its own
// circuit breaker so a single persistently-failing URL stops being
// retried on every scrape pass instead of dragging down every call.
func New(cfg Config, urls []string) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	transport, _ := httputil.DefaultTransportWithMinTLS12().(*http.Transport)
	breakers := make(map[string]*resilience.CircuitBreaker, len(urls))
	for _, u := range urls {
		breakers[u] = resilience.New(resilience.DefaultConfig())
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout, Transport: transport},
		urls:       urls,
		validators: make(map[string][]Validator),
		breakers:   breakers,
	}
}

func (c *Client) breakerFor(url string) *resilience.CircuitBreaker {
	c.mu.Lock()
	defer c.mu.Unlock()
	cb, ok := c.breakers[url]
	if !ok {
		cb = resilience.New(resilience.DefaultConfig())
		c.breakers[url] = cb
	}
	return cb
}

// RegisterValidator attaches a content validator to a specific URL.
func (c *Client) RegisterValidator(url string, v Validator) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.validators[url] = append(c.validators[url], v)
}

// ScrapeURL fetches a single URL and runs its registered validators. A
// tripped circuit breaker for this URL short-circuits the request
// entirely instead of issuing it.
func (c *Client) ScrapeURL(ctx context.Context, url string) ([]byte, bool, error) {
	var body []byte
	var valid bool

	err := c.breakerFor(url).Execute(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return xerrors.Wrap(xerrors.KindTransport, "scrape_url", "failed to build request", err)
		}
		req.Header.Set("User-Agent", c.cfg.UserAgent)
		req.Header.Set("Accept", c.cfg.Accept)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return xerrors.Wrap(xerrors.KindTransport, "scrape_url", "request failed", err)
		}
		defer resp.Body.Close()

		raw, truncated, err := httputil.ReadAllWithLimit(resp.Body, maxScrapeBodyBytes)
		if err != nil {
			return xerrors.Wrap(xerrors.KindTransport, "scrape_url", "failed to read body", err)
		}
		body = raw
		if truncated || resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil
		}

		c.mu.Lock()
		validators := append([]Validator(nil), c.validators[url]...)
		c.mu.Unlock()
		for _, v := range validators {
			if !v(body) {
				return nil
			}
		}
		valid = true
		return nil
	})
	if err != nil {
		return body, false, err
	}
	return body, valid, nil
}

// ScrapeResult is one URL's outcome from ScrapeAllURLs.
type ScrapeResult struct {
	URL   string
	Body  []byte
	Valid bool
	Err   error
}

// ScrapeAllURLs fetches every configured URL in parallel with per-URL
// error isolation: a single URL's failure never aborts the others.
func (c *Client) ScrapeAllURLs(ctx context.Context) []ScrapeResult {
	c.mu.Lock()
	urls := append([]string(nil), c.urls...)
	c.mu.Unlock()

	results := make([]ScrapeResult, len(urls))
	var wg sync.WaitGroup
	for i, url := range urls {
		wg.Add(1)
		go func(i int, url string) {
			defer wg.Done()
			body, valid, err := c.ScrapeURL(ctx, url)
			results[i] = ScrapeResult{URL: url, Body: body, Valid: valid, Err: err}
		}(i, url)
	}
	wg.Wait()
	return results
}

// CheckHealth fetches every URL and reports healthy iff at least half
// pass validation, per spec §4.2.3.
func (c *Client) CheckHealth(ctx context.Context) (bool, map[string]any) {
	results := c.ScrapeAllURLs(ctx)
	if len(results) == 0 {
		return false, map[string]any{"reason": "no urls configured"}
	}
	passed := 0
	details := make(map[string]any, len(results))
	for _, r := range results {
		ok := r.Err == nil && r.Valid
		if ok {
			passed++
		}
		details[r.URL] = ok
	}
	healthy := passed*2 >= len(results)
	details["passed"] = passed
	details["total"] = len(results)
	return healthy, details
}
