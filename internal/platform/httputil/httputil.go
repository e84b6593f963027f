// Package httputil provides the outbound-transport helpers shared by
// the REST and scraper clients: a TLS-enforcing RoundTripper and a
// bounded body reader that protects against an unbounded response body
// from a misbehaving upstream.
package httputil

import (
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
)

// DefaultTransportWithMinTLS12 clones http.DefaultTransport and enforces
// a TLS 1.2+ floor for outbound calls to the exchange API and scraped
// URLs, since neither client configures its own RoundTripper otherwise.
func DefaultTransportWithMinTLS12() http.RoundTripper {
	base, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		return http.DefaultTransport
	}

	cloned := base.Clone()
	if cloned.TLSClientConfig != nil {
		cloned.TLSClientConfig = cloned.TLSClientConfig.Clone()
		if cloned.TLSClientConfig.MinVersion == 0 || cloned.TLSClientConfig.MinVersion < tls.VersionTLS12 {
			cloned.TLSClientConfig.MinVersion = tls.VersionTLS12
		}
	} else {
		cloned.TLSClientConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	return cloned
}

// BodyTooLargeError describes a body that exceeds Limit bytes. Nothing in
// this package returns it; ReadAllWithLimit reports an oversized body
// through its truncated result instead.
type BodyTooLargeError struct {
	Limit int64
}

func (e *BodyTooLargeError) Error() string {
	return fmt.Sprintf("body exceeds limit of %d bytes", e.Limit)
}

// ReadAllWithLimit reads up to limit bytes from r, reporting whether the
// body was truncated, so a caller can log or surface a diagnostic
// without risking OOM on an unbounded response.
func ReadAllWithLimit(r io.Reader, limit int64) (body []byte, truncated bool, err error) {
	if limit <= 0 {
		return nil, false, fmt.Errorf("limit must be positive")
	}
	if r == nil {
		return nil, false, fmt.Errorf("reader is nil")
	}
	limited := io.LimitReader(r, limit+1)
	b, err := io.ReadAll(limited)
	if err != nil {
		return nil, false, err
	}
	if int64(len(b)) > limit {
		return b[:limit], true, nil
	}
	return b, false, nil
}
