package catalog

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kalshi-core/connectivity/internal/platform/cache"
	"github.com/kalshi-core/connectivity/internal/platform/ratelimit"
	"github.com/kalshi-core/connectivity/internal/platform/xerrors"
	"github.com/kalshi-core/connectivity/internal/restclient"
)

const (
	maxLimit              = 100
	maxConcurrentRequests = 10
	eventDetailBatchSize  = 100
)

// Progress reports pipeline phase changes, mirroring the optional
// progress callback of the original discover_mutually_exclusive_markets.
type Progress func(string)

func reportProgress(p Progress, msg string) {
	if p != nil {
		p(msg)
	}
}

func extractCursor(payload map[string]any) string {
	raw, ok := payload["cursor"]
	if !ok || raw == nil {
		return ""
	}
	s, ok := raw.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}

// fetchAllMarkets pages through /markets, refusing any repeated cursor
// value and failing with a discovery error on repeats (spec §4.4 step 1).
func fetchAllMarkets(ctx context.Context, client *restclient.Client, minCloseTS, maxCloseTS int64, progress Progress) ([]map[string]any, error) {
	var markets []map[string]any
	cursor := ""
	page := 0
	seenCursors := map[string]struct{}{}

	for {
		page++
		reportProgress(progress, fmt.Sprintf("markets_page=%d total=%d", page, len(markets)))

		resp, err := client.ListMarkets(ctx, "open", minCloseTS, maxCloseTS, maxLimit, cursor)
		if err != nil {
			return nil, xerrors.Wrap(xerrors.KindDiscovery, "fetch_all_markets", "market page request failed", err)
		}

		rawMarkets, ok := resp["markets"].([]any)
		if !ok {
			return nil, xerrors.New(xerrors.KindDiscovery, "fetch_all_markets", "markets response missing 'markets' list")
		}
		for _, m := range rawMarkets {
			entry, ok := m.(map[string]any)
			if !ok {
				continue
			}
			markets = append(markets, entry)
		}

		next := extractCursor(resp)
		if next == "" {
			break
		}
		if _, seen := seenCursors[next]; seen {
			return nil, xerrors.New(xerrors.KindDiscovery, "fetch_all_markets", fmt.Sprintf("pagination error: received repeated cursor %q", next))
		}
		seenCursors[next] = struct{}{}
		cursor = next
	}
	return markets, nil
}

func fetchEventDetails(ctx context.Context, client *restclient.Client, detailsCache *cache.TTLCache, eventTicker string) (map[string]any, error) {
	if detailsCache != nil {
		if cached, ok := detailsCache.Get(ctx, eventTicker); ok {
			if event, ok := cached.(map[string]any); ok {
				return event, nil
			}
		}
	}

	resp, err := client.GetEvent(ctx, eventTicker)
	if err != nil {
		return nil, err
	}
	event, ok := resp["event"].(map[string]any)
	if !ok {
		return nil, xerrors.New(xerrors.KindDiscovery, "fetch_event_details", "response missing event object")
	}
	if detailsCache != nil {
		detailsCache.Set(ctx, eventTicker, event)
	}
	return event, nil
}

// fetchEventDetailsBatch fetches event details for every unique ticker,
// batched by eventDetailBatchSize with an outer semaphore of
// maxConcurrentRequests, each request additionally paced by limiter so a
// large ticker set doesn't burst the exchange API beyond its own
// per-event-detail budget. Per-event failures are logged and dropped,
// never fatal to the pipeline (spec §4.4 step 3).
func fetchEventDetailsBatch(ctx context.Context, client *restclient.Client, tickers []string, limiter *ratelimit.Limiter, detailsCache *cache.TTLCache, log *logrus.Logger, progress Progress) map[string]map[string]any {
	results := make(map[string]map[string]any)
	var mu sync.Mutex
	total := len(tickers)

	for start := 0; start < total; start += eventDetailBatchSize {
		end := start + eventDetailBatchSize
		if end > total {
			end = total
		}
		batch := tickers[start:end]
		reportProgress(progress, fmt.Sprintf("event_details=%d/%d", end, total))

		sem := make(chan struct{}, maxConcurrentRequests)
		var wg sync.WaitGroup
		for _, ticker := range batch {
			wg.Add(1)
			sem <- struct{}{}
			go func(ticker string) {
				defer wg.Done()
				defer func() { <-sem }()
				if limiter != nil {
					if err := limiter.Wait(ctx); err != nil {
						return
					}
				}
				details, err := fetchEventDetails(ctx, client, detailsCache, ticker)
				if err != nil {
					if log != nil {
						log.WithError(err).WithField("event_ticker", ticker).Warn("failed to fetch event details")
					}
					return
				}
				mu.Lock()
				results[ticker] = details
				mu.Unlock()
			}(ticker)
		}
		wg.Wait()
	}
	return results
}

func nowUnix() int64 { return time.Now().Unix() }
