package catalog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kalshi-core/connectivity/internal/platform/cache"
	"github.com/kalshi-core/connectivity/internal/platform/ratelimit"
	"github.com/kalshi-core/connectivity/internal/platform/xerrors"
	"github.com/kalshi-core/connectivity/internal/restclient"
)

// Config controls the discovery window, per-event validity threshold, and
// the pacing and caching of the event-detail fetch fan-out.
type Config struct {
	ExpiryWindow             time.Duration
	MinMarketsPerEvent       int
	EventDetailRatePerSecond float64
	EventDetailBurst         int
	EventDetailCacheTTL      time.Duration
}

func DefaultConfig() Config {
	return Config{
		ExpiryWindow:             24 * time.Hour,
		MinMarketsPerEvent:       2,
		EventDetailRatePerSecond: 20,
		EventDetailBurst:         40,
		EventDetailCacheTTL:      2 * time.Minute,
	}
}

var (
	eventDetailCacheOnce sync.Once
	eventDetailCache     *cache.TTLCache
)

// sharedEventDetailCache returns a package-wide event-detail cache so
// repeated discovery passes reuse entries instead of rebuilding an empty
// cache on every call.
func sharedEventDetailCache(ttl time.Duration) *cache.TTLCache {
	eventDetailCacheOnce.Do(func() {
		eventDetailCache = cache.NewTTLCache(ttl)
	})
	return eventDetailCache
}

// DiscoverMutuallyExclusiveMarkets runs the full 7-step discovery
// algorithm of spec §4.4.
func DiscoverMutuallyExclusiveMarkets(ctx context.Context, client *restclient.Client, cfg Config, log *logrus.Logger, progress Progress) ([]DiscoveredEvent, *SkippedMarketStats, error) {
	if cfg.ExpiryWindow <= 0 {
		cfg.ExpiryWindow = 24 * time.Hour
	}
	if cfg.MinMarketsPerEvent <= 0 {
		cfg.MinMarketsPerEvent = 2
	}
	if cfg.EventDetailRatePerSecond <= 0 {
		cfg.EventDetailRatePerSecond = 20
	}
	if cfg.EventDetailBurst <= 0 {
		cfg.EventDetailBurst = int(cfg.EventDetailRatePerSecond * 2)
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	stats := NewSkippedMarketStats()

	nowTS := nowUnix()
	maxTS := nowTS + int64(cfg.ExpiryWindow.Seconds())

	reportProgress(progress, "phase=fetch_markets")
	markets, err := fetchAllMarkets(ctx, client, nowTS, maxTS, progress)
	if err != nil {
		return nil, stats, err
	}
	log.WithField("count", len(markets)).Info("fetched markets for catalog discovery")

	groups := groupMarketsByEvent(markets, cfg.ExpiryWindow)
	tickers := make([]string, 0, len(groups))
	for ticker := range groups {
		tickers = append(tickers, ticker)
	}
	log.WithField("count", len(tickers)).Info("grouped markets into unique events")

	reportProgress(progress, fmt.Sprintf("phase=fetch_event_details total=%d", len(tickers)))
	limiter := ratelimit.New(ratelimit.Config{RequestsPerSecond: cfg.EventDetailRatePerSecond, Burst: cfg.EventDetailBurst})
	detailsCache := sharedEventDetailCache(cfg.EventDetailCacheTTL)
	eventDetails := fetchEventDetailsBatch(ctx, client, tickers, limiter, detailsCache, log, progress)

	mutuallyExclusive := make(map[string]map[string]any, len(eventDetails))
	for ticker, details := range eventDetails {
		if me, _ := details["mutually_exclusive"].(bool); me {
			mutuallyExclusive[ticker] = details
		}
	}
	log.WithFields(logrus.Fields{"kept": len(mutuallyExclusive), "total": len(eventDetails)}).Info("filtered mutually exclusive events")

	discovered := make([]DiscoveredEvent, 0, len(mutuallyExclusive))
	for eventTicker, details := range mutuallyExclusive {
		event, err := processEvent(eventTicker, details, cfg, stats)
		if err != nil {
			log.WithError(err).WithField("event_ticker", eventTicker).Debug("skipping event")
			continue
		}
		discovered = append(discovered, event)
	}

	marketCount := 0
	for _, e := range discovered {
		marketCount += len(e.Markets)
	}
	reportProgress(progress, fmt.Sprintf("phase=done events=%d markets=%d", len(discovered), marketCount))
	log.WithFields(logrus.Fields{"events": len(discovered), "markets": marketCount}).Info("catalog discovery complete")

	return discovered, stats, nil
}

func processEvent(eventTicker string, details map[string]any, cfg Config, stats *SkippedMarketStats) (DiscoveredEvent, error) {
	titleRaw, ok := details["title"]
	if !ok || titleRaw == nil {
		return DiscoveredEvent{}, xerrors.New(xerrors.KindDiscovery, "process_event", "event "+eventTicker+" missing title field")
	}
	title := fmt.Sprintf("%v", titleRaw)

	category := DefaultCategory
	if c, ok := details["category"]; ok && c != nil {
		category = fmt.Sprintf("%v", c)
	}

	nestedMarketsRaw, _ := details["markets"].([]any)
	marketsInWindow := filterMarketsForWindow(nestedMarketsRaw, cfg.ExpiryWindow)
	validMarkets := filterMarketsWithValidStrikes(marketsInWindow, stats)

	if len(validMarkets) < cfg.MinMarketsPerEvent {
		return DiscoveredEvent{}, xerrors.New(xerrors.KindDiscovery, "process_event",
			fmt.Sprintf("event %s has %d valid markets, minimum required is %d", eventTicker, len(validMarkets), cfg.MinMarketsPerEvent))
	}

	discoveredMarkets := make([]DiscoveredMarket, 0, len(validMarkets))
	for _, m := range validMarkets {
		discoveredMarkets = append(discoveredMarkets, convertToDiscoveredMarket(m))
	}

	return DiscoveredEvent{
		EventTicker:       eventTicker,
		Title:             title,
		Category:          category,
		MutuallyExclusive: true,
		Markets:           discoveredMarkets,
	}, nil
}
