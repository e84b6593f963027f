package lifecycle

import (
	"context"

	"github.com/kalshi-core/connectivity/internal/health"
	"github.com/kalshi-core/connectivity/internal/scraper"
)

// ScraperProtocol adapts a scraper.Client to Protocol: Establish runs a
// health check and fails when it does not pass (the pooled http.Client
// itself is created eagerly at construction); CheckHealth delegates to the
// half-of-urls-pass rule of spec §4.2.3.
type ScraperProtocol struct {
	client *scraper.Client
}

func NewScraperProtocol(client *scraper.Client) *ScraperProtocol {
	return &ScraperProtocol{client: client}
}

func (p *ScraperProtocol) Establish(ctx context.Context) error {
	healthy, details := p.client.CheckHealth(ctx)
	if !healthy {
		return &scraperEstablishError{details: details}
	}
	return nil
}

func (p *ScraperProtocol) CheckHealth(ctx context.Context) health.Result {
	healthy, details := p.client.CheckHealth(ctx)
	return health.Result{Healthy: healthy, Details: details}
}

func (p *ScraperProtocol) Cleanup(ctx context.Context) error {
	return nil
}

type scraperEstablishError struct {
	details map[string]any
}

func (e *scraperEstablishError) Error() string {
	return "scraper health check failed below half-of-urls threshold"
}
