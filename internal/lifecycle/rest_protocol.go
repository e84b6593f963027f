package lifecycle

import (
	"context"

	"github.com/kalshi-core/connectivity/internal/health"
	"github.com/kalshi-core/connectivity/internal/restclient"
)

// RESTProtocol adapts a restclient.Client to the Protocol interface: its
// Establish issues an authenticated GET to the configured probe path
// (which also creates the client's lazily pooled HTTP session, per spec
// §4.2.1), its CheckHealth issues the same GET. Cleanup is a no-op.
type RESTProtocol struct {
	client    *restclient.Client
	probePath string
}

func NewRESTProtocol(client *restclient.Client, probePath string) *RESTProtocol {
	if probePath == "" {
		probePath = "/trade-api/v2/exchange/status"
	}
	return &RESTProtocol{client: client, probePath: probePath}
}

func (p *RESTProtocol) Establish(ctx context.Context) error {
	_, err := p.client.APIRequest(ctx, "GET", p.probePath, nil, nil, "establish_connection")
	return err
}

func (p *RESTProtocol) CheckHealth(ctx context.Context) health.Result {
	_, err := p.client.APIRequest(ctx, "GET", p.probePath, nil, nil, "check_connection_health")
	if err != nil {
		return health.Result{Healthy: false, Error: err.Error()}
	}
	success, failure := p.client.Counters()
	return health.Result{Healthy: true, Details: map[string]any{"success": success, "failure": failure}}
}

func (p *RESTProtocol) Cleanup(ctx context.Context) error {
	return nil
}
