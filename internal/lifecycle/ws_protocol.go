package lifecycle

import (
	"context"

	"github.com/kalshi-core/connectivity/internal/health"
	"github.com/kalshi-core/connectivity/internal/wsclient"
)

// WebSocketProtocol adapts a wsclient.Client to Protocol: Establish dials
// the socket, CheckHealth sends an application-level ping and treats a
// pong timeout or staleness (2x ping interval, per spec §4.2.2) as
// unhealthy.
type WebSocketProtocol struct {
	client *wsclient.Client
}

func NewWebSocketProtocol(client *wsclient.Client) *WebSocketProtocol {
	return &WebSocketProtocol{client: client}
}

func (p *WebSocketProtocol) Establish(ctx context.Context) error {
	return p.client.Dial(ctx)
}

func (p *WebSocketProtocol) CheckHealth(ctx context.Context) health.Result {
	if p.client.IsStale() {
		return health.Result{Healthy: false, Error: "connection stale: no pong within 2x ping interval"}
	}
	if err := p.client.Ping(ctx); err != nil {
		return health.Result{Healthy: false, Error: err.Error()}
	}
	return health.Result{Healthy: true}
}

func (p *WebSocketProtocol) Cleanup(ctx context.Context) error {
	return p.client.Close()
}
