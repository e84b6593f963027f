package restclient

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/kalshi-core/connectivity/internal/platform/xerrors"
)

// PortfolioBalance is the exchange's reported cash balance at a point in time.
type PortfolioBalance struct {
	BalanceCents int64
	Timestamp    time.Time
	Currency     string
}

// OrderSide mirrors the exchange's two-sided market convention.
type OrderSide string

const (
	SideYes OrderSide = "yes"
	SideNo  OrderSide = "no"
)

// PortfolioPosition is one open position row from /portfolio/positions.
type PortfolioPosition struct {
	Ticker             string
	PositionCount      int64
	Side               OrderSide
	MarketValueCents   int64
	UnrealizedPnLCents int64
	AveragePriceCents  int64
	LastUpdated        time.Time
}

// GetBalance implements spec §4.3's portfolio-balance orchestrator, grounded
// on original_source's portfolio_operations.get_balance.
func (c *Client) GetBalance(ctx context.Context) (*PortfolioBalance, error) {
	payload, err := c.APIRequest(ctx, "GET", "/trade-api/v2/portfolio/balance", nil, nil, "get_portfolio_balance")
	if err != nil {
		return nil, err
	}
	if len(payload) == 0 {
		return nil, xerrors.New(xerrors.KindValidation, "get_portfolio_balance", "empty balance response")
	}
	balanceRaw, ok := payload["balance"]
	if !ok {
		return nil, xerrors.New(xerrors.KindValidation, "get_portfolio_balance", "missing balance field")
	}
	balance, ok := asInt64(balanceRaw)
	if !ok {
		return nil, xerrors.New(xerrors.KindValidation, "get_portfolio_balance", "balance field was not numeric")
	}
	updatedRaw, ok := payload["updated_ts"]
	if !ok {
		return nil, xerrors.New(xerrors.KindValidation, "get_portfolio_balance", "missing updated_ts field")
	}
	updated, ok := asFloat64(updatedRaw)
	if !ok {
		return nil, xerrors.New(xerrors.KindValidation, "get_portfolio_balance", "updated_ts field was not numeric")
	}
	var updatedMillis int64
	if updated < 1e12 {
		updatedMillis = int64(updated * 1000)
	} else {
		updatedMillis = int64(updated)
	}
	return &PortfolioBalance{
		BalanceCents: balance,
		Timestamp:    time.UnixMilli(updatedMillis).UTC(),
		Currency:     "USD",
	}, nil
}

// GetPositions implements spec §4.3's position-list orchestrator.
func (c *Client) GetPositions(ctx context.Context) ([]PortfolioPosition, error) {
	payload, err := c.APIRequest(ctx, "GET", "/trade-api/v2/portfolio/positions", nil, nil, "get_portfolio_positions")
	if err != nil {
		return nil, err
	}
	rawPositions, ok := payload["market_positions"].([]any)
	if !ok {
		return nil, xerrors.New(xerrors.KindValidation, "get_portfolio_positions", "response missing market_positions list")
	}
	out := make([]PortfolioPosition, 0, len(rawPositions))
	for _, item := range rawPositions {
		entry, ok := item.(map[string]any)
		if !ok {
			return nil, xerrors.New(xerrors.KindValidation, "get_portfolio_positions", "position entry was not a JSON object")
		}
		pos, err := parsePosition(entry)
		if err != nil {
			return nil, err
		}
		out = append(out, pos)
	}
	return out, nil
}

func parsePosition(item map[string]any) (PortfolioPosition, error) {
	ticker, _ := item["ticker"].(string)
	if ticker == "" {
		return PortfolioPosition{}, xerrors.New(xerrors.KindValidation, "get_portfolio_positions", "position missing ticker")
	}
	count, ok := asInt64(item["position"])
	if !ok {
		return PortfolioPosition{}, xerrors.New(xerrors.KindValidation, "get_portfolio_positions", "position field was not numeric")
	}
	sideRaw, _ := item["side"].(string)
	side := OrderSide(sideRaw)
	if side != SideYes && side != SideNo {
		return PortfolioPosition{}, xerrors.New(xerrors.KindValidation, "get_portfolio_positions", fmt.Sprintf("invalid position side %q", sideRaw))
	}
	marketValue, _ := asInt64(item["market_value"])
	unrealized, _ := asInt64(item["unrealized_pnl"])
	avgPriceRaw, present := item["average_price"]
	if !present || avgPriceRaw == nil {
		return PortfolioPosition{}, xerrors.New(xerrors.KindValidation, "get_portfolio_positions", "position missing average_price")
	}
	avgPrice, ok := asInt64(avgPriceRaw)
	if !ok {
		return PortfolioPosition{}, xerrors.New(xerrors.KindValidation, "get_portfolio_positions", "average_price field was not numeric")
	}
	return PortfolioPosition{
		Ticker:             ticker,
		PositionCount:      count,
		Side:               side,
		MarketValueCents:   marketValue,
		UnrealizedPnLCents: unrealized,
		AveragePriceCents:  avgPrice,
		LastUpdated:        time.Now().UTC(),
	}, nil
}

// OrderRequest is the caller-supplied intent for CreateOrder.
type OrderRequest struct {
	Ticker     string
	Side       OrderSide
	Action     string // "buy" or "sell"
	Count      int64
	PriceCents int64
	ClientID   string
}

// OrderResponse is the parsed exchange order record.
type OrderResponse struct {
	OrderID string
	Ticker  string
	Status  string
	Raw     map[string]any
}

// CreateOrder implements spec §4.3's order-create-then-fetch orchestrator,
// grounded on original_source's OrderOperations.create_order.
func (c *Client) CreateOrder(ctx context.Context, reqOrder OrderRequest) (*OrderResponse, error) {
	payload := map[string]any{
		"ticker":         reqOrder.Ticker,
		"side":           string(reqOrder.Side),
		"action":         reqOrder.Action,
		"count":          reqOrder.Count,
		"yes_price":      reqOrder.PriceCents,
		"client_order_id": reqOrder.ClientID,
	}
	resp, err := c.APIRequest(ctx, "POST", "/trade-api/v2/portfolio/orders", nil, payload, "create_order")
	if err != nil {
		return nil, err
	}
	orderID, ok := resp["order_id"].(string)
	if !ok || orderID == "" {
		return nil, xerrors.New(xerrors.KindValidation, "create_order", "order creation response missing order_id")
	}
	return c.GetOrder(ctx, orderID)
}

// CancelOrder implements spec §4.3's cancel orchestrator.
func (c *Client) CancelOrder(ctx context.Context, orderID string) (map[string]any, error) {
	if orderID == "" {
		return nil, xerrors.New(xerrors.KindValidation, "cancel_order", "order id must be provided")
	}
	return c.APIRequest(ctx, "DELETE", "/trade-api/v2/portfolio/orders/"+orderID, nil, nil, "cancel_order")
}

// GetOrder implements spec §4.3's order-fetch orchestrator.
func (c *Client) GetOrder(ctx context.Context, orderID string) (*OrderResponse, error) {
	if orderID == "" {
		return nil, xerrors.New(xerrors.KindValidation, "get_order", "order id must be provided")
	}
	payload, err := c.APIRequest(ctx, "GET", "/trade-api/v2/portfolio/orders/"+orderID, nil, nil, "get_order")
	if err != nil {
		return nil, err
	}
	orderRaw, ok := payload["order"].(map[string]any)
	if !ok {
		orderRaw = payload
	}
	ticker, _ := orderRaw["ticker"].(string)
	status, _ := orderRaw["status"].(string)
	return &OrderResponse{OrderID: orderID, Ticker: ticker, Status: status, Raw: orderRaw}, nil
}

// GetFills implements spec §4.3's fills orchestrator.
func (c *Client) GetFills(ctx context.Context, orderID string) ([]map[string]any, error) {
	if orderID == "" {
		return nil, xerrors.New(xerrors.KindValidation, "get_fills", "order id must be provided")
	}
	payload, err := c.APIRequest(ctx, "GET", "/trade-api/v2/portfolio/orders/"+orderID+"/fills", nil, nil, "get_fills")
	if err != nil {
		return nil, err
	}
	rawFills, ok := payload["fills"].([]any)
	if !ok {
		return nil, xerrors.New(xerrors.KindValidation, "get_fills", "fills response was not a list")
	}
	out := make([]map[string]any, 0, len(rawFills))
	for _, item := range rawFills {
		entry, ok := item.(map[string]any)
		if !ok {
			return nil, xerrors.New(xerrors.KindValidation, "get_fills", "fill entry was not a JSON object")
		}
		out = append(out, entry)
	}
	return out, nil
}

// GetExchangeStatus implements the exchange-status orchestrator.
func (c *Client) GetExchangeStatus(ctx context.Context) (map[string]any, error) {
	return c.APIRequest(ctx, "GET", "/trade-api/v2/exchange/status", nil, nil, "get_exchange_status")
}

// ListSeries implements the series-listing orchestrator.
func (c *Client) ListSeries(ctx context.Context, category string) (map[string]any, error) {
	params := url.Values{}
	if category != "" {
		params.Set("category", category)
	}
	return c.APIRequest(ctx, "GET", "/trade-api/v2/series", params, nil, "list_series")
}

// GetEvent implements the event-lookup orchestrator.
func (c *Client) GetEvent(ctx context.Context, eventTicker string) (map[string]any, error) {
	if eventTicker == "" {
		return nil, xerrors.New(xerrors.KindValidation, "get_event", "event ticker must be provided")
	}
	return c.APIRequest(ctx, "GET", "/trade-api/v2/events/"+eventTicker, nil, nil, "get_event")
}

// ListMarkets implements the raw, single-page market-listing call consumed
// by the catalog discovery pipeline's pagination loop (spec §4.4 step 1).
func (c *Client) ListMarkets(ctx context.Context, status string, minCloseTS, maxCloseTS int64, limit int, cursor string) (map[string]any, error) {
	params := url.Values{}
	if status != "" {
		params.Set("status", status)
	}
	if minCloseTS > 0 {
		params.Set("min_close_ts", fmt.Sprintf("%d", minCloseTS))
	}
	if maxCloseTS > 0 {
		params.Set("max_close_ts", fmt.Sprintf("%d", maxCloseTS))
	}
	if limit > 0 {
		params.Set("limit", fmt.Sprintf("%d", limit))
	}
	if cursor != "" {
		params.Set("cursor", cursor)
	}
	return c.APIRequest(ctx, "GET", "/trade-api/v2/markets", params, nil, "list_markets")
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}

func asFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}
