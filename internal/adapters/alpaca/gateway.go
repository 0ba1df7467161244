package alpaca

// gateway.go — ports.OrderGateway over the Alpaca v2 trading API.
//
// All limit orders are plain GTC buys; the entry order is a market order.
// Client order IDs are UUIDs so a duplicate submit after a lost response
// cannot double an order.

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/google/uuid"

	"github.com/alejandrodnm/dcabot/internal/domain"
	"github.com/alejandrodnm/dcabot/internal/ports"
)

// Gateway implements ports.OrderGateway.
type Gateway struct {
	client *Client
}

var _ ports.OrderGateway = (*Gateway)(nil)

// NewGateway creates a Gateway over the given client.
func NewGateway(client *Client) *Gateway {
	return &Gateway{client: client}
}

// Submit places an order and returns the broker order ID.
func (g *Gateway) Submit(ctx context.Context, req domain.OrderRequest) (string, error) {
	body := submitOrderRequest{
		Symbol:        req.Symbol,
		Qty:           formatFloat(req.Qty),
		Side:          string(req.Side),
		Type:          "market",
		TimeInForce:   string(req.TIF),
		ClientOrderID: uuid.New().String(),
	}
	if req.LimitPrice != nil {
		body.Type = "limit"
		body.LimitPrice = formatFloat(*req.LimitPrice)
	}

	var out apiOrder
	err := g.client.do(ctx, "alpaca.Submit", http.MethodPost,
		g.client.tradeBase+"/v2/orders", body, &out)
	if err != nil {
		return "", err
	}
	if mapOrderState(out.Status) == domain.OrderRejected {
		return "", domain.Fatal("alpaca.Submit",
			fmt.Errorf("order rejected for %s", req.Symbol))
	}
	return out.ID, nil
}

// Cancel requests cancellation. A 404 means the order is already terminal
// on the broker side, which is success for our purposes.
func (g *Gateway) Cancel(ctx context.Context, orderID string) error {
	err := g.client.do(ctx, "alpaca.Cancel", http.MethodDelete,
		g.client.tradeBase+"/v2/orders/"+url.PathEscape(orderID), nil, nil)
	if statusCode(err) == http.StatusNotFound {
		return nil
	}
	return err
}

// ListOpenOrders returns the broker's open orders for one symbol.
func (g *Gateway) ListOpenOrders(ctx context.Context, symbol string) ([]domain.OpenOrder, error) {
	q := url.Values{}
	q.Set("status", "open")
	q.Set("symbols", symbol)
	q.Set("limit", "500")

	var out []apiOrder
	err := g.client.do(ctx, "alpaca.ListOpenOrders", http.MethodGet,
		g.client.tradeBase+"/v2/orders?"+q.Encode(), nil, &out)
	if err != nil {
		return nil, err
	}

	open := make([]domain.OpenOrder, 0, len(out))
	for _, o := range out {
		open = append(open, domain.OpenOrder{ID: o.ID, State: mapOrderState(o.Status)})
	}
	return open, nil
}

// GetOrder resolves the current state of one order.
func (g *Gateway) GetOrder(ctx context.Context, orderID string) (domain.OrderStatus, error) {
	var out apiOrder
	err := g.client.do(ctx, "alpaca.GetOrder", http.MethodGet,
		g.client.tradeBase+"/v2/orders/"+url.PathEscape(orderID), nil, &out)
	if err != nil {
		return domain.OrderStatus{}, err
	}
	return domain.OrderStatus{
		ID:             out.ID,
		State:          mapOrderState(out.Status),
		FilledQty:      parseFloat(out.FilledQty),
		FilledAvgPrice: parseFloat(out.FilledAvgPrice),
	}, nil
}

// GetPosition returns the broker position for a symbol. Alpaca answers 404
// for a flat symbol; that maps to a zero position, not an error.
func (g *Gateway) GetPosition(ctx context.Context, symbol string) (domain.Position, error) {
	var out apiPosition
	err := g.client.do(ctx, "alpaca.GetPosition", http.MethodGet,
		g.client.tradeBase+"/v2/positions/"+url.PathEscape(symbol), nil, &out)
	if statusCode(err) == http.StatusNotFound {
		return domain.Position{}, nil
	}
	if err != nil {
		return domain.Position{}, err
	}
	return domain.Position{
		Quantity: parseFloat(out.Qty),
		AvgCost:  parseFloat(out.AvgEntryPrice),
	}, nil
}

// GetLastPrice returns the latest trade price from the market data API.
func (g *Gateway) GetLastPrice(ctx context.Context, symbol string) (float64, error) {
	var out apiLatestTrade
	err := g.client.do(ctx, "alpaca.GetLastPrice", http.MethodGet,
		g.client.dataBase+"/v2/stocks/"+url.PathEscape(symbol)+"/trades/latest", nil, &out)
	if err != nil {
		return 0, err
	}
	if out.Trade.Price <= 0 {
		return 0, domain.Transient("alpaca.GetLastPrice",
			fmt.Errorf("no trade data for %s", symbol))
	}
	return out.Trade.Price, nil
}
