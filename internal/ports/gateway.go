package ports

import (
	"context"

	"github.com/alejandrodnm/dcabot/internal/domain"
)

// OrderGateway is the broker boundary. Implementations classify every
// failure as domain.Transient or domain.Fatal; the engine retries nothing
// here — bounded retry for network-shaped failures lives inside the adapter.
type OrderGateway interface {
	// Submit places an order and returns the broker order ID.
	// A broker-side rejection surfaces as a fatal error.
	Submit(ctx context.Context, req domain.OrderRequest) (string, error)

	// Cancel requests cancellation of an order. Cancelling an order the
	// broker already considers terminal is not an error.
	Cancel(ctx context.Context, orderID string) error

	// ListOpenOrders returns the broker's open orders for one symbol.
	ListOpenOrders(ctx context.Context, symbol string) ([]domain.OpenOrder, error)

	// GetOrder resolves the current state of a single order, including
	// filled quantity and average fill price.
	GetOrder(ctx context.Context, orderID string) (domain.OrderStatus, error)

	// GetPosition returns the broker position for a symbol. A flat symbol
	// yields a zero Position, not an error.
	GetPosition(ctx context.Context, symbol string) (domain.Position, error)

	// GetLastPrice returns the latest trade price for a symbol.
	GetLastPrice(ctx context.Context, symbol string) (float64, error)
}
