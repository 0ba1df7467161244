package domain

// OrderState is the broker-reported lifecycle of an order.
type OrderState string

const (
	OrderSubmitted OrderState = "SUBMITTED"
	OrderFilled    OrderState = "FILLED"
	OrderCanceled  OrderState = "CANCELED"
	OrderRejected  OrderState = "REJECTED"
)

// Terminal reports whether the state is final.
func (s OrderState) Terminal() bool {
	return s == OrderFilled || s == OrderCanceled || s == OrderRejected
}

// Side of an order. The strategy only buys.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// TimeInForce values the gateway accepts.
type TimeInForce string

const (
	TIFGTC TimeInForce = "gtc"
	TIFDay TimeInForce = "day"
)

// EntryLevel is the sentinel level index for the initial market order.
// Ladder levels are 1-based, matching the original level numbering.
const EntryLevel = 0

// OrderRequest is what the engine hands to the gateway.
// LimitPrice == nil means a market order.
type OrderRequest struct {
	Symbol     string
	Side       Side
	Qty        float64
	LimitPrice *float64
	TIF        TimeInForce
}

// OpenOrder is one entry of the broker's open-order listing.
type OpenOrder struct {
	ID    string
	State OrderState
}

// OrderStatus is the resolved state of a single order, used to settle
// orders that have left the open set.
type OrderStatus struct {
	ID             string
	State          OrderState
	FilledQty      float64
	FilledAvgPrice float64
}

// Position is the broker-side (quantity, average cost) pair for a symbol.
type Position struct {
	Quantity float64 `json:"quantity"`
	AvgCost  float64 `json:"avg_cost"`
}
