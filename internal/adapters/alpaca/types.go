package alpaca

import (
	"strconv"

	"github.com/alejandrodnm/dcabot/internal/domain"
)

// Wire types for the Alpaca v2 REST API. Numeric fields arrive as strings.

type apiOrder struct {
	ID             string `json:"id"`
	ClientOrderID  string `json:"client_order_id"`
	Symbol         string `json:"symbol"`
	Qty            string `json:"qty"`
	FilledQty      string `json:"filled_qty"`
	FilledAvgPrice string `json:"filled_avg_price"`
	Side           string `json:"side"`
	Type           string `json:"type"`
	TimeInForce    string `json:"time_in_force"`
	LimitPrice     string `json:"limit_price"`
	Status         string `json:"status"`
}

type apiPosition struct {
	Symbol        string `json:"symbol"`
	Qty           string `json:"qty"`
	AvgEntryPrice string `json:"avg_entry_price"`
}

type apiLatestTrade struct {
	Symbol string `json:"symbol"`
	Trade  struct {
		Price float64 `json:"p"`
	} `json:"trade"`
}

type submitOrderRequest struct {
	Symbol        string `json:"symbol"`
	Qty           string `json:"qty"`
	Side          string `json:"side"`
	Type          string `json:"type"`
	TimeInForce   string `json:"time_in_force"`
	LimitPrice    string `json:"limit_price,omitempty"`
	ClientOrderID string `json:"client_order_id,omitempty"`
}

// mapOrderState folds Alpaca's order statuses onto the four local states.
func mapOrderState(status string) domain.OrderState {
	switch status {
	case "filled":
		return domain.OrderFilled
	case "canceled", "expired", "done_for_day", "stopped", "replaced":
		return domain.OrderCanceled
	case "rejected":
		return domain.OrderRejected
	default:
		// new, accepted, partially_filled, pending_* — still live
		return domain.OrderSubmitted
	}
}

// parseFloat tolerates the empty strings Alpaca sends for unset numerics.
func parseFloat(s string) float64 {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
