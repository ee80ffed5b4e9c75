package schema

import (
	"strings"
	"time"
)

// OrderType identifies the pending order variant.
type OrderType string

const (
	// OrderTypeBuyLimit marks a buy-limit pending order.
	OrderTypeBuyLimit OrderType = "ORDER_TYPE_BUY_LIMIT"
	// OrderTypeSellLimit marks a sell-limit pending order.
	OrderTypeSellLimit OrderType = "ORDER_TYPE_SELL_LIMIT"
	// OrderTypeBuyStop marks a buy-stop pending order.
	OrderTypeBuyStop OrderType = "ORDER_TYPE_BUY_STOP"
	// OrderTypeSellStop marks a sell-stop pending order.
	OrderTypeSellStop OrderType = "ORDER_TYPE_SELL_STOP"
	// OrderTypeBuyStopLimit marks a buy-stop-limit pending order.
	OrderTypeBuyStopLimit OrderType = "ORDER_TYPE_BUY_STOP_LIMIT"
	// OrderTypeSellStopLimit marks a sell-stop-limit pending order.
	OrderTypeSellStopLimit OrderType = "ORDER_TYPE_SELL_STOP_LIMIT"
)

// IsBuy reports whether the order type is any buy variant.
func (t OrderType) IsBuy() bool {
	return strings.Contains(string(t), "_BUY_")
}

// Order represents a pending order mirrored from the terminal.
type Order struct {
	ID            string    `json:"id"`
	Type          OrderType `json:"type"`
	State         string    `json:"state,omitempty"`
	Symbol        string    `json:"symbol"`
	Magic         int64     `json:"magic"`
	Time          time.Time `json:"time"`
	OpenPrice     float64   `json:"openPrice"`
	Volume        float64   `json:"volume"`
	CurrentVolume float64   `json:"currentVolume"`
	CurrentPrice  float64   `json:"currentPrice"`
	Comment       string    `json:"comment,omitempty"`
	ClientID      string    `json:"clientId,omitempty"`
}

// Clone returns a deep copy of the order.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	clone := *o
	return &clone
}

// CloneOrders deep-copies an order slice.
func CloneOrders(orders []*Order) []*Order {
	if orders == nil {
		return nil
	}
	out := make([]*Order, 0, len(orders))
	for _, o := range orders {
		out = append(out, o.Clone())
	}
	return out
}
