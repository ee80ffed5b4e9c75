package schema

import "time"

// Price is a single quote tick for a symbol.
type Price struct {
	Symbol          string    `json:"symbol"`
	Time            time.Time `json:"time"`
	BrokerTime      string    `json:"brokerTime,omitempty"`
	Bid             float64   `json:"bid"`
	Ask             float64   `json:"ask"`
	ProfitTickValue float64   `json:"profitTickValue"`
	LossTickValue   float64   `json:"lossTickValue"`
}

// Clone returns a deep copy of the price.
func (p *Price) Clone() *Price {
	if p == nil {
		return nil
	}
	clone := *p
	return &clone
}

// AccountMetrics carries the optional account figures attached to a price batch.
// Nil fields mean the gateway supplied no explicit value for that metric.
type AccountMetrics struct {
	Equity      *float64 `json:"equity,omitempty"`
	Margin      *float64 `json:"margin,omitempty"`
	FreeMargin  *float64 `json:"freeMargin,omitempty"`
	MarginLevel *float64 `json:"marginLevel,omitempty"`
}
