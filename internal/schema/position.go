package schema

import "time"

// PositionSide identifies the direction of an open position.
type PositionSide string

const (
	// PositionSideBuy marks a long position.
	PositionSideBuy PositionSide = "POSITION_TYPE_BUY"
	// PositionSideSell marks a short position.
	PositionSideSell PositionSide = "POSITION_TYPE_SELL"
)

// Sign returns +1 for long positions and -1 for short positions.
func (s PositionSide) Sign() float64 {
	if s == PositionSideSell {
		return -1
	}
	return 1
}

// Position represents an open trade mirrored from the terminal.
type Position struct {
	ID               string       `json:"id"`
	Side             PositionSide `json:"type"`
	Symbol           string       `json:"symbol"`
	Magic            int64        `json:"magic"`
	Time             time.Time    `json:"time"`
	UpdateTime       time.Time    `json:"updateTime"`
	OpenPrice        float64      `json:"openPrice"`
	Volume           float64      `json:"volume"`
	Swap             float64      `json:"swap"`
	Commission       float64      `json:"commission"`
	Profit           float64      `json:"profit"`
	RealizedProfit   *float64     `json:"realizedProfit,omitempty"`
	UnrealizedProfit float64      `json:"unrealizedProfit"`
	CurrentPrice     float64      `json:"currentPrice"`
	CurrentTickValue float64      `json:"currentTickValue"`
	Comment          string       `json:"comment,omitempty"`
	ClientID         string       `json:"clientId,omitempty"`
}

// Clone returns a deep copy of the position.
func (p *Position) Clone() *Position {
	if p == nil {
		return nil
	}
	clone := *p
	if p.RealizedProfit != nil {
		realized := *p.RealizedProfit
		clone.RealizedProfit = &realized
	}
	return &clone
}

// ClonePositions deep-copies a position slice.
func ClonePositions(positions []*Position) []*Position {
	if positions == nil {
		return nil
	}
	out := make([]*Position, 0, len(positions))
	for _, p := range positions {
		out = append(out, p.Clone())
	}
	return out
}
