package terminal

import (
	"time"

	"github.com/quantrelay/termsync/internal/schema"
)

// The read API serves deep copies of the combined snapshot so callers can
// never observe or cause a torn mutation.

// Connected reports whether any instance holds a live gateway connection.
func (s *State) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, snap := range s.store.all() {
		if snap.connected {
			return true
		}
	}
	return false
}

// ConnectedToBroker reports whether any instance observes a live
// terminal-to-broker link.
func (s *State) ConnectedToBroker() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, snap := range s.store.all() {
		if snap.connectedToBroker {
			return true
		}
	}
	return false
}

// AccountInformation returns the combined account metrics, nil before the
// first full synchronization.
func (s *State) AccountInformation() *schema.AccountInformation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.combined.accountInformation.Clone()
}

// Positions returns the combined open positions sorted by ticket id.
func (s *State) Positions() []*schema.Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	return schema.ClonePositions(s.combined.sortedPositions())
}

// Orders returns the combined pending orders sorted by ticket id.
func (s *State) Orders() []*schema.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return schema.CloneOrders(s.combined.sortedOrders())
}

// Specifications returns the combined specification table sorted by symbol.
func (s *State) Specifications() []*schema.Specification {
	s.mu.Lock()
	defer s.mu.Unlock()
	specs := s.combined.sortedSpecifications()
	out := make([]*schema.Specification, 0, len(specs))
	for _, spec := range specs {
		out = append(out, spec.Clone())
	}
	return out
}

// Specification returns the combined specification for a symbol, nil when
// unknown.
func (s *State) Specification(symbol string) *schema.Specification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.combined.specifications[symbol].Clone()
}

// Price returns the latest combined quote for a symbol, nil when no tick has
// arrived yet.
func (s *State) Price(symbol string) *schema.Price {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.combined.prices[symbol].Clone()
}

// LastQuoteTime returns the timestamp of the most recent combined quote.
func (s *State) LastQuoteTime() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.combined.lastQuoteTime
}

// LastQuoteBrokerTime returns the broker-local timestamp of the most recent
// combined quote.
func (s *State) LastQuoteBrokerTime() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.combined.lastQuoteBrokerTime
}
