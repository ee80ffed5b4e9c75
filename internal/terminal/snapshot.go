// Package terminal maintains the synchronized local mirror of a trading
// terminal streamed over redundant gateway connections.
package terminal

import (
	"sort"
	"strings"
	"time"

	"github.com/quantrelay/termsync/internal/schema"
)

// tombstoneRetention bounds how long removed entity ids block late
// out-of-order resurrection. Entries are pruned lazily on the next removal
// event for the same dataset.
const tombstoneRetention = 5 * time.Minute

// snapshot holds the terminal state mirrored from one redundant connection.
// The combined consumer-visible snapshot reuses the same shape; its sync
// bookkeeping fields are only meaningful on per-instance snapshots.
type snapshot struct {
	index          string
	instanceNumber string

	connected         bool
	connectedToBroker bool

	accountInformation *schema.AccountInformation
	positions          map[string]*schema.Position
	orders             map[string]*schema.Order
	specifications     map[string]*schema.Specification
	prices             map[string]*schema.Price

	removedPositions map[string]time.Time
	completedOrders  map[string]time.Time

	positionsInitialized bool
	ordersInitialized    bool

	lastUpdateTime      time.Time
	lastSyncUpdateTime  time.Time
	lastQuoteTime       time.Time
	lastQuoteBrokerTime string

	positionsHash      *string
	ordersHash         *string
	specificationsHash *string
}

func newSnapshot(index string) *snapshot {
	return &snapshot{
		index:            index,
		instanceNumber:   instanceNumberOf(index),
		positions:        make(map[string]*schema.Position),
		orders:           make(map[string]*schema.Order),
		specifications:   make(map[string]*schema.Specification),
		prices:           make(map[string]*schema.Price),
		removedPositions: make(map[string]time.Time),
		completedOrders:  make(map[string]time.Time),
	}
}

// instanceNumberOf extracts the logical connection slot from a composite
// "<instanceNumber>:<host>" index. The slot is stable across host migrations.
func instanceNumberOf(index string) string {
	if i := strings.IndexByte(index, ':'); i >= 0 {
		return index[:i]
	}
	return index
}

func (s *snapshot) sortedPositions() []*schema.Position {
	out := make([]*schema.Position, 0, len(s.positions))
	for _, p := range s.positions {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *snapshot) sortedOrders() []*schema.Order {
	out := make([]*schema.Order, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *snapshot) sortedSpecifications() []*schema.Specification {
	out := make([]*schema.Specification, 0, len(s.specifications))
	for _, spec := range s.specifications {
		out = append(out, spec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// resetSpecifications clears the specification dataset ahead of a refresh.
func (s *snapshot) resetSpecifications() {
	s.specifications = make(map[string]*schema.Specification)
	s.specificationsHash = nil
}

// resetPositions clears the position dataset, its tombstones and hash cache.
func (s *snapshot) resetPositions() {
	s.positions = make(map[string]*schema.Position)
	s.removedPositions = make(map[string]time.Time)
	s.positionsInitialized = false
	s.positionsHash = nil
}

// resetOrders clears the pending-order dataset, its tombstones and hash cache.
func (s *snapshot) resetOrders() {
	s.orders = make(map[string]*schema.Order)
	s.completedOrders = make(map[string]time.Time)
	s.ordersInitialized = false
	s.ordersHash = nil
}

// cloneAsCombined deep-copies the snapshot for wholesale promotion to the
// consumer-visible combined view.
func (s *snapshot) cloneAsCombined() *snapshot {
	combined := newSnapshot("combined")
	combined.accountInformation = s.accountInformation.Clone()
	for id, p := range s.positions {
		combined.positions[id] = p.Clone()
	}
	for id, o := range s.orders {
		combined.orders[id] = o.Clone()
	}
	for symbol, spec := range s.specifications {
		combined.specifications[symbol] = spec.Clone()
	}
	for symbol, price := range s.prices {
		combined.prices[symbol] = price.Clone()
	}
	for id, ts := range s.removedPositions {
		combined.removedPositions[id] = ts
	}
	for id, ts := range s.completedOrders {
		combined.completedOrders[id] = ts
	}
	combined.positionsInitialized = true
	combined.ordersInitialized = true
	combined.lastUpdateTime = s.lastUpdateTime
	combined.lastQuoteTime = s.lastQuoteTime
	combined.lastQuoteBrokerTime = s.lastQuoteBrokerTime
	return combined
}
