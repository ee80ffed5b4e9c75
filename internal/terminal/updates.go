package terminal

import (
	"time"

	"github.com/quantrelay/termsync/internal/schema"
)

// Incremental updates land on both the originating per-instance snapshot and
// the combined snapshot in the same call, each guarded by its own tombstone
// cache so a late event cannot resurrect an entity the merge boundary already
// removed.

// OnAccountInformationUpdated replaces the account metrics on the instance
// snapshot. The combined view only follows instances that have completed a
// full sync; before the first full sync it stays empty.
func (s *State) OnAccountInformationUpdated(instanceIndex string, info *schema.AccountInformation) {
	if info == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.store.getOrCreate(instanceIndex)
	snap.accountInformation = info.Clone()
	snap.lastUpdateTime = s.clock()
	if snap.ordersInitialized {
		s.combined.accountInformation = info.Clone()
	}
	s.metrics.EventApplied("account_information")
}

// OnPositionsReplaced installs the full position download for an instance.
func (s *State) OnPositionsReplaced(instanceIndex string, positions []*schema.Position) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.store.getOrCreate(instanceIndex)
	snap.positions = make(map[string]*schema.Position, len(positions))
	for _, p := range positions {
		if p == nil || p.ID == "" {
			continue
		}
		snap.positions[p.ID] = p.Clone()
	}
	snap.positionsHash = nil
	snap.lastUpdateTime = s.clock()
	s.metrics.EventApplied("positions_replaced")
}

// OnPositionUpdated applies a position add/update to the instance and
// combined snapshots unless the id is tombstoned there.
func (s *State) OnPositionUpdated(instanceIndex string, position *schema.Position) {
	if position == nil || position.ID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock()
	snap := s.store.getOrCreate(instanceIndex)
	upsertPosition(snap, position, now)
	upsertPosition(s.combined, position, now)
	s.metrics.EventApplied("position_updated")
}

// OnPositionRemoved removes a position from both snapshots and tombstones the
// id against late out-of-order updates.
func (s *State) OnPositionRemoved(instanceIndex, positionID string) {
	if positionID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock()
	snap := s.store.getOrCreate(instanceIndex)
	removePosition(snap, positionID, now)
	removePosition(s.combined, positionID, now)
	s.metrics.EventApplied("position_removed")
}

// OnPendingOrdersReplaced installs the full pending-order download for an
// instance.
func (s *State) OnPendingOrdersReplaced(instanceIndex string, orders []*schema.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.store.getOrCreate(instanceIndex)
	snap.orders = make(map[string]*schema.Order, len(orders))
	for _, o := range orders {
		if o == nil || o.ID == "" {
			continue
		}
		snap.orders[o.ID] = o.Clone()
	}
	snap.ordersHash = nil
	snap.lastUpdateTime = s.clock()
	s.metrics.EventApplied("orders_replaced")
}

// OnPendingOrderUpdated applies an order add/update to the instance and
// combined snapshots unless the id is tombstoned there.
func (s *State) OnPendingOrderUpdated(instanceIndex string, order *schema.Order) {
	if order == nil || order.ID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock()
	snap := s.store.getOrCreate(instanceIndex)
	upsertOrder(snap, order, now)
	upsertOrder(s.combined, order, now)
	s.metrics.EventApplied("order_updated")
}

// OnPendingOrderCompleted removes a filled or cancelled order from both
// snapshots and tombstones the id.
func (s *State) OnPendingOrderCompleted(instanceIndex, orderID string) {
	if orderID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock()
	snap := s.store.getOrCreate(instanceIndex)
	removeOrder(snap, orderID, now)
	removeOrder(s.combined, orderID, now)
	s.metrics.EventApplied("order_completed")
}

// OnSymbolSpecificationsUpdated applies specification adds and removals to
// the instance and combined snapshots.
func (s *State) OnSymbolSpecificationsUpdated(instanceIndex string, updated []*schema.Specification, removedSymbols []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock()
	snap := s.store.getOrCreate(instanceIndex)
	applySpecifications(snap, updated, removedSymbols, now)
	applySpecifications(s.combined, updated, removedSymbols, now)
	s.metrics.EventApplied("specifications_updated")
}

// OnSymbolPricesUpdated projects a quote batch through the instance and
// combined snapshots and releases any price waiters whose symbol now has a
// combined quote.
func (s *State) OnSymbolPricesUpdated(instanceIndex string, prices []*schema.Price, metrics *schema.AccountMetrics) {
	s.mu.Lock()
	defer s.mu.Unlock()
	started := time.Now()
	now := s.clock()
	snap := s.store.getOrCreate(instanceIndex)
	applyPrices(snap, prices, metrics)
	snap.lastUpdateTime = now

	applied := applyPrices(s.combined, prices, metrics)
	for _, symbol := range applied {
		s.fulfillWaiters(symbol)
	}
	s.metrics.EventApplied("prices_updated")
	s.metrics.PriceBatchObserved(time.Since(started))
}

func upsertPosition(sn *snapshot, position *schema.Position, now time.Time) {
	if _, tombstoned := sn.removedPositions[position.ID]; tombstoned {
		return
	}
	sn.positions[position.ID] = position.Clone()
	sn.positionsHash = nil
	sn.lastUpdateTime = now
}

func removePosition(sn *snapshot, positionID string, now time.Time) {
	delete(sn.positions, positionID)
	pruneTombstones(sn.removedPositions, now)
	sn.removedPositions[positionID] = now
	sn.positionsHash = nil
	sn.lastUpdateTime = now
}

func upsertOrder(sn *snapshot, order *schema.Order, now time.Time) {
	if _, tombstoned := sn.completedOrders[order.ID]; tombstoned {
		return
	}
	sn.orders[order.ID] = order.Clone()
	sn.ordersHash = nil
	sn.lastUpdateTime = now
}

func removeOrder(sn *snapshot, orderID string, now time.Time) {
	delete(sn.orders, orderID)
	pruneTombstones(sn.completedOrders, now)
	sn.completedOrders[orderID] = now
	sn.ordersHash = nil
	sn.lastUpdateTime = now
}

func applySpecifications(sn *snapshot, updated []*schema.Specification, removedSymbols []string, now time.Time) {
	mutated := false
	for _, spec := range updated {
		if spec == nil || spec.Symbol == "" {
			continue
		}
		sn.specifications[spec.Symbol] = spec.Clone()
		mutated = true
	}
	for _, symbol := range removedSymbols {
		if _, ok := sn.specifications[symbol]; ok {
			delete(sn.specifications, symbol)
			mutated = true
		}
	}
	if mutated {
		sn.specificationsHash = nil
		sn.lastUpdateTime = now
	}
}

func pruneTombstones(tombstones map[string]time.Time, now time.Time) {
	for id, ts := range tombstones {
		if now.Sub(ts) > tombstoneRetention {
			delete(tombstones, id)
		}
	}
}
