package terminal

import (
	"sync"
	"time"

	"github.com/quantrelay/termsync/internal/hashing"
	"github.com/quantrelay/termsync/internal/observability"
	"github.com/quantrelay/termsync/internal/telemetry"
)

// State is the synchronization engine for one trading account. It ingests the
// per-instance event feed, reconciles redundant connections into a single
// combined view, and serves the read API.
//
// All handlers execute atomically under one per-account mutex; the lock is
// never shared across accounts so accounts stay independently parallel.
type State struct {
	mu sync.Mutex

	accountID string
	clock     func() time.Time
	log       observability.Logger
	metrics   *telemetry.EngineMetrics
	hash      *hashing.Engine
	fields    hashing.Provider

	store    *store
	combined *snapshot
	waiters  map[string][]*priceWaiter
}

// Option configures a State.
type Option func(*State)

// WithClock overrides the time source, primarily for testing.
func WithClock(clock func() time.Time) Option {
	return func(s *State) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithLogger sets the logger used by the engine.
func WithLogger(log observability.Logger) Option {
	return func(s *State) {
		if log != nil {
			s.log = log
		}
	}
}

// WithMetrics attaches engine instruments.
func WithMetrics(metrics *telemetry.EngineMetrics) Option {
	return func(s *State) {
		s.metrics = metrics
	}
}

// WithHashEngine overrides the digest engine.
func WithHashEngine(engine *hashing.Engine) Option {
	return func(s *State) {
		if engine != nil {
			s.hash = engine
		}
	}
}

// NewState constructs the engine for one trading account. fields supplies the
// hashing field-exclusion descriptor; nil falls back to empty exclusion lists.
func NewState(accountID string, fields hashing.Provider, opts ...Option) *State {
	s := &State{
		accountID: accountID,
		clock:     time.Now,
		log:       observability.Log(),
		hash:      hashing.NewEngine(),
		fields:    fields,
		store:     newStore(),
		combined:  newSnapshot("combined"),
		waiters:   make(map[string][]*priceWaiter),
	}
	if s.fields == nil {
		s.fields = hashing.StaticProvider{}
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// OnConnected marks an instance as connected to the gateway.
func (s *State) OnConnected(instanceIndex string, replicas int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.store.getOrCreate(instanceIndex)
	snap.connected = true
	snap.lastUpdateTime = s.clock()
	s.metrics.EventApplied("connected")
	s.log.Debug("instance connected",
		observability.Field{Key: "account", Value: s.accountID},
		observability.Field{Key: "instance", Value: instanceIndex},
		observability.Field{Key: "replicas", Value: replicas},
	)
}

// OnDisconnected marks an instance as disconnected. The snapshot is retained
// as a stale-but-useful cache.
func (s *State) OnDisconnected(instanceIndex string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.store.get(instanceIndex)
	if !ok {
		return
	}
	snap.connected = false
	snap.connectedToBroker = false
	snap.lastUpdateTime = s.clock()
	s.metrics.EventApplied("disconnected")
	s.log.Debug("instance disconnected",
		observability.Field{Key: "account", Value: s.accountID},
		observability.Field{Key: "instance", Value: instanceIndex},
	)
}

// OnBrokerConnectionStatusChanged records the terminal-to-broker link state.
func (s *State) OnBrokerConnectionStatusChanged(instanceIndex string, connected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.store.getOrCreate(instanceIndex)
	snap.connectedToBroker = connected
	snap.lastUpdateTime = s.clock()
	s.metrics.EventApplied("broker_status")
}

// OnSynchronizationStarted begins a (possibly partial) resynchronization for
// an instance. Among the slot's other incomplete attempts only the freshest
// survives alongside the one starting now, bounding memory to roughly two
// live attempts per instance number.
func (s *State) OnSynchronizationStarted(instanceIndex string, specificationsUpdated, positionsUpdated, ordersUpdated bool, synchronizationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock()
	number := instanceNumberOf(instanceIndex)

	var incomplete []*snapshot
	for _, sib := range s.store.siblings(number, instanceIndex) {
		if !sib.ordersInitialized {
			incomplete = append(incomplete, sib)
		}
	}
	if len(incomplete) > 1 {
		// Ties on lastSyncUpdateTime break by index so the survivor does
		// not depend on map iteration order.
		freshest := incomplete[0]
		for _, sib := range incomplete[1:] {
			if sib.lastSyncUpdateTime.After(freshest.lastSyncUpdateTime) ||
				(sib.lastSyncUpdateTime.Equal(freshest.lastSyncUpdateTime) && sib.index > freshest.index) {
				freshest = sib
			}
		}
		pruned := 0
		for _, sib := range incomplete {
			if sib != freshest {
				s.store.delete(sib.index)
				pruned++
			}
		}
		s.metrics.SnapshotsPruned(pruned)
	}

	snap := s.store.getOrCreate(instanceIndex)
	snap.lastSyncUpdateTime = now
	snap.lastUpdateTime = now
	if specificationsUpdated {
		snap.resetSpecifications()
	}
	if positionsUpdated {
		snap.resetPositions()
	}
	if ordersUpdated {
		snap.resetOrders()
	}
	s.metrics.EventApplied("synchronization_started")
	s.log.Info("synchronization started",
		observability.Field{Key: "account", Value: s.accountID},
		observability.Field{Key: "instance", Value: instanceIndex},
		observability.Field{Key: "syncId", Value: synchronizationID},
		observability.Field{Key: "specifications", Value: specificationsUpdated},
		observability.Field{Key: "positions", Value: positionsUpdated},
		observability.Field{Key: "orders", Value: ordersUpdated},
	)
}

// OnPositionsSynchronized marks the position dataset as fully downloaded.
func (s *State) OnPositionsSynchronized(instanceIndex, synchronizationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.store.getOrCreate(instanceIndex)
	snap.positionsInitialized = true
	snap.removedPositions = make(map[string]time.Time)
	snap.lastUpdateTime = s.clock()
	s.metrics.EventApplied("positions_synchronized")
}

// OnPendingOrdersSynchronized completes a full sync: the combined view is
// replaced wholesale from this instance's snapshot and disconnected siblings
// of the slot are discarded.
func (s *State) OnPendingOrdersSynchronized(instanceIndex, synchronizationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.store.getOrCreate(instanceIndex)
	snap.ordersInitialized = true
	snap.positionsInitialized = true
	snap.completedOrders = make(map[string]time.Time)
	snap.ordersHash = nil
	snap.lastUpdateTime = s.clock()

	s.combined = snap.cloneAsCombined()

	pruned := 0
	for _, sib := range s.store.siblings(snap.instanceNumber, instanceIndex) {
		if !sib.connected {
			s.store.delete(sib.index)
			pruned++
		}
	}
	s.metrics.SnapshotsPruned(pruned)
	s.metrics.SyncCompleted()
	s.metrics.EventApplied("orders_synchronized")

	for symbol := range s.combined.prices {
		s.fulfillWaiters(symbol)
	}

	s.log.Info("full synchronization completed",
		observability.Field{Key: "account", Value: s.accountID},
		observability.Field{Key: "instance", Value: instanceIndex},
		observability.Field{Key: "syncId", Value: synchronizationID},
		observability.Field{Key: "positions", Value: len(s.combined.positions)},
		observability.Field{Key: "orders", Value: len(s.combined.orders)},
	)
}

// OnStreamClosed applies the retention rules for a closed stream: the
// snapshot is dropped when a sibling supersedes it, and kept as a best-effort
// cache when it holds the only complete copy of the data.
func (s *State) OnStreamClosed(instanceIndex string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.store.get(instanceIndex)
	if !ok {
		return
	}
	siblings := s.store.siblings(snap.instanceNumber, instanceIndex)

	if !snap.ordersInitialized {
		for _, sib := range siblings {
			if !snap.lastSyncUpdateTime.After(sib.lastSyncUpdateTime) {
				s.store.delete(instanceIndex)
				s.metrics.SnapshotsPruned(1)
				return
			}
		}
	}
	for _, sib := range siblings {
		if sib.connected && sib.ordersInitialized {
			s.store.delete(instanceIndex)
			s.metrics.SnapshotsPruned(1)
			return
		}
	}
	s.metrics.EventApplied("stream_closed")
}
