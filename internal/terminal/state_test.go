package terminal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/quantrelay/termsync/internal/schema"
)

func TestTombstoneSurvivesReordering(t *testing.T) {
	state, clock := newTestState()
	fullSync(state, clock, "1:hostA",
		[]*schema.Position{{ID: "p1", Symbol: "EURUSD", Side: schema.PositionSideBuy}},
		nil, nil,
	)

	state.OnPositionRemoved("1:hostA", "p1")
	// stale update arriving after the removal must not resurrect the position
	state.OnPositionUpdated("1:hostA", &schema.Position{ID: "p1", Symbol: "EURUSD"})

	require.Empty(t, state.Positions())
	snap, _ := state.store.get("1:hostA")
	require.Empty(t, snap.positions)
}

func TestTombstoneExpiresAfterRetention(t *testing.T) {
	state, clock := newTestState()
	fullSync(state, clock, "1:hostA",
		[]*schema.Position{
			{ID: "p1", Symbol: "EURUSD"},
			{ID: "p2", Symbol: "EURUSD"},
		},
		nil, nil,
	)

	state.OnPositionRemoved("1:hostA", "p1")
	clock.Advance(tombstoneRetention + time.Minute)
	// the next removal for the dataset prunes the stale tombstone
	state.OnPositionRemoved("1:hostA", "p2")

	state.OnPositionUpdated("1:hostA", &schema.Position{ID: "p1", Symbol: "EURUSD"})
	require.Len(t, state.Positions(), 1, "expired tombstone no longer blocks the add")

	state.OnPendingOrderUpdated("1:hostA", &schema.Order{ID: "p2"})
	require.Len(t, state.Orders(), 1, "order tombstones are tracked per dataset")
}

func TestCompletedOrderTombstoneBlocksLateUpdate(t *testing.T) {
	state, clock := newTestState()
	fullSync(state, clock, "1:hostA", nil,
		[]*schema.Order{{ID: "o1", Symbol: "EURUSD", Type: schema.OrderTypeBuyLimit}},
		nil,
	)

	state.OnPendingOrderCompleted("1:hostA", "o1")
	state.OnPendingOrderUpdated("1:hostA", &schema.Order{ID: "o1", Symbol: "EURUSD"})

	require.Empty(t, state.Orders())
}

func TestPositionUpdateReachesCombinedAfterFullSync(t *testing.T) {
	state, clock := newTestState()
	fullSync(state, clock, "1:hostA", nil, nil, nil)

	state.OnPositionUpdated("1:hostA", &schema.Position{ID: "p9", Symbol: "GBPUSD", Volume: 0.5})

	positions := state.Positions()
	require.Len(t, positions, 1)
	require.Equal(t, "p9", positions[0].ID)
}

func TestSpecificationAddAndRemove(t *testing.T) {
	state, clock := newTestState()
	fullSync(state, clock, "1:hostA", nil, nil,
		[]*schema.Specification{{Symbol: "EURUSD", TickSize: 0.00001, Digits: 5}})

	require.NotNil(t, state.Specification("EURUSD"))
	require.Nil(t, state.Specification("XAUUSD"), "missing specification resolves to nil, not an error")

	state.OnSymbolSpecificationsUpdated("1:hostA",
		[]*schema.Specification{{Symbol: "XAUUSD", TickSize: 0.01, Digits: 2}},
		[]string{"EURUSD"},
	)

	require.Nil(t, state.Specification("EURUSD"))
	require.NotNil(t, state.Specification("XAUUSD"))
	require.Len(t, state.Specifications(), 1)
}

func TestReadAPIReturnsClones(t *testing.T) {
	state, clock := newTestState()
	fullSync(state, clock, "1:hostA",
		[]*schema.Position{{ID: "p1", Symbol: "EURUSD", Volume: 1}},
		nil,
		[]*schema.Specification{{Symbol: "EURUSD", TickSize: 0.00001, Digits: 5}},
	)

	state.Positions()[0].Volume = 99
	require.Equal(t, float64(1), state.Positions()[0].Volume)

	state.Specification("EURUSD").Digits = 0
	require.Equal(t, int64(5), state.Specification("EURUSD").Digits)

	info := state.AccountInformation()
	info.Balance = 0
	require.Equal(t, float64(1000), state.AccountInformation().Balance)
}

func TestMissingOptionalDataResolvesToNil(t *testing.T) {
	state, _ := newTestState()

	require.Nil(t, state.AccountInformation())
	require.Nil(t, state.Price("EURUSD"))
	require.Nil(t, state.Specification("EURUSD"))
	require.Empty(t, state.Positions())
	require.Empty(t, state.Orders())
	require.True(t, state.LastQuoteTime().IsZero())

	// defensive against partially-populated payloads
	state.OnPositionUpdated("1:hostA", nil)
	state.OnPositionUpdated("1:hostA", &schema.Position{})
	state.OnPendingOrderCompleted("1:hostA", "")
	state.OnAccountInformationUpdated("1:hostA", nil)
	require.Empty(t, state.Positions())
}

func TestLastQuoteTimeTracksNewestAcrossSymbols(t *testing.T) {
	state, clock := newTestState()
	fullSync(state, clock, "1:hostA", nil, nil, nil)

	first := clock.Now()
	state.OnSymbolPricesUpdated("1:hostA", []*schema.Price{
		{Symbol: "EURUSD", Time: first, BrokerTime: "2026-05-11 12:00:00.000", Bid: 1.1, Ask: 1.11},
	}, nil)
	clock.Advance(time.Second)
	second := clock.Now()
	state.OnSymbolPricesUpdated("1:hostA", []*schema.Price{
		{Symbol: "GBPUSD", Time: second, BrokerTime: "2026-05-11 12:00:01.000", Bid: 1.3, Ask: 1.31},
	}, nil)

	require.Equal(t, second, state.LastQuoteTime())
	require.Equal(t, "2026-05-11 12:00:01.000", state.LastQuoteBrokerTime())
}
