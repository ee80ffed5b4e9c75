package terminal

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quantrelay/termsync/internal/hashing"
	"github.com/quantrelay/termsync/internal/schema"
)

type failingFieldsProvider struct {
	err error
}

func (p failingFieldsProvider) IgnoredFields(context.Context) (hashing.IgnoredFields, error) {
	return hashing.IgnoredFields{}, p.err
}

func newHashTestState(digestCalls *int) (*State, *fakeClock) {
	clock := newFakeClock()
	engine := hashing.NewEngine(hashing.WithDigest(func(data []byte) string {
		*digestCalls++
		sum := 0
		for _, b := range data {
			sum += int(b)
		}
		return string(rune('a'+sum%26)) + string(rune('a'+len(data)%26))
	}))
	state := NewState("account-1", nil, WithClock(clock.Now), WithHashEngine(engine))
	return state, clock
}

func TestGetHashesCachedUntilMutation(t *testing.T) {
	digestCalls := 0
	state, clock := newHashTestState(&digestCalls)
	fullSync(state, clock, "1:hostA",
		[]*schema.Position{{ID: "1", Symbol: "EURUSD", Side: schema.PositionSideBuy}},
		[]*schema.Order{{ID: "2", Symbol: "EURUSD", Type: schema.OrderTypeBuyLimit}},
		[]*schema.Specification{{Symbol: "EURUSD", TickSize: 0.00001, Digits: 5}},
	)

	first, err := state.GetHashes(context.Background(), hashing.AccountTypeG2, "1:hostA")
	require.NoError(t, err)
	require.NotNil(t, first.Specifications)
	require.NotNil(t, first.Positions)
	require.NotNil(t, first.Orders)
	require.Equal(t, 3, digestCalls)

	second, err := state.GetHashes(context.Background(), hashing.AccountTypeG2, "1:hostA")
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 3, digestCalls, "no recomputation without mutation")

	state.OnPositionUpdated("1:hostA", &schema.Position{ID: "1", Symbol: "EURUSD", Volume: 2})

	third, err := state.GetHashes(context.Background(), hashing.AccountTypeG2, "1:hostA")
	require.NoError(t, err)
	require.Equal(t, 4, digestCalls, "only the mutated dataset is recomputed")
	require.Equal(t, first.Specifications, third.Specifications)
	require.Equal(t, first.Orders, third.Orders)
}

func TestGetHashesGatedBySyncProgress(t *testing.T) {
	digestCalls := 0
	state, _ := newHashTestState(&digestCalls)

	state.OnSynchronizationStarted("1:hostA", true, true, true, "s1")
	state.OnSymbolSpecificationsUpdated("1:hostA",
		[]*schema.Specification{{Symbol: "EURUSD", TickSize: 0.00001, Digits: 5}}, nil)
	state.OnPositionsReplaced("1:hostA", []*schema.Position{{ID: "1", Symbol: "EURUSD"}})

	hashes, err := state.GetHashes(context.Background(), hashing.AccountTypeG1, "1:hostA")
	require.NoError(t, err)
	require.NotNil(t, hashes.Specifications)
	require.Nil(t, hashes.Positions, "positions not hashed before positionsInitialized")
	require.Nil(t, hashes.Orders, "orders not hashed before ordersInitialized")

	state.OnPositionsSynchronized("1:hostA", "s1")
	hashes, err = state.GetHashes(context.Background(), hashing.AccountTypeG1, "1:hostA")
	require.NoError(t, err)
	require.NotNil(t, hashes.Positions)
	require.Nil(t, hashes.Orders)
}

func TestGetHashesEmptySlot(t *testing.T) {
	state, _ := newTestState()

	hashes, err := state.GetHashes(context.Background(), hashing.AccountTypeG2, "7:unknown")
	require.NoError(t, err)
	require.Nil(t, hashes.Specifications)
	require.Nil(t, hashes.Positions)
	require.Nil(t, hashes.Orders)
}

func TestGetHashesUsesFreshestSibling(t *testing.T) {
	digestCalls := 0
	state, clock := newHashTestState(&digestCalls)

	fullSync(state, clock, "1:old-host",
		[]*schema.Position{{ID: "1", Symbol: "EURUSD"}}, nil, nil)
	clock.Advance(1)
	// migration: same slot reconnects on a new host and syncs fresher data
	state.OnConnected("1:new-host", 1)
	fullSync(state, clock, "1:new-host",
		[]*schema.Position{{ID: "1", Symbol: "EURUSD"}, {ID: "2", Symbol: "GBPUSD"}}, nil, nil)

	hashes, err := state.GetHashes(context.Background(), hashing.AccountTypeG2, "1:old-host")
	require.NoError(t, err)
	require.NotNil(t, hashes.Positions)

	snapNew, ok := state.store.get("1:new-host")
	require.True(t, ok)
	require.NotNil(t, snapNew.positionsHash, "digest cached on the freshest sibling, not the requested one")
}

func TestGetHashesPropagatesDescriptorFetchError(t *testing.T) {
	fetchErr := errors.New("descriptor endpoint down")
	state := NewState("account-1", failingFieldsProvider{err: fetchErr})

	_, err := state.GetHashes(context.Background(), hashing.AccountTypeG1, "1:hostA")
	require.ErrorIs(t, err, fetchErr)
}

func TestGetHashesHonoursIgnoredFieldDescriptor(t *testing.T) {
	provider := hashing.StaticProvider{Fields: hashing.IgnoredFields{
		G2: hashing.FieldLists{Position: []string{"volume"}},
	}}
	clock := newFakeClock()
	state := NewState("account-1", provider, WithClock(clock.Now))
	fullSync(state, clock, "1:hostA",
		[]*schema.Position{{ID: "1", Symbol: "EURUSD", Volume: 1}}, nil, nil)

	before, err := state.GetHashes(context.Background(), hashing.AccountTypeG2, "1:hostA")
	require.NoError(t, err)

	// mutating only the excluded field still invalidates the cache, but the
	// recomputed digest is identical because volume is stripped
	state.OnPositionUpdated("1:hostA", &schema.Position{ID: "1", Symbol: "EURUSD", Volume: 2})
	after, err := state.GetHashes(context.Background(), hashing.AccountTypeG2, "1:hostA")
	require.NoError(t, err)
	require.Equal(t, *before.Positions, *after.Positions)
}
