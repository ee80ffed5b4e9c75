package hashing

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/quantrelay/termsync/internal/schema"
)

// captureEngine records the canonical bytes instead of digesting them so tests
// can assert on the exact serialization.
func captureEngine(out *string) *Engine {
	return NewEngine(WithDigest(func(data []byte) string {
		*out = string(data)
		return "digest"
	}))
}

func TestSpecificationsDigestG1KeepsTrailingZeros(t *testing.T) {
	var canonical string
	engine := captureEngine(&canonical)

	_, err := engine.SpecificationsDigest(AccountTypeG1, []*schema.Specification{
		{Symbol: "EURUSD", TickSize: 0.00001, Digits: 5, ContractSize: 100000},
	}, nil)
	require.NoError(t, err)

	require.Contains(t, canonical, `"tickSize":0.00001000`)
	require.Contains(t, canonical, `"contractSize":100000.00000000`)
	require.Contains(t, canonical, `"digits":5`)
	require.NotContains(t, canonical, " ")
}

func TestSpecificationsDigestG2StripsTrailingZeros(t *testing.T) {
	var canonical string
	engine := captureEngine(&canonical)

	_, err := engine.SpecificationsDigest(AccountTypeG2, []*schema.Specification{
		{Symbol: "EURUSD", TickSize: 0.00001, Digits: 5, ContractSize: 100000},
	}, nil)
	require.NoError(t, err)

	require.Contains(t, canonical, `"tickSize":0.00001`)
	require.Contains(t, canonical, `"contractSize":100000`)
	require.NotContains(t, canonical, `0.00001000`)
}

func TestSpecificationsSortedBySymbol(t *testing.T) {
	var canonical string
	engine := captureEngine(&canonical)

	_, err := engine.SpecificationsDigest(AccountTypeG2, []*schema.Specification{
		{Symbol: "GBPUSD"},
		{Symbol: "AUDUSD"},
		{Symbol: "EURUSD"},
	}, nil)
	require.NoError(t, err)

	aud := strings.Index(canonical, "AUDUSD")
	eur := strings.Index(canonical, "EURUSD")
	gbp := strings.Index(canonical, "GBPUSD")
	require.True(t, aud < eur && eur < gbp, "expected symbol order in %s", canonical)
}

func TestPositionsDigestOrderingPerGeneration(t *testing.T) {
	positions := []*schema.Position{
		{ID: "9"},
		{ID: "10"},
	}

	var g1Canonical string
	_, err := captureEngine(&g1Canonical).PositionsDigest(AccountTypeG1, positions, nil)
	require.NoError(t, err)
	require.Less(t, strings.Index(g1Canonical, `"id":"9"`), strings.Index(g1Canonical, `"id":"10"`),
		"g1 sorts ids numerically")

	var g2Canonical string
	_, err = captureEngine(&g2Canonical).PositionsDigest(AccountTypeG2, positions, nil)
	require.NoError(t, err)
	require.Less(t, strings.Index(g2Canonical, `"id":"10"`), strings.Index(g2Canonical, `"id":"9"`),
		"g2 sorts ids lexicographically")
}

func TestPositionsDigestStripsIgnoredFieldsButKeepsMagicInteger(t *testing.T) {
	var canonical string
	engine := captureEngine(&canonical)

	_, err := engine.PositionsDigest(AccountTypeG1, []*schema.Position{
		{
			ID:           "46214692",
			Side:         schema.PositionSideBuy,
			Symbol:       "GBPUSD",
			Magic:        1000,
			OpenPrice:    1.26101,
			Volume:       0.07,
			CurrentPrice: 1.24883,
		},
	}, []string{"currentPrice", "currentTickValue", "unrealizedProfit", "profit"})
	require.NoError(t, err)

	require.NotContains(t, canonical, "currentPrice")
	require.NotContains(t, canonical, "unrealizedProfit")
	require.Contains(t, canonical, `"magic":1000`)
	require.Contains(t, canonical, `"openPrice":1.26101000`)
	require.Contains(t, canonical, `"volume":0.07000000`)
}

func TestTimestampEncoding(t *testing.T) {
	var canonical string
	engine := captureEngine(&canonical)

	_, err := engine.OrdersDigest(AccountTypeG2, []*schema.Order{
		{
			ID:     "46871284",
			Type:   schema.OrderTypeBuyLimit,
			Symbol: "AUDNZD",
			Time:   time.Date(2020, 4, 20, 8, 38, 58, 270_000_000, time.UTC),
		},
	}, nil)
	require.NoError(t, err)

	require.Contains(t, canonical, `"time":"2020-04-20T08:38:58.270Z"`)
}

func TestDigestIsDeterministic(t *testing.T) {
	engine := NewEngine()
	specs := []*schema.Specification{
		{Symbol: "EURUSD", TickSize: 0.00001, Digits: 5, ContractSize: 100000},
		{Symbol: "GBPUSD", TickSize: 0.00001, Digits: 5, ContractSize: 100000},
	}

	first, err := engine.SpecificationsDigest(AccountTypeG1, specs, nil)
	require.NoError(t, err)
	second, err := engine.SpecificationsDigest(AccountTypeG1, specs, nil)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Len(t, first, 32)
}

func TestAccountTypeNormalize(t *testing.T) {
	require.Equal(t, AccountTypeG1, AccountType("cloud-g1").Normalize())
	require.Equal(t, AccountTypeG2, AccountType("cloud-g2").Normalize())
	require.Equal(t, AccountTypeG1, AccountTypeG1.Normalize())
	require.Equal(t, AccountTypeG2, AccountType("").Normalize())
}

func TestIgnoredFieldsFor(t *testing.T) {
	fields := IgnoredFields{
		G1: FieldLists{Position: []string{"updateSequenceNumber"}},
		G2: FieldLists{Position: []string{"comment"}},
	}
	require.Equal(t, []string{"updateSequenceNumber"}, fields.For(AccountTypeG1).Position)
	require.Equal(t, []string{"comment"}, fields.For(AccountType("cloud-g2")).Position)
}
