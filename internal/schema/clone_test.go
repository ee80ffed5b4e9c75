package schema

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPositionCloneIsIndependent(t *testing.T) {
	realized := 1.25
	original := &Position{
		ID:             "46214692",
		Side:           PositionSideBuy,
		Symbol:         "EURUSD",
		Magic:          1000,
		Time:           time.Date(2026, 4, 15, 2, 45, 6, 0, time.UTC),
		OpenPrice:      1.26101,
		Volume:         0.07,
		Profit:         -85.25,
		RealizedProfit: &realized,
	}

	clone := original.Clone()
	require.Equal(t, original, clone)

	clone.Profit = 12
	*clone.RealizedProfit = 99
	require.Equal(t, -85.25, original.Profit)
	require.Equal(t, 1.25, *original.RealizedProfit)
}

func TestClonePositionsPreservesNil(t *testing.T) {
	require.Nil(t, ClonePositions(nil))

	positions := []*Position{{ID: "1"}, {ID: "2"}}
	clones := ClonePositions(positions)
	require.Len(t, clones, 2)
	require.NotSame(t, positions[0], clones[0])
}

func TestOrderTypeIsBuy(t *testing.T) {
	require.True(t, OrderTypeBuyLimit.IsBuy())
	require.True(t, OrderTypeBuyStop.IsBuy())
	require.True(t, OrderTypeBuyStopLimit.IsBuy())
	require.False(t, OrderTypeSellLimit.IsBuy())
	require.False(t, OrderTypeSellStopLimit.IsBuy())
}

func TestPositionSideSign(t *testing.T) {
	require.Equal(t, float64(1), PositionSideBuy.Sign())
	require.Equal(t, float64(-1), PositionSideSell.Sign())
}

func TestAccountInformationCloneNil(t *testing.T) {
	var info *AccountInformation
	require.Nil(t, info.Clone())

	info = &AccountInformation{Platform: "mt5", Balance: 10000}
	clone := info.Clone()
	clone.Balance = 1
	require.Equal(t, float64(10000), info.Balance)
}
