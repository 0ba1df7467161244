package domain_test

import (
	"testing"

	"github.com/alejandrodnm/dcabot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEquity_Valid(t *testing.T) {
	eq, err := domain.NewEquity("AAPL", 5, 5)
	require.NoError(t, err)
	assert.Equal(t, "AAPL", eq.Symbol)
	assert.Equal(t, domain.StatusIdle, eq.Status)
	assert.False(t, eq.Active)
	assert.False(t, eq.HasOpenOrders())
}

func TestNewEquity_Invalid(t *testing.T) {
	_, err := domain.NewEquity("", 5, 5)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)

	_, err = domain.NewEquity("AAPL", 0, 5)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)

	_, err = domain.NewEquity("AAPL", 5, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)

	_, err = domain.NewEquity("AAPL", 5, 100)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestApplyFill_WeightedAverage(t *testing.T) {
	eq, err := domain.NewEquity("AAPL", 5, 5)
	require.NoError(t, err)

	require.True(t, eq.ApplyFill("ord-1", 1, 100))
	assert.InDelta(t, 1.0, eq.Position.Quantity, 1e-9)
	assert.InDelta(t, 100.0, eq.Position.AvgCost, 1e-9)

	require.True(t, eq.ApplyFill("ord-2", 1, 90))
	assert.InDelta(t, 2.0, eq.Position.Quantity, 1e-9)
	assert.InDelta(t, 95.0, eq.Position.AvgCost, 1e-9)

	require.True(t, eq.ApplyFill("ord-3", 2, 80))
	assert.InDelta(t, 4.0, eq.Position.Quantity, 1e-9)
	assert.InDelta(t, 87.5, eq.Position.AvgCost, 1e-9)
}

func TestApplyFill_Idempotent(t *testing.T) {
	eq, err := domain.NewEquity("AAPL", 5, 5)
	require.NoError(t, err)

	require.True(t, eq.ApplyFill("ord-1", 1, 100))
	// Replayed observations of the same order are no-ops.
	assert.False(t, eq.ApplyFill("ord-1", 1, 100))
	assert.False(t, eq.ApplyFill("ord-1", 3, 50))

	assert.InDelta(t, 1.0, eq.Position.Quantity, 1e-9)
	assert.InDelta(t, 100.0, eq.Position.AvgCost, 1e-9)
}

func TestApplyFill_ZeroQty(t *testing.T) {
	eq, err := domain.NewEquity("AAPL", 5, 5)
	require.NoError(t, err)
	assert.False(t, eq.ApplyFill("ord-1", 0, 100))
	assert.Zero(t, eq.Position.Quantity)
}

func TestResetCycle(t *testing.T) {
	eq, err := domain.NewEquity("AAPL", 2, 5)
	require.NoError(t, err)
	eq.Active = true
	eq.Status = domain.StatusActive
	eq.EntryPrice = 100
	eq.Ladder = []float64{95, 90}
	eq.EntryOrderID = "ord-0"
	eq.ArmLevel(1, "ord-1")
	eq.ApplyFill("ord-0", 1, 100)
	eq.LastError = "boom"

	eq.ResetCycle()

	assert.Equal(t, domain.StatusIdle, eq.Status)
	assert.Zero(t, eq.EntryPrice)
	assert.Nil(t, eq.Ladder)
	assert.False(t, eq.HasOpenOrders())
	assert.Empty(t, eq.LastError)
	// Position survives: deactivation does not sell.
	assert.InDelta(t, 1.0, eq.Position.Quantity, 1e-9)
}

func TestCheckRecord_Corrupt(t *testing.T) {
	eq := domain.Equity{Symbol: "AAPL", LevelCount: 0, DrawdownPct: 5}
	assert.ErrorIs(t, eq.CheckRecord(), domain.ErrCorruptState)

	eq = domain.Equity{Symbol: "AAPL", LevelCount: 2, DrawdownPct: 120}
	assert.ErrorIs(t, eq.CheckRecord(), domain.ErrCorruptState)

	// Ladder length must match the configured level count.
	eq = domain.Equity{Symbol: "AAPL", LevelCount: 3, DrawdownPct: 5, Ladder: []float64{95, 90}}
	assert.ErrorIs(t, eq.CheckRecord(), domain.ErrCorruptState)

	// Ladder must be strictly decreasing.
	eq = domain.Equity{Symbol: "AAPL", LevelCount: 2, DrawdownPct: 5, Ladder: []float64{90, 95}}
	assert.ErrorIs(t, eq.CheckRecord(), domain.ErrCorruptState)

	eq = domain.Equity{Symbol: "AAPL", LevelCount: 2, DrawdownPct: 5, Ladder: []float64{95, 90}}
	assert.NoError(t, eq.CheckRecord())
}

func TestClone_DeepCopy(t *testing.T) {
	eq, err := domain.NewEquity("AAPL", 2, 5)
	require.NoError(t, err)
	eq.Ladder = []float64{95, 90}
	eq.ArmLevel(1, "ord-1")
	eq.ApplyFill("ord-0", 1, 100)

	clone := eq.Clone()
	clone.Ladder[0] = 1
	clone.OpenOrders[2] = "ord-x"
	clone.AppliedOrders["other"] = true

	assert.Equal(t, 95.0, eq.Ladder[0])
	_, ok := eq.OpenOrders[2]
	assert.False(t, ok)
	assert.False(t, eq.AppliedOrders["other"])
}
