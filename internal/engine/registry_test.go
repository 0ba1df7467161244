package engine_test

import (
	"context"
	"testing"

	"github.com/alejandrodnm/dcabot/internal/domain"
	"github.com/alejandrodnm/dcabot/internal/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_AddDuplicate(t *testing.T) {
	reg := engine.NewRegistry(nil)
	ctx := context.Background()

	eq, err := reg.Add(ctx, "AAPL", 3, 5)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusIdle, eq.Status)

	_, err = reg.Add(ctx, "AAPL", 5, 2)
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
}

func TestRegistry_AddInvalid(t *testing.T) {
	reg := engine.NewRegistry(nil)
	_, err := reg.Add(context.Background(), "AAPL", 3, 150)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestRegistry_ToggleTransitions(t *testing.T) {
	reg := engine.NewRegistry(nil)
	ctx := context.Background()

	_, err := reg.Add(ctx, "AAPL", 3, 5)
	require.NoError(t, err)

	st, err := reg.Toggle(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActivating, st)

	st, err = reg.Toggle(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCanceling, st)

	// A third toggle re-requests activation.
	st, err = reg.Toggle(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActivating, st)

	_, err = reg.Toggle(ctx, "MSFT")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRegistry_RemoveGuards(t *testing.T) {
	reg := engine.NewRegistry(nil)
	ctx := context.Background()

	_, err := reg.Add(ctx, "AAPL", 3, 5)
	require.NoError(t, err)

	_, err = reg.Toggle(ctx, "AAPL")
	require.NoError(t, err)

	err = reg.Remove(ctx, "AAPL")
	assert.ErrorIs(t, err, domain.ErrHasOpenOrders)

	_, err = reg.Toggle(ctx, "AAPL")
	require.NoError(t, err)

	// Canceling but no recorded orders: removable once inactive.
	require.NoError(t, reg.Remove(ctx, "AAPL"))

	err = reg.Remove(ctx, "AAPL")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRegistry_SnapshotIsCopy(t *testing.T) {
	reg := engine.NewRegistry(nil)
	ctx := context.Background()

	_, err := reg.Add(ctx, "MSFT", 3, 5)
	require.NoError(t, err)
	_, err = reg.Add(ctx, "AAPL", 3, 5)
	require.NoError(t, err)

	snap := reg.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "AAPL", snap[0].Symbol)
	assert.Equal(t, "MSFT", snap[1].Symbol)

	// Mutating the snapshot must not leak into the registry.
	snap[0].Status = domain.StatusError
	snap[0].ArmLevel(1, "ord-x")

	again := reg.Snapshot()
	assert.Equal(t, domain.StatusIdle, again[0].Status)
	assert.False(t, again[0].HasOpenOrders())
}
