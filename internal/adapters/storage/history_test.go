package storage_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alejandrodnm/dcabot/internal/adapters/storage"
	"github.com/alejandrodnm/dcabot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHistory(t *testing.T) *storage.SQLiteHistory {
	t.Helper()
	h, err := storage.NewSQLiteHistory(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { h.Close() })
	return h
}

func TestSQLiteHistory_RecordFillIdempotent(t *testing.T) {
	h := newTestHistory(t)
	ctx := context.Background()

	fill := domain.Fill{
		OrderID:  "ord-1",
		Symbol:   "AAPL",
		Level:    1,
		Qty:      1,
		Price:    95,
		FilledAt: time.Date(2026, 8, 20, 14, 30, 0, 0, time.UTC),
	}
	require.NoError(t, h.RecordFill(ctx, fill))
	// Recording the same order again must not add a second row.
	require.NoError(t, h.RecordFill(ctx, fill))

	fills, err := h.RecentFills(ctx, 10)
	require.NoError(t, err)
	require.Len(t, fills, 1)
	assert.Equal(t, "ord-1", fills[0].OrderID)
	assert.Equal(t, "AAPL", fills[0].Symbol)
	assert.Equal(t, 1, fills[0].Level)
	assert.InDelta(t, 95.0, fills[0].Price, 1e-9)
}

func TestSQLiteHistory_RecentFillsOrderAndLimit(t *testing.T) {
	h := newTestHistory(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, h.RecordFill(ctx, domain.Fill{
			OrderID:  string(rune('a' + i)),
			Symbol:   "AAPL",
			Level:    i + 1,
			Qty:      1,
			Price:    100 - float64(i),
			FilledAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	fills, err := h.RecentFills(ctx, 3)
	require.NoError(t, err)
	require.Len(t, fills, 3)
	// Newest first.
	assert.Equal(t, "e", fills[0].OrderID)
	assert.Equal(t, "d", fills[1].OrderID)
	assert.Equal(t, "c", fills[2].OrderID)
}

func TestSQLiteHistory_RecordTick(t *testing.T) {
	h := newTestHistory(t)
	ctx := context.Background()

	sum := domain.TickSummary{
		At:           time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC),
		ActiveCount:  2,
		OrdersPlaced: 4,
		FillsApplied: 1,
		Duration:     120 * time.Millisecond,
	}
	require.NoError(t, h.RecordTick(ctx, sum))
	require.NoError(t, h.RecordTick(ctx, sum))
}

func TestSQLiteHistory_ReopenKeepsRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	ctx := context.Background()

	h, err := storage.NewSQLiteHistory(path)
	require.NoError(t, err)
	require.NoError(t, h.RecordFill(ctx, domain.Fill{
		OrderID: "ord-1", Symbol: "AAPL", Level: 1, Qty: 1, Price: 95,
		FilledAt: time.Now().UTC(),
	}))
	require.NoError(t, h.Close())

	h, err = storage.NewSQLiteHistory(path)
	require.NoError(t, err)
	defer h.Close()

	fills, err := h.RecentFills(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, fills, 1)
}
