package storage_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alejandrodnm/dcabot/internal/adapters/storage"
	"github.com/alejandrodnm/dcabot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileRegistry_MissingFileIsEmpty(t *testing.T) {
	store := storage.NewFileRegistry(filepath.Join(t.TempDir(), "equities.json"))
	equities, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, equities)
}

func TestFileRegistry_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "equities.json")
	store := storage.NewFileRegistry(path)
	ctx := context.Background()

	aapl, err := domain.NewEquity("AAPL", 3, 5)
	require.NoError(t, err)
	aapl.Active = true
	aapl.Status = domain.StatusActive
	aapl.EntryPrice = 100
	aapl.Ladder = []float64{95, 90, 85}
	aapl.EntryOrderID = "ord-entry"
	aapl.ArmLevel(1, "ord-1")
	aapl.ArmLevel(3, "ord-3")
	aapl.ApplyFill("ord-2", 1, 90)
	aapl.AddedAt = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	msft, err := domain.NewEquity("MSFT", 2, 10)
	require.NoError(t, err)
	msft.AddedAt = time.Date(2026, 8, 2, 9, 30, 0, 0, time.UTC)

	want := []domain.Equity{aapl.Clone(), msft.Clone()}
	require.NoError(t, store.Save(ctx, want))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// A second save over the existing file still round-trips.
	want[0].Position.Quantity = 2
	require.NoError(t, store.Save(ctx, want))
	got, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestFileRegistry_CorruptRecordForcedIdle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "equities.json")
	store := storage.NewFileRegistry(path)
	ctx := context.Background()

	good, err := domain.NewEquity("AAPL", 3, 5)
	require.NoError(t, err)
	bad := domain.Equity{
		Symbol:      "MSFT",
		LevelCount:  3,
		DrawdownPct: 5,
		Active:      true,
		Status:      domain.StatusActive,
		Ladder:      []float64{90, 95, 85}, // not decreasing
	}
	require.NoError(t, store.Save(ctx, []domain.Equity{good.Clone(), bad}))

	got, err := store.Load(ctx)
	assert.ErrorIs(t, err, domain.ErrCorruptState)
	require.Len(t, got, 2)

	assert.Equal(t, domain.StatusIdle, got[0].Status)
	assert.Empty(t, got[0].LastError)

	assert.False(t, got[1].Active)
	assert.Equal(t, domain.StatusIdle, got[1].Status)
	assert.NotEmpty(t, got[1].LastError)
}

func TestFileRegistry_UnparseableFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "equities.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	store := storage.NewFileRegistry(path)
	_, err := store.Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrCorruptState)
}

func TestFileRegistry_SaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store := storage.NewFileRegistry(filepath.Join(dir, "equities.json"))

	eq, err := domain.NewEquity("AAPL", 3, 5)
	require.NoError(t, err)
	require.NoError(t, store.Save(context.Background(), []domain.Equity{eq.Clone()}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "equities.json", entries[0].Name())
}
