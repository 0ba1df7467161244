package ports

import (
	"context"

	"github.com/alejandrodnm/dcabot/internal/domain"
)

// RegistryStore is the durable load/save contract for the equity registry.
// The registry is the source of truth for desired state; it is loaded once
// at startup and rewritten in full on every mutation.
type RegistryStore interface {
	// Load reads every persisted equity record. Records failing invariant
	// checks are returned anyway (forced Idle, reason in LastError) together
	// with a domain.ErrCorruptState-wrapped error; the caller decides
	// whether to proceed.
	Load(ctx context.Context) ([]domain.Equity, error)

	// Save atomically rewrites the registry with the given records.
	// A crash mid-save must never leave a torn file.
	Save(ctx context.Context, equities []domain.Equity) error
}

// FillHistory is the append-only event log for fills and tick summaries.
// Best-effort: write failures are logged by callers, never fatal to the loop.
type FillHistory interface {
	// RecordFill appends one applied fill. Re-recording the same order ID
	// is a no-op.
	RecordFill(ctx context.Context, fill domain.Fill) error

	// RecordTick appends one reconciliation-cycle summary row.
	RecordTick(ctx context.Context, sum domain.TickSummary) error

	// RecentFills returns the newest fills, most recent first.
	RecentFills(ctx context.Context, limit int) ([]domain.Fill, error)

	// Close closes the underlying database cleanly.
	Close() error
}
