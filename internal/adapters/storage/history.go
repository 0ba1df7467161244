package storage

// history.go — append-only fill/tick event log on SQLite.
//
// Strategy:
//   - `fills`: one row per applied fill, keyed by order_id. The PRIMARY KEY
//     doubles as an idempotency backstop under the engine's applied-order set.
//   - `ticks`: one light summary row per reconciliation cycle.
//   - Prune on start: ticks > 30d, fills > 90d.

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alejandrodnm/dcabot/internal/domain"
	"github.com/alejandrodnm/dcabot/internal/ports"
	_ "modernc.org/sqlite"
)

const historySchema = `
CREATE TABLE IF NOT EXISTS fills (
    order_id  TEXT PRIMARY KEY,
    symbol    TEXT     NOT NULL,
    level     INTEGER  NOT NULL,
    qty       REAL     NOT NULL,
    price     REAL     NOT NULL,
    filled_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS ticks (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    at             DATETIME NOT NULL,
    active_count   INTEGER  NOT NULL DEFAULT 0,
    orders_placed  INTEGER  NOT NULL DEFAULT 0,
    fills_applied  INTEGER  NOT NULL DEFAULT 0,
    orders_cancel  INTEGER  NOT NULL DEFAULT 0,
    equities_error INTEGER  NOT NULL DEFAULT 0,
    duration_ms    INTEGER  NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_fills_at ON fills(filled_at DESC);
CREATE INDEX IF NOT EXISTS idx_ticks_at ON ticks(at DESC);
`

const (
	retentionTicks = 30 * 24 * time.Hour
	retentionFills = 90 * 24 * time.Hour
)

// SQLiteHistory implements ports.FillHistory using SQLite (pure Go, no CGo).
type SQLiteHistory struct {
	db *sql.DB
}

var _ ports.FillHistory = (*SQLiteHistory)(nil)

// NewSQLiteHistory opens (or creates) the database at the given path,
// applies the schema and prunes old rows.
func NewSQLiteHistory(path string) (*SQLiteHistory, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteHistory: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite is single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(historySchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteHistory: apply schema: %w", err)
	}

	h := &SQLiteHistory{db: db}
	h.pruneOld(context.Background())
	return h, nil
}

// RecordFill appends one applied fill. Conflicts on order_id are ignored:
// a fill is recorded at most once.
func (h *SQLiteHistory) RecordFill(ctx context.Context, fill domain.Fill) error {
	_, err := h.db.ExecContext(ctx,
		`INSERT INTO fills (order_id, symbol, level, qty, price, filled_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(order_id) DO NOTHING`,
		fill.OrderID, fill.Symbol, fill.Level, fill.Qty, fill.Price, fill.FilledAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("storage.RecordFill: %w", err)
	}
	return nil
}

// RecordTick appends one cycle summary row.
func (h *SQLiteHistory) RecordTick(ctx context.Context, sum domain.TickSummary) error {
	_, err := h.db.ExecContext(ctx,
		`INSERT INTO ticks (at, active_count, orders_placed, fills_applied,
		                    orders_cancel, equities_error, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sum.At.UTC(), sum.ActiveCount, sum.OrdersPlaced, sum.FillsApplied,
		sum.OrdersCancel, sum.EquitiesError, sum.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("storage.RecordTick: %w", err)
	}
	return nil
}

// RecentFills returns the newest fills, most recent first.
func (h *SQLiteHistory) RecentFills(ctx context.Context, limit int) ([]domain.Fill, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := h.db.QueryContext(ctx,
		`SELECT order_id, symbol, level, qty, price, filled_at
		 FROM fills ORDER BY filled_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("storage.RecentFills: %w", err)
	}
	defer rows.Close()

	var fills []domain.Fill
	for rows.Next() {
		var f domain.Fill
		if err := rows.Scan(&f.OrderID, &f.Symbol, &f.Level, &f.Qty, &f.Price, &f.FilledAt); err != nil {
			return nil, fmt.Errorf("storage.RecentFills: scan: %w", err)
		}
		fills = append(fills, f)
	}
	return fills, rows.Err()
}

// Close closes the database.
func (h *SQLiteHistory) Close() error { return h.db.Close() }

// pruneOld drops rows past retention. Failures are non-fatal.
func (h *SQLiteHistory) pruneOld(ctx context.Context) {
	now := time.Now().UTC()
	h.db.ExecContext(ctx, `DELETE FROM ticks WHERE at < ?`, now.Add(-retentionTicks))
	h.db.ExecContext(ctx, `DELETE FROM fills WHERE filled_at < ?`, now.Add(-retentionFills))
}
