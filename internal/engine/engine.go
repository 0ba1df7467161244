package engine

// engine.go — the periodic reconciliation loop.
//
// One dedicated worker drives every active equity: poll broker state, apply
// fills, arm and disarm ladder orders, advance the per-equity state machine.
// Ticks never overlap: the loop is a sequential select on a ticker, so a
// slow tick defers the next one instead of racing it.

import (
	"context"
	"log/slog"
	"time"

	"github.com/alejandrodnm/dcabot/internal/domain"
	"github.com/alejandrodnm/dcabot/internal/ports"
)

// Config controls the loop.
type Config struct {
	// Interval between reconciliation ticks.
	Interval time.Duration
	// OrderQty is the share quantity of every order, entry and level alike.
	OrderQty float64
	// EquityBudget bounds the gateway calls spent on one equity per tick,
	// so a stalled broker call cannot starve the other equities.
	EquityBudget time.Duration
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		Interval:     5 * time.Second,
		OrderQty:     1,
		EquityBudget: 15 * time.Second,
	}
}

// Engine is the reconciliation loop with its injected collaborators.
type Engine struct {
	cfg      Config
	gateway  ports.OrderGateway
	registry *Registry
	history  ports.FillHistory
	notifier ports.Notifier
}

// New creates an Engine. history and notifier may be nil.
func New(cfg Config, gateway ports.OrderGateway, registry *Registry, history ports.FillHistory, notifier ports.Notifier) *Engine {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Second
	}
	if cfg.OrderQty <= 0 {
		cfg.OrderQty = 1
	}
	if cfg.EquityBudget <= 0 {
		cfg.EquityBudget = 15 * time.Second
	}
	return &Engine{
		cfg:      cfg,
		gateway:  gateway,
		registry: registry,
		history:  history,
		notifier: notifier,
	}
}

// Registry exposes the control surface for the interface layer.
func (e *Engine) Registry() *Registry { return e.registry }

// Run executes the loop until the context is cancelled, then flushes the
// registry one last time.
func (e *Engine) Run(ctx context.Context) error {
	slog.Info("engine starting", "interval", e.cfg.Interval, "order_qty", e.cfg.OrderQty)

	e.RunOnce(ctx)

	ticker := time.NewTicker(e.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.finalFlush()
			slog.Info("engine stopped")
			return nil
		case <-ticker.C:
			e.RunOnce(ctx)
		}
	}
}

// RunOnce executes exactly one reconciliation tick over all equities and
// returns its summary. The registry lock is held for the whole tick.
func (e *Engine) RunOnce(ctx context.Context) domain.TickSummary {
	start := time.Now()
	sum := domain.TickSummary{At: start.UTC()}

	e.registry.mu.Lock()
	for _, sym := range e.registry.symbolsLocked() {
		if ctx.Err() != nil {
			break
		}
		eq := e.registry.equities[sym]

		res := e.reconcile(ctx, eq)
		sum.OrdersPlaced += res.ordersPlaced
		sum.FillsApplied += res.fillsApplied
		sum.OrdersCancel += res.cancels
		if res.errored {
			sum.EquitiesError++
		}
		if res.mutated {
			e.registry.persistLocked(ctx)
		}
	}
	active := 0
	for _, eq := range e.registry.equities {
		if eq.Active {
			active++
		}
	}
	equities := e.registry.snapshotLocked()
	e.registry.mu.Unlock()

	sum.ActiveCount = active
	sum.Duration = time.Since(start)

	mtxTicks.Inc()
	mtxActiveEquities.Set(float64(active))

	if e.history != nil {
		if err := e.history.RecordTick(ctx, sum); err != nil {
			slog.Warn("engine: record tick failed", "err", err)
		}
	}
	if e.notifier != nil {
		if err := e.notifier.Notify(ctx, equities, sum); err != nil {
			slog.Warn("engine: notifier error", "err", err)
		}
	}

	slog.Debug("tick complete",
		"active", active,
		"orders", sum.OrdersPlaced,
		"fills", sum.FillsApplied,
		"cancels", sum.OrdersCancel,
		"duration", sum.Duration.Round(time.Millisecond),
	)
	return sum
}

// Portfolio builds the {symbol, quantity, avgCost, lastPrice} snapshot
// consumed by the console and the assistant. Quote failures degrade to a
// zero last price instead of failing the whole snapshot.
func (e *Engine) Portfolio(ctx context.Context) []domain.PortfolioEntry {
	var out []domain.PortfolioEntry
	for _, eq := range e.registry.Snapshot() {
		if eq.Position.Quantity <= 0 {
			continue
		}
		last, err := e.gateway.GetLastPrice(ctx, eq.Symbol)
		if err != nil {
			slog.Debug("portfolio: quote failed", "symbol", eq.Symbol, "err", err)
		}
		out = append(out, domain.PortfolioEntry{
			Symbol:    eq.Symbol,
			Quantity:  eq.Position.Quantity,
			AvgCost:   eq.Position.AvgCost,
			LastPrice: last,
		})
	}
	return out
}

// finalFlush persists the registry on shutdown, best effort.
func (e *Engine) finalFlush() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	e.registry.mu.Lock()
	e.registry.persistLocked(ctx)
	e.registry.mu.Unlock()
}
