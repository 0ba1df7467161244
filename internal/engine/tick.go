package engine

// tick.go — per-equity reconciliation. Caller holds the registry lock.
//
// Failures are scoped to one equity: a fatal gateway error moves that equity
// to StatusError and the loop moves on; a transient one (already retried
// inside the gateway) leaves its state untouched and the next tick resumes
// from the first unrecorded step.

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/alejandrodnm/dcabot/internal/domain"
)

type reconcileResult struct {
	ordersPlaced int
	fillsApplied int
	cancels      int
	mutated      bool
	errored      bool
}

// reconcile advances one equity's state machine by one step set.
func (e *Engine) reconcile(ctx context.Context, eq *domain.Equity) reconcileResult {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.EquityBudget)
	defer cancel()

	switch {
	case eq.Status == domain.StatusError:
		// Terminal until the operator toggles. Never touched automatically.
		return reconcileResult{}
	case !eq.Active && (eq.Status == domain.StatusCanceling || eq.HasOpenOrders()):
		return e.deactivate(ctx, eq)
	case eq.Active && eq.Status == domain.StatusActivating:
		return e.activate(ctx, eq)
	case eq.Active && eq.Status == domain.StatusActive:
		return e.sync(ctx, eq)
	default:
		return reconcileResult{}
	}
}

// activate submits the entry order, computes the ladder and arms one GTC
// buy limit per level. Resumable: each step checks whether it already ran,
// so a failed tick retries from the first unrecorded step.
func (e *Engine) activate(ctx context.Context, eq *domain.Equity) (res reconcileResult) {
	// Step 1: entry market order, priced off the last trade. EntryPrice==0
	// is the "no entry recorded" marker for this activation cycle.
	if eq.EntryPrice == 0 {
		last, err := e.gateway.GetLastPrice(ctx, eq.Symbol)
		if err != nil {
			e.markFailure(eq, err, &res)
			return res
		}
		id, err := e.gateway.Submit(ctx, domain.OrderRequest{
			Symbol: eq.Symbol,
			Side:   domain.SideBuy,
			Qty:    e.cfg.OrderQty,
			TIF:    domain.TIFGTC,
		})
		if err != nil {
			e.markFailure(eq, err, &res)
			return res
		}
		eq.EntryPrice = last
		eq.EntryOrderID = id
		res.ordersPlaced++
		res.mutated = true
		mtxOrders.WithLabelValues("entry").Inc()
		slog.Info("entry order placed", "symbol", eq.Symbol, "order_id", id, "entry_price", last)
	}

	// Step 2: ladder, computed once per activation from the entry price.
	if eq.Ladder == nil {
		ladder, err := domain.ComputeLadder(eq.EntryPrice, eq.DrawdownPct, eq.LevelCount)
		if err != nil {
			// Config puts a level at or below zero for this entry price:
			// invalid configuration, surfaced before arming any level.
			eq.Status = domain.StatusError
			eq.LastError = err.Error()
			res.mutated = true
			res.errored = true
			slog.Error("ladder rejected", "symbol", eq.Symbol, "err", err)
			return res
		}
		eq.Ladder = ladder
		res.mutated = true
	}

	// Step 3: one GTC buy limit per level. Already-armed slots are skipped,
	// so a partial failure resumes where it stopped.
	for i, price := range eq.Ladder {
		level := i + 1
		if _, armed := eq.OpenOrders[level]; armed {
			continue
		}
		limit := price
		id, err := e.gateway.Submit(ctx, domain.OrderRequest{
			Symbol:     eq.Symbol,
			Side:       domain.SideBuy,
			Qty:        e.cfg.OrderQty,
			LimitPrice: &limit,
			TIF:        domain.TIFGTC,
		})
		if err != nil {
			e.markFailure(eq, err, &res)
			return res
		}
		eq.ArmLevel(level, id)
		res.ordersPlaced++
		res.mutated = true
		mtxOrders.WithLabelValues("level").Inc()
		slog.Info("level order placed",
			"symbol", eq.Symbol, "level", level, "price", price, "order_id", id)
	}

	eq.Status = domain.StatusActive
	eq.LastError = ""
	res.mutated = true
	return res
}

// sync reconciles recorded orders against the broker's open-order set.
// Orders no longer open are resolved one by one; fills fold into the
// position exactly once per order ID, and a level slot is never re-armed.
func (e *Engine) sync(ctx context.Context, eq *domain.Equity) (res reconcileResult) {
	open, err := e.gateway.ListOpenOrders(ctx, eq.Symbol)
	if err != nil {
		e.markFailure(eq, err, &res)
		return res
	}

	// Broker order IDs the local record does not know about are ignored:
	// manual broker-side intervention is not adopted.
	stillOpen := make(map[string]bool, len(open))
	for _, o := range open {
		stillOpen[o.ID] = true
	}

	// Entry order first: its fill seeds the position.
	if eq.EntryOrderID != "" && !stillOpen[eq.EntryOrderID] {
		st, err := e.gateway.GetOrder(ctx, eq.EntryOrderID)
		if err != nil {
			e.markFailure(eq, err, &res)
			return res
		}
		if st.State.Terminal() {
			if st.State == domain.OrderFilled {
				if eq.ApplyFill(eq.EntryOrderID, st.FilledQty, st.FilledAvgPrice) {
					res.fillsApplied++
					mtxFills.Inc()
					slog.Info("entry fill applied",
						"symbol", eq.Symbol, "qty", st.FilledQty, "price", st.FilledAvgPrice)
					e.recordFill(ctx, eq.Symbol, domain.EntryLevel, st)
				}
			} else {
				slog.Warn("entry order gone without fill",
					"symbol", eq.Symbol, "order_id", eq.EntryOrderID, "state", st.State)
			}
			eq.EntryOrderID = ""
			res.mutated = true
		}
	}

	levels := make([]int, 0, len(eq.OpenOrders))
	for level := range eq.OpenOrders {
		levels = append(levels, level)
	}
	sort.Ints(levels)

	for _, level := range levels {
		id := eq.OpenOrders[level]
		if stillOpen[id] {
			continue
		}

		st, err := e.gateway.GetOrder(ctx, id)
		if err != nil {
			e.markFailure(eq, err, &res)
			return res
		}

		switch st.State {
		case domain.OrderFilled:
			if eq.ApplyFill(id, st.FilledQty, st.FilledAvgPrice) {
				res.fillsApplied++
				mtxFills.Inc()
				slog.Info("fill applied",
					"symbol", eq.Symbol, "level", level,
					"qty", st.FilledQty, "price", st.FilledAvgPrice,
					"position_qty", eq.Position.Quantity,
					"avg_cost", eq.Position.AvgCost)
				e.recordFill(ctx, eq.Symbol, level, st)
			}
			eq.ClearLevel(level)
			res.mutated = true
		case domain.OrderCanceled, domain.OrderRejected:
			slog.Warn("order gone without fill",
				"symbol", eq.Symbol, "level", level, "order_id", id, "state", st.State)
			eq.ClearLevel(level)
			res.mutated = true
		default:
			// Submitted but missing from the open listing: listing lag.
			// Resolved on a later tick.
		}
	}

	eq.LastError = ""
	return res
}

// deactivate cancels every recorded non-terminal order, then clears the
// cycle state. Partial progress survives: uncancelled slots stay recorded
// and the next tick retries them.
func (e *Engine) deactivate(ctx context.Context, eq *domain.Equity) (res reconcileResult) {
	eq.Status = domain.StatusCanceling

	if eq.EntryOrderID != "" {
		if err := e.gateway.Cancel(ctx, eq.EntryOrderID); err != nil {
			e.markFailure(eq, err, &res)
			return res
		}
		eq.EntryOrderID = ""
		res.cancels++
		res.mutated = true
		mtxCancels.Inc()
	}

	levels := make([]int, 0, len(eq.OpenOrders))
	for level := range eq.OpenOrders {
		levels = append(levels, level)
	}
	sort.Ints(levels)

	for _, level := range levels {
		id := eq.OpenOrders[level]
		if err := e.gateway.Cancel(ctx, id); err != nil {
			e.markFailure(eq, err, &res)
			return res
		}
		eq.ClearLevel(level)
		res.cancels++
		res.mutated = true
		mtxCancels.Inc()
		slog.Info("order canceled", "symbol", eq.Symbol, "level", level, "order_id", id)
	}

	eq.ResetCycle()
	res.mutated = true
	slog.Info("equity deactivated", "symbol", eq.Symbol)
	return res
}

// markFailure applies the error taxonomy: fatal errors park the equity in
// StatusError until operator acknowledgement; transient ones only record
// the reason and leave the state for the next tick.
func (e *Engine) markFailure(eq *domain.Equity, err error, res *reconcileResult) {
	eq.LastError = err.Error()
	res.mutated = true
	if domain.IsFatal(err) {
		eq.Status = domain.StatusError
		res.errored = true
		mtxGatewayErrors.WithLabelValues("fatal").Inc()
		slog.Error("equity errored", "symbol", eq.Symbol, "err", err)
		return
	}
	mtxGatewayErrors.WithLabelValues("transient").Inc()
	slog.Warn("equity deferred to next tick", "symbol", eq.Symbol, "err", err)
}

// recordFill appends the fill to the history log, best effort.
func (e *Engine) recordFill(ctx context.Context, symbol string, level int, st domain.OrderStatus) {
	if e.history == nil {
		return
	}
	err := e.history.RecordFill(ctx, domain.Fill{
		OrderID:  st.ID,
		Symbol:   symbol,
		Level:    level,
		Qty:      st.FilledQty,
		Price:    st.FilledAvgPrice,
		FilledAt: time.Now().UTC(),
	})
	if err != nil {
		slog.Warn("engine: record fill failed", "err", err)
	}
}
