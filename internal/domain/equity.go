package domain

import (
	"fmt"
	"time"
)

// Status is the per-equity state machine position.
//
//	Idle --toggle--> Activating --(orders armed)--> Active --toggle--> Canceling --(cancels done)--> Idle
//	Active/Activating --fatal--> Error --toggle(ack)--> Canceling
type Status string

const (
	StatusIdle       Status = "IDLE"
	StatusActivating Status = "ACTIVATING"
	StatusActive     Status = "ACTIVE"
	StatusCanceling  Status = "CANCELING"
	StatusError      Status = "ERROR"
)

// Equity is the per-symbol record: immutable config plus live order and
// position state. The engine's registry is the only writer; everything
// handed outside goes through Clone.
type Equity struct {
	Symbol      string  `json:"symbol"`
	LevelCount  int     `json:"level_count"`
	DrawdownPct float64 `json:"drawdown_pct"`
	Active      bool    `json:"active"`

	// EntryPrice and Ladder are set once per activation cycle and only
	// recomputed on the next activation after a full deactivation.
	EntryPrice float64   `json:"entry_price,omitempty"`
	Ladder     []float64 `json:"ladder,omitempty"`

	// EntryOrderID tracks the initial market order until it resolves.
	EntryOrderID string `json:"entry_order_id,omitempty"`

	// OpenOrders maps 1-based ladder level index → live order ID.
	// At most one live entry per index.
	OpenOrders map[int]string `json:"open_orders,omitempty"`

	// AppliedOrders records order IDs whose fill has already been applied
	// to Position, so replayed Filled observations are no-ops.
	AppliedOrders map[string]bool `json:"applied_orders,omitempty"`

	Position  Position  `json:"position"`
	Status    Status    `json:"status"`
	LastError string    `json:"last_error,omitempty"`
	AddedAt   time.Time `json:"added_at"`
}

// NewEquity validates the config and returns an Idle record.
func NewEquity(symbol string, levelCount int, drawdownPct float64) (*Equity, error) {
	if err := ValidateConfig(symbol, levelCount, drawdownPct); err != nil {
		return nil, err
	}
	return &Equity{
		Symbol:      symbol,
		LevelCount:  levelCount,
		DrawdownPct: drawdownPct,
		Status:      StatusIdle,
		AddedAt:     time.Now().UTC(),
	}, nil
}

// ValidateConfig checks the add-time invariants.
func ValidateConfig(symbol string, levelCount int, drawdownPct float64) error {
	if symbol == "" {
		return fmt.Errorf("empty symbol: %w", ErrInvalidConfig)
	}
	if levelCount < 1 {
		return fmt.Errorf("level count %d: %w", levelCount, ErrInvalidConfig)
	}
	if drawdownPct <= 0 || drawdownPct >= 100 {
		return fmt.Errorf("drawdown %.2f%%: %w", drawdownPct, ErrInvalidConfig)
	}
	return nil
}

// CheckRecord validates a persisted record at load time. Failures are
// ErrCorruptState: the record may still be held Idle but must not activate.
func (e *Equity) CheckRecord() error {
	if err := ValidateConfig(e.Symbol, e.LevelCount, e.DrawdownPct); err != nil {
		return fmt.Errorf("%s: %v: %w", e.Symbol, err, ErrCorruptState)
	}
	if len(e.Ladder) > 0 {
		if len(e.Ladder) != e.LevelCount {
			return fmt.Errorf("%s: ladder has %d levels, want %d: %w",
				e.Symbol, len(e.Ladder), e.LevelCount, ErrCorruptState)
		}
		for i := 1; i < len(e.Ladder); i++ {
			if e.Ladder[i] >= e.Ladder[i-1] {
				return fmt.Errorf("%s: ladder not strictly decreasing at level %d: %w",
					e.Symbol, i+1, ErrCorruptState)
			}
		}
	}
	return nil
}

// HasOpenOrders reports whether any non-terminal order is still recorded,
// the entry order included.
func (e *Equity) HasOpenOrders() bool {
	return len(e.OpenOrders) > 0 || e.EntryOrderID != ""
}

// ArmLevel records orderID as the live order for a level. Callers check the
// slot first; at most one live order may exist per index.
func (e *Equity) ArmLevel(level int, orderID string) {
	if e.OpenOrders == nil {
		e.OpenOrders = make(map[int]string)
	}
	e.OpenOrders[level] = orderID
}

// ClearLevel empties a level's order slot. Levels are never re-armed:
// each fires at most once per activation cycle.
func (e *Equity) ClearLevel(level int) { delete(e.OpenOrders, level) }

// ApplyFill folds a fill into Position using weighted-average cost.
// Idempotent per order ID: the second and later applications of the same
// order are no-ops. Returns whether the position changed.
func (e *Equity) ApplyFill(orderID string, qty, price float64) bool {
	if qty <= 0 || e.AppliedOrders[orderID] {
		return false
	}
	if e.AppliedOrders == nil {
		e.AppliedOrders = make(map[string]bool)
	}
	total := e.Position.Quantity + qty
	e.Position.AvgCost = (e.Position.Quantity*e.Position.AvgCost + qty*price) / total
	e.Position.Quantity = total
	e.AppliedOrders[orderID] = true
	return true
}

// ResetCycle clears the activation-scoped state after a full deactivation.
// EntryPrice and the ladder are recomputed on the next activation.
func (e *Equity) ResetCycle() {
	e.EntryPrice = 0
	e.Ladder = nil
	e.EntryOrderID = ""
	e.OpenOrders = nil
	e.AppliedOrders = nil
	e.Status = StatusIdle
	e.LastError = ""
}

// Clone returns a deep copy safe to hand to readers outside the registry.
func (e *Equity) Clone() Equity {
	out := *e
	if e.Ladder != nil {
		out.Ladder = append([]float64(nil), e.Ladder...)
	}
	if e.OpenOrders != nil {
		out.OpenOrders = make(map[int]string, len(e.OpenOrders))
		for k, v := range e.OpenOrders {
			out.OpenOrders[k] = v
		}
	}
	if e.AppliedOrders != nil {
		out.AppliedOrders = make(map[string]bool, len(e.AppliedOrders))
		for k, v := range e.AppliedOrders {
			out.AppliedOrders[k] = v
		}
	}
	return out
}
