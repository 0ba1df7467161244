package domain

import "time"

// PortfolioEntry is one line of the read-only snapshot handed to the
// console table and the assistant.
type PortfolioEntry struct {
	Symbol    string
	Quantity  float64
	AvgCost   float64
	LastPrice float64
}

// UnrealizedPL is the mark-to-market P&L against average cost.
func (p PortfolioEntry) UnrealizedPL() float64 {
	return (p.LastPrice - p.AvgCost) * p.Quantity
}

// Fill is one recorded fill event, as stored in the history log.
type Fill struct {
	OrderID  string
	Symbol   string
	Level    int // EntryLevel for the initial market order
	Qty      float64
	Price    float64
	FilledAt time.Time
}

// TickSummary is the per-cycle row written to the history log.
type TickSummary struct {
	At            time.Time
	ActiveCount   int
	OrdersPlaced  int
	FillsApplied  int
	OrdersCancel  int
	EquitiesError int
	Duration      time.Duration
}
