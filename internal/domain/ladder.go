package domain

import (
	"fmt"
	"math"
)

// ComputeLadder computes the descending buy-level prices for one activation:
//
//	ladder[i] = entryPrice * (1 - (i+1)*drawdownPct/100)
//
// rounded to cents. Linear spacing: entry 100, drawdown 5%, 5 levels →
// 95, 90, 85, 80, 75. Pure and deterministic.
//
// Returns ErrInvalidConfig for non-positive entryPrice, drawdownPct outside
// (0, 100), levelCount < 1, or when any level would land at or below zero
// or the cent rounding would collapse two adjacent levels.
func ComputeLadder(entryPrice, drawdownPct float64, levelCount int) ([]float64, error) {
	if entryPrice <= 0 {
		return nil, fmt.Errorf("entry price %.2f: %w", entryPrice, ErrInvalidConfig)
	}
	if drawdownPct <= 0 || drawdownPct >= 100 {
		return nil, fmt.Errorf("drawdown %.2f%%: %w", drawdownPct, ErrInvalidConfig)
	}
	if levelCount < 1 {
		return nil, fmt.Errorf("level count %d: %w", levelCount, ErrInvalidConfig)
	}

	ladder := make([]float64, levelCount)
	for i := range ladder {
		price := round2(entryPrice * (1 - float64(i+1)*drawdownPct/100))
		if price <= 0 {
			return nil, fmt.Errorf("level %d price %.2f not positive: %w",
				i+1, price, ErrInvalidConfig)
		}
		if i > 0 && price >= ladder[i-1] {
			return nil, fmt.Errorf("level %d price %.2f not below level %d: %w",
				i+1, price, i, ErrInvalidConfig)
		}
		ladder[i] = price
	}
	return ladder, nil
}

// round2 rounds to cents, the broker's price granularity.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
