package ports

import (
	"context"

	"github.com/alejandrodnm/dcabot/internal/domain"
)

// Notifier renders the registry state after each reconciliation tick.
type Notifier interface {
	Notify(ctx context.Context, equities []domain.Equity, sum domain.TickSummary) error
}

// Assistant answers free-text questions about a portfolio snapshot.
// No structured contract: input and output are plain text.
type Assistant interface {
	Ask(ctx context.Context, portfolio []domain.PortfolioEntry, fills []domain.Fill, question string) (string, error)
}
