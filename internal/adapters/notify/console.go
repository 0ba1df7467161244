package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/alejandrodnm/dcabot/internal/domain"
	"github.com/alejandrodnm/dcabot/internal/ports"
)

// Console implements ports.Notifier, replacing the original desktop table
// with a terminal one.
type Console struct {
	out   io.Writer
	table bool
}

var _ ports.Notifier = (*Console)(nil)

// NewConsole creates a notifier writing to stdout. With table=false only a
// compact one-line summary is printed per tick.
func NewConsole(table bool) *Console {
	return &Console{out: os.Stdout, table: table}
}

// NewConsoleWriter creates a notifier for tests.
func NewConsoleWriter(w io.Writer, table bool) *Console {
	return &Console{out: w, table: table}
}

// Notify renders the registry state after a tick.
func (c *Console) Notify(_ context.Context, equities []domain.Equity, sum domain.TickSummary) error {
	if c.table {
		c.printTable(equities, sum)
		return nil
	}
	c.printCompact(equities, sum)
	return nil
}

// printCompact prints the essentials in one line.
func (c *Console) printCompact(equities []domain.Equity, sum domain.TickSummary) {
	now := time.Now().Format("15:04:05")

	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %d equities (%d active)", now, len(equities), sum.ActiveCount)
	if sum.OrdersPlaced+sum.FillsApplied+sum.OrdersCancel > 0 {
		fmt.Fprintf(&sb, " | orders:%d fills:%d cancels:%d",
			sum.OrdersPlaced, sum.FillsApplied, sum.OrdersCancel)
	}
	for _, eq := range equities {
		if !eq.Active && eq.Position.Quantity == 0 {
			continue
		}
		fmt.Fprintf(&sb, " | %s %s", eq.Symbol, eq.Status)
		if eq.Position.Quantity > 0 {
			fmt.Fprintf(&sb, " %.0f@%.2f", eq.Position.Quantity, eq.Position.AvgCost)
		}
	}
	fmt.Fprintln(c.out, sb.String())
}

// printTable prints the full equity table.
func (c *Console) printTable(equities []domain.Equity, sum domain.TickSummary) {
	now := time.Now().Format("15:04:05")
	fmt.Fprintf(c.out, "\n[%s] %d equities — active:%d orders:%d fills:%d errors:%d\n",
		now, len(equities), sum.ActiveCount, sum.OrdersPlaced, sum.FillsApplied, sum.EquitiesError)

	table := tablewriter.NewWriter(c.out)
	table.Header("Symbol", "Status", "Qty", "Avg Cost", "Entry", "Armed", "Last Error")

	for _, eq := range equities {
		entry := "-"
		if eq.EntryPrice > 0 {
			entry = fmt.Sprintf("%.2f", eq.EntryPrice)
		}
		table.Append(
			eq.Symbol,
			string(eq.Status),
			fmt.Sprintf("%.0f", eq.Position.Quantity),
			fmt.Sprintf("%.2f", eq.Position.AvgCost),
			entry,
			armedLevels(eq),
			truncate(eq.LastError, 40),
		)
	}
	table.Render()
}

// armedLevels renders the armed level indices, entry order included as "E".
func armedLevels(eq domain.Equity) string {
	if !eq.HasOpenOrders() {
		return "-"
	}
	levels := make([]int, 0, len(eq.OpenOrders))
	for level := range eq.OpenOrders {
		levels = append(levels, level)
	}
	sort.Ints(levels)

	var parts []string
	if eq.EntryOrderID != "" {
		parts = append(parts, "E")
	}
	for _, level := range levels {
		parts = append(parts, fmt.Sprintf("%d", level))
	}
	return strings.Join(parts, ",")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
