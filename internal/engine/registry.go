package engine

// registry.go — the shared symbol → Equity map and its control surface.
//
// One mutex serializes the user-facing operations (Add/Toggle/Remove) against
// the reconciliation loop, which holds the lock for a whole tick: a toggle
// landing mid-tick takes effect at the start of the next tick and can never
// interrupt an in-flight submission. Readers only ever see deep copies.

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/alejandrodnm/dcabot/internal/domain"
	"github.com/alejandrodnm/dcabot/internal/ports"
)

// Registry owns the per-symbol equity records and persists every mutation
// through the injected store.
type Registry struct {
	mu       sync.Mutex
	equities map[string]*domain.Equity
	store    ports.RegistryStore
}

// NewRegistry creates an empty registry backed by store (store may be nil
// for tests; mutations then live only in memory).
func NewRegistry(store ports.RegistryStore) *Registry {
	return &Registry{
		equities: make(map[string]*domain.Equity),
		store:    store,
	}
}

// Load replaces the in-memory state with the persisted records. Corrupt
// records arrive forced Idle from the store; the error reports them but the
// rest of the registry is usable.
func (r *Registry) Load(ctx context.Context) error {
	if r.store == nil {
		return nil
	}
	equities, err := r.store.Load(ctx)

	r.mu.Lock()
	r.equities = make(map[string]*domain.Equity, len(equities))
	for i := range equities {
		e := equities[i]
		r.equities[e.Symbol] = &e
	}
	r.mu.Unlock()

	if err != nil {
		return fmt.Errorf("registry.Load: %w", err)
	}
	return nil
}

// Add validates the config and creates an Idle equity.
func (r *Registry) Add(ctx context.Context, symbol string, levelCount int, drawdownPct float64) (domain.Equity, error) {
	eq, err := domain.NewEquity(symbol, levelCount, drawdownPct)
	if err != nil {
		return domain.Equity{}, fmt.Errorf("registry.Add %s: %w", symbol, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.equities[symbol]; ok {
		return domain.Equity{}, fmt.Errorf("registry.Add %s: %w", symbol, domain.ErrAlreadyExists)
	}
	r.equities[symbol] = eq
	r.persistLocked(ctx)
	return eq.Clone(), nil
}

// Toggle flips the desired state of an equity and returns its new status.
//
//	Idle            → Activating (refused for corrupt configs)
//	Activating/Active → Canceling
//	Error           → Canceling (operator acknowledgement)
//	Canceling       → Activating
//
// The loop carries out the transition on its next tick.
func (r *Registry) Toggle(ctx context.Context, symbol string) (domain.Status, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	eq, ok := r.equities[symbol]
	if !ok {
		return "", fmt.Errorf("registry.Toggle %s: %w", symbol, domain.ErrNotFound)
	}

	if eq.Active || eq.Status == domain.StatusError {
		eq.Active = false
		eq.Status = domain.StatusCanceling
	} else {
		if err := eq.CheckRecord(); err != nil {
			return eq.Status, fmt.Errorf("registry.Toggle: %w", err)
		}
		eq.Active = true
		eq.Status = domain.StatusActivating
		eq.LastError = ""
	}
	r.persistLocked(ctx)
	return eq.Status, nil
}

// Remove destroys an equity record. Refused while the equity is active or
// still has non-terminal orders recorded: deactivate and let the loop
// confirm the cancels first.
func (r *Registry) Remove(ctx context.Context, symbol string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	eq, ok := r.equities[symbol]
	if !ok {
		return fmt.Errorf("registry.Remove %s: %w", symbol, domain.ErrNotFound)
	}
	if eq.Active || eq.HasOpenOrders() {
		return fmt.Errorf("registry.Remove %s: %w", symbol, domain.ErrHasOpenOrders)
	}
	delete(r.equities, symbol)
	r.persistLocked(ctx)
	return nil
}

// Snapshot returns deep copies of every record, ordered by symbol.
func (r *Registry) Snapshot() []domain.Equity {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

func (r *Registry) snapshotLocked() []domain.Equity {
	out := make([]domain.Equity, 0, len(r.equities))
	for _, eq := range r.equities {
		out = append(out, eq.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// symbolsLocked returns the symbols in deterministic order.
func (r *Registry) symbolsLocked() []string {
	syms := make([]string, 0, len(r.equities))
	for s := range r.equities {
		syms = append(syms, s)
	}
	sort.Strings(syms)
	return syms
}

// persistLocked rewrites the full registry. A save failure is logged and
// retried on the next mutation; it never takes the caller down.
func (r *Registry) persistLocked(ctx context.Context) {
	if r.store == nil {
		return
	}
	if err := r.store.Save(ctx, r.snapshotLocked()); err != nil {
		slog.Warn("registry: persist failed, will retry on next mutation", "err", err)
	}
}
