package ticketing

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/thaiesports/ticketbot/pkg/logging"
)

// CounterStore persists the per-category counters. Failures are tolerated;
// the in-memory counters stay authoritative for the running process.
type CounterStore interface {
	// LoadCounters returns the persisted counters, or an empty map when none
	// have been stored yet.
	LoadCounters(ctx context.Context) (map[string]int, error)

	// SaveCounters stores the full counter mapping.
	SaveCounters(ctx context.Context, counters map[string]int) error
}

// CategoryStats is the allocator's view of one category's counter.
type CategoryStats struct {
	// Issued is how many numbers have been handed out for the category.
	Issued int `json:"issued"`

	// Current is the last number issued (or the base if none yet).
	Current int `json:"current"`

	// Next is the number the next ticket will receive.
	Next int `json:"next"`
}

// Allocator issues unique, category-namespaced sequential ticket numbers.
// Category ordinal k issues k*1000+1, k*1000+2, ... Numbers are never reused,
// even after a ticket closes; only Reset rewinds them.
type Allocator struct {
	mu         sync.Mutex
	l          *slog.Logger
	categories *CategorySet
	store      CounterStore
	counters   map[string]int
}

// NewAllocator builds an allocator for the category set, seeding counters from
// the store. Absent counters initialise to their category base and the initial
// state is persisted.
func NewAllocator(ctx context.Context, l *slog.Logger, categories *CategorySet, store CounterStore) (*Allocator, error) {
	a := &Allocator{
		l:          l.With(slog.String("component", "allocator")),
		categories: categories,
		store:      store,
		counters:   make(map[string]int),
	}

	persisted, err := store.LoadCounters(ctx)
	if err != nil {
		return nil, fmt.Errorf("error loading ticket counters: %w", err)
	}

	seeded := false
	for _, c := range categories.All() {
		if v, ok := persisted[c.Key]; ok && v >= c.Base() {
			a.counters[c.Key] = v
			continue
		}
		a.counters[c.Key] = c.Base()
		seeded = true
	}

	if seeded {
		if err := store.SaveCounters(ctx, a.snapshot()); err != nil {
			// Not fatal; the process carries on with in-memory counters.
			a.l.Warn("Error persisting initial ticket counters", slog.String(logging.KeyError, err.Error()))
		}
	}

	a.l.Info("Ticket counters loaded", slog.Int("categories", len(a.counters)))
	return a, nil
}

// NextNumber atomically increments and returns the counter for the category.
// The updated value is persisted before returning; persistence failure is
// logged and does not block ticket creation.
func (a *Allocator) NextNumber(ctx context.Context, category string) (int, error) {
	c, err := a.categories.Get(category)
	if err != nil {
		return 0, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	cur, ok := a.counters[category]
	if !ok {
		cur = c.Base()
	}

	next := cur + 1
	a.counters[category] = next

	if err := a.store.SaveCounters(ctx, a.snapshot()); err != nil {
		a.l.Warn("Error persisting ticket counters",
			slog.String(logging.KeyCategory, category),
			slog.String(logging.KeyError, err.Error()),
		)
	}

	return next, nil
}

// Stats returns the per-category counter view.
func (a *Allocator) Stats() map[string]CategoryStats {
	a.mu.Lock()
	defer a.mu.Unlock()

	stats := make(map[string]CategoryStats, len(a.counters))
	for _, c := range a.categories.All() {
		cur := a.counters[c.Key]
		stats[c.Key] = CategoryStats{
			Issued:  cur - c.Base(),
			Current: cur,
			Next:    cur + 1,
		}
	}
	return stats
}

// Reset rewinds every category counter to its base and persists the result.
// Privilege checks are the caller's responsibility.
func (a *Allocator) Reset(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, c := range a.categories.All() {
		a.counters[c.Key] = c.Base()
	}

	if err := a.store.SaveCounters(ctx, a.snapshot()); err != nil {
		a.l.Warn("Error persisting reset ticket counters", slog.String(logging.KeyError, err.Error()))
	}

	a.l.Info("Ticket counters reset")
	return nil
}

// snapshot copies the counters for handing to the store. Callers must hold mu.
func (a *Allocator) snapshot() map[string]int {
	out := make(map[string]int, len(a.counters))
	for k, v := range a.counters {
		out[k] = v
	}
	return out
}
