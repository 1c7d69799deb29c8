package derived

import (
	"fmt"
	"time"

	"github.com/nerrad567/rotex-can-core/internal/deferred"
	"github.com/nerrad567/rotex-can-core/internal/entity"
)

// Logger defines the logging interface used by this package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Store gives read access to current entity values. *registry.Registry
// satisfies it.
type Store interface {
	Get(id string) (*entity.Entity, bool)
	Float(id string) (float64, bool)
	Text(id string) (string, bool)
	Bool(id string) (bool, bool)
}

// Formula computes one derived entity.
type Formula struct {
	ID      string
	Compute func(in *Inputs) entity.Value
}

// Graph schedules and runs formulas.
type Graph struct {
	store    Store
	queue    *deferred.Queue
	logger   Logger
	formulas map[string]Formula
}

// NewGraph creates a graph that reads from store and defers work onto queue.
func NewGraph(store Store, queue *deferred.Queue, logger Logger) *Graph {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Graph{
		store:    store,
		queue:    queue,
		logger:   logger,
		formulas: make(map[string]Formula),
	}
}

// Register adds formulas to the graph.
func (g *Graph) Register(formulas ...Formula) error {
	for _, f := range formulas {
		if _, exists := g.formulas[f.ID]; exists {
			return fmt.Errorf("%w: %s", ErrDuplicateFormula, f.ID)
		}
		g.formulas[f.ID] = f
	}
	return nil
}

// Has reports whether id is computed by the graph.
func (g *Graph) Has(id string) bool {
	_, ok := g.formulas[id]
	return ok
}

// Notify queues a recompute of every dependent of e. It returns the number
// of dependents scheduled or accelerated.
func (g *Graph) Notify(e *entity.Entity, now time.Time) int {
	n := 0
	for _, id := range e.Definition().Updates {
		if !g.Has(id) {
			g.logger.Debug("no formula for dependent", "entity", e.ID(), "dependent", id)
			continue
		}
		key := "derive:" + id
		if h, pending := g.queue.Pending(key); pending {
			h.Accelerate(now)
		} else {
			target := id
			g.queue.Schedule(key, now, 0, func(at time.Time) { g.Recompute(target, at) })
		}
		n++
	}
	return n
}

// Recompute evaluates the formula for id and publishes the result on the
// derived entity. It reports whether a value was published.
func (g *Graph) Recompute(id string, now time.Time) bool {
	f, ok := g.formulas[id]
	if !ok {
		return false
	}
	target, ok := g.store.Get(id)
	if !ok {
		g.logger.Debug("derived entity not registered", "entity", id)
		return false
	}

	in := &Inputs{store: g.store}
	v := f.Compute(in)
	if missing := in.Missing(); len(missing) > 0 {
		g.logger.Debug("derived value skipped", "entity", id, "missing", missing)
		return false
	}
	if !v.Valid() {
		return false
	}
	target.Publish(v, now)
	return true
}

// Inputs reads formula inputs and records which ones were absent.
type Inputs struct {
	store   Store
	missing []string
}

// Float returns the numeric value of id, or 0 if absent.
func (in *Inputs) Float(id string) float64 {
	v, ok := in.store.Float(id)
	if !ok {
		in.missing = append(in.missing, id)
	}
	return v
}

// Missing returns the ids that were read but absent.
func (in *Inputs) Missing() []string {
	return in.missing
}
