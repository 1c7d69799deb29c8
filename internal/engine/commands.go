package engine

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/rotex-can-core/internal/canbus"
	"github.com/nerrad567/rotex-can-core/internal/catalog"
	"github.com/nerrad567/rotex-can-core/internal/entity"
	"github.com/nerrad567/rotex-can-core/internal/flags"
	"github.com/nerrad567/rotex-can-core/internal/registry"
)

// Stats summarises the loop state for health reporting.
type Stats struct {
	Entities     int       `json:"entities"`
	Due          int       `json:"due"`
	InFlight     string    `json:"in_flight,omitempty"`
	LastFrame    time.Time `json:"last_frame"`
	PendingTasks int       `json:"pending_tasks"`
	Optimized    bool      `json:"optimized_defrosting"`
	RestoreMode  string    `json:"restore_mode"`
}

// do runs fn on the loop goroutine and waits for its result.
func (e *Engine) do(ctx context.Context, name string, fn func(ctx context.Context, now time.Time) error) error {
	id := uuid.NewString()
	e.logger.Debug("command queued", "command", name, "command_id", id)

	cmd := command{fn: fn, reply: make(chan error, 1)}
	select {
	case e.commands <- cmd:
	case <-e.done:
		return ErrNotRunning
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-cmd.reply:
		if err != nil {
			e.logger.Debug("command failed", "command", name, "command_id", id, "error", err)
		}
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SetValue writes v to the entity with the given name or id. Local entities
// (optimized_defrosting, supply_setpoint_regulated) are updated in place and
// persisted.
//
// Returns:
//   - error: registry.ErrEntityNotFound, entity.ErrNotWritable,
//     ErrInvalidValue, or a transport error
func (e *Engine) SetValue(ctx context.Context, name string, v entity.Value) error {
	return e.do(ctx, "set_value", func(ctx context.Context, now time.Time) error {
		return e.setValue(ctx, name, v, now)
	})
}

// SendCustom parses up to seven hex byte tokens and sends them verbatim on
// the request identifier. Malformed input is logged and not transmitted.
func (e *Engine) SendCustom(ctx context.Context, text string) error {
	return e.do(ctx, "custom", func(ctx context.Context, _ time.Time) error {
		return e.sendCustom(ctx, text)
	})
}

// RunDHW raises the first hot water target to the boost temperature and
// restores the previous target after the restore delay. A second call while
// a restore is pending replaces the pending restore but keeps the original
// target.
func (e *Engine) RunDHW(ctx context.Context) error {
	return e.do(ctx, "dhw_run", e.runDHW)
}

// Snapshot returns the current value of every entity in registration order.
func (e *Engine) Snapshot(ctx context.Context) ([]Update, error) {
	var out []Update
	err := e.do(ctx, "snapshot", func(context.Context, time.Time) error {
		out = e.snapshot()
		return nil
	})
	return out, err
}

// Dump logs every entity with its typed value and returns the snapshot.
func (e *Engine) Dump(ctx context.Context) ([]Update, error) {
	var out []Update
	err := e.do(ctx, "dump", func(context.Context, time.Time) error {
		out = e.snapshot()
		e.logger.Info("entity dump", "entities", len(out))
		for _, u := range out {
			e.logger.Info("entity",
				"id", u.ID, "kind", string(u.Kind), "type", u.Value.Type().String(), "value", u.Value.String(), "text", u.Text)
		}
		return nil
	})
	return out, err
}

// Stats returns loop statistics.
func (e *Engine) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := e.do(ctx, "stats", func(_ context.Context, now time.Time) error {
		st = Stats{
			Entities:     e.reg.Len(),
			Due:          e.reg.DueCount(now),
			LastFrame:    e.reg.LastHandled(),
			PendingTasks: e.queue.Len(),
			Optimized:    e.coord.Optimized(),
			RestoreMode:  e.coord.Restore(),
		}
		if ent, busy := e.reg.InFlight(); busy {
			st.InFlight = ent.ID()
		}
		return nil
	})
	return st, err
}

func (e *Engine) snapshot() []Update {
	ents := e.reg.Entities()
	out := make([]Update, 0, len(ents))
	for _, ent := range ents {
		u := e.update(ent, ent.Value(), ent.LastChange())
		if ent.ID() == catalog.ErrorCode {
			u.Text = e.annotatedText(u)
		}
		out = append(out, u)
	}
	return out
}

// annotatedText re-renders the last published error code text without
// observing the debouncers again.
func (e *Engine) annotatedText(u Update) string {
	if e.lastErrorText != "" {
		return e.lastErrorText
	}
	return u.Text
}

func (e *Engine) setValue(ctx context.Context, name string, v entity.Value, now time.Time) error {
	ent, ok := e.reg.ByName(name)
	if !ok {
		e.logger.Warn("set value for unknown entity", "name", name)
		return fmt.Errorf("%w: %s", registry.ErrEntityNotFound, name)
	}
	v = normalize(ent, v)

	switch ent.ID() {
	case catalog.OptimizedDefrosting:
		opt, _ := v.Text()
		if opt != catalog.OptionOn && opt != catalog.OptionOff {
			return fmt.Errorf("%w: %s expects on or off, got %s", ErrInvalidValue, ent.ID(), v)
		}
		if err := e.coord.SetOptimized(ctx, opt == catalog.OptionOn); err != nil {
			return fmt.Errorf("persisting %s: %w", ent.ID(), err)
		}
		ent.Publish(v, now)
		return nil

	case catalog.SupplySetpointRegulated:
		f, err := checkRange(ent, v)
		if err != nil {
			return err
		}
		ent.Publish(entity.Float(f), now)
		if err := e.flags.Set(ctx, flags.KeySupplySetpointRegulated, int(math.Round(f*10))); err != nil {
			e.logger.Warn("persisting regulated setpoint failed", "error", err)
		}
		return nil
	}

	if !ent.HasCommand() {
		e.logger.Warn("set value for read-only entity", "entity", ent.ID())
		return fmt.Errorf("%w: %s", entity.ErrNotWritable, ent.ID())
	}
	if _, isNumber := ent.Variant().(entity.Number); isNumber {
		if _, err := checkRange(ent, v); err != nil {
			return err
		}
	}
	return e.dispatch(ctx, ent.ID(), v)
}

// normalize maps booleans onto on/off selects.
func normalize(ent *entity.Entity, v entity.Value) entity.Value {
	if v.Type() != entity.TypeBool {
		return v
	}
	b, _ := v.Bool()
	sel, isSelect := ent.Variant().(entity.Select)
	if !isSelect {
		return v
	}
	if _, hasOn := sel.Options.Key(catalog.OptionOn); !hasOn {
		return v
	}
	return onOff(b)
}

// checkRange validates a numeric value against the entity's limits.
func checkRange(ent *entity.Entity, v entity.Value) (float64, error) {
	f, ok := v.Float()
	if !ok || v.Type() == entity.TypeBool {
		return 0, fmt.Errorf("%w: %s expects a number, got %s", ErrInvalidValue, ent.ID(), v.Type())
	}
	n, ok := ent.Variant().(entity.Number)
	if ok && (f < n.Min || f > n.Max) {
		return 0, fmt.Errorf("%w: %s %g outside [%g, %g]", ErrInvalidValue, ent.ID(), f, n.Min, n.Max)
	}
	return f, nil
}

func (e *Engine) sendCustom(ctx context.Context, text string) error {
	data, err := entity.ParseHexBytes(strings.TrimSpace(text))
	if err != nil {
		e.logger.Warn("custom request rejected", "input", text, "error", err)
		return err
	}
	// Short input is zero padded to a full command.
	var cmd entity.Command
	copy(cmd[:], data)
	f, err := canbus.NewFrame(catalog.RequestID, cmd[:])
	if err != nil {
		e.logger.Warn("custom request rejected", "input", text, "error", err)
		return err
	}
	if err := e.bus.Send(ctx, f); err != nil {
		return fmt.Errorf("sending custom request: %w", err)
	}
	e.metrics.CustomSent()
	e.logger.Info("custom request sent", "data", cmd.String())
	return nil
}

func (e *Engine) runDHW(ctx context.Context, now time.Time) error {
	ent, ok := e.reg.Get(catalog.TargetHotWater1)
	if !ok {
		e.logger.Warn("dhw run needs entity", "entity", catalog.TargetHotWater1)
		return fmt.Errorf("%w: %s", registry.ErrEntityNotFound, catalog.TargetHotWater1)
	}

	restore := e.dhwRestore
	if _, pending := e.queue.Pending(dhwRestoreKey); !pending {
		cur, ok := ent.Value().Float()
		if !ok || cur <= 0 {
			e.logger.Warn("dhw run needs current target", "entity", ent.ID())
			return fmt.Errorf("%w: %s not read yet", ErrPrecondition, ent.ID())
		}
		restore = cur
	}

	if err := e.dispatch(ctx, ent.ID(), entity.Float(e.cfg.DHWBoostTemperature)); err != nil {
		return err
	}
	e.dhwRestore = restore
	e.queue.Schedule(dhwRestoreKey, now, e.cfg.DHWRestoreDelay, func(time.Time) {
		e.logger.Info("dhw run restoring target", "value", restore)
		if err := e.dispatch(ctx, catalog.TargetHotWater1, entity.Float(restore)); err != nil {
			e.logger.Warn("dhw restore failed", "error", err)
		}
	})
	e.logger.Info("dhw run", "boost", e.cfg.DHWBoostTemperature, "restore", restore, "delay", e.cfg.DHWRestoreDelay)
	return nil
}
