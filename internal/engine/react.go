package engine

import (
	"context"
	"strings"
	"time"

	"github.com/nerrad567/rotex-can-core/internal/catalog"
	"github.com/nerrad567/rotex-can-core/internal/entity"
)

// onUpdate is the post-update notification of every entity. It only queues
// the change; flush does the work once the routing call has returned.
func (e *Engine) onUpdate(ent *entity.Entity, current, previous entity.Value) {
	e.changes = append(e.changes, change{ent: ent, current: current, previous: previous})
}

// flush processes queued changes, including those raised while processing.
func (e *Engine) flush(ctx context.Context) {
	for len(e.changes) > 0 {
		c := e.changes[0]
		e.changes = e.changes[1:]
		e.react(ctx, c)
	}
	e.changes = e.changes[:0]
}

func (e *Engine) react(ctx context.Context, c change) {
	now := c.ent.LastResponse()
	id := c.ent.ID()
	changed := !c.current.Equal(c.previous)

	e.graph.Notify(c.ent, now)

	u := e.update(c.ent, c.current, now)

	switch id {
	case catalog.ErrorCode:
		e.annotate(ctx, &u, now)

	case catalog.ModeOfOperating:
		if changed {
			e.annotator.ResetSpread()
		}
		current, _ := c.current.Text()
		previous, _ := c.previous.Text()
		e.queue.Later(now, func(time.Time) {
			e.coord.OnStateChange(ctx, current, previous)
		})

	case catalog.OperatingMode:
		current, _ := c.current.Text()
		previous, _ := c.previous.Text()
		e.queue.Later(now, func(time.Time) {
			e.coord.OnModeChange(ctx, current, previous)
		})

	case catalog.StatusCompressor:
		if changed {
			e.annotator.ResetSpread()
		}

	case catalog.TemperatureAntifreeze:
		option, _ := c.current.Text()
		cleared, err := e.coord.OnAntifreezeChange(ctx, option)
		if err != nil {
			e.logger.Warn("persisting optimized defrosting failed", "error", err)
		}
		if cleared {
			if od, ok := e.reg.Get(catalog.OptimizedDefrosting); ok {
				od.Publish(onOff(false), now)
			}
		}

	case catalog.TargetHotWater1:
		if h, pending := e.queue.Pending(dhwRestoreKey); pending {
			e.logger.Info("dhw restore accelerated")
			h.Accelerate(now)
		}
	}

	e.metrics.ObserveValue(id, c.current)
	e.pub.PublishValue(ctx, u)
}

// annotate appends confirmed faults to the error code update and reports
// new confirmations.
func (e *Engine) annotate(ctx context.Context, u *Update, now time.Time) {
	base, ok := u.Value.Text()
	if !ok {
		return
	}
	ann := e.annotator.Annotate(base, now)
	u.Text = e.translate(base) + strings.TrimPrefix(ann.Text, base)
	u.Faults = ann.Active
	e.lastErrorText = u.Text
	for _, f := range ann.Confirmed {
		e.metrics.FaultConfirmed(f)
		e.pub.PublishFault(ctx, FaultEvent{Fault: f, ErrorCode: base, Timestamp: now})
	}
}

// update builds the published form of a value of ent.
func (e *Engine) update(ent *entity.Entity, v entity.Value, now time.Time) Update {
	u := Update{
		ID:        ent.ID(),
		Name:      ent.Name(),
		Kind:      ent.Kind(),
		Value:     v,
		Unit:      unitOf(ent),
		Timestamp: now,
	}
	if s, ok := v.Text(); ok {
		u.Text = e.translate(s)
	} else {
		u.Text = v.String()
	}
	return u
}

func (e *Engine) translate(token string) string {
	if e.translator == nil {
		return token
	}
	return e.translator.Translate(token)
}

func unitOf(ent *entity.Entity) string {
	switch v := ent.Variant().(type) {
	case entity.Sensor:
		return v.Unit
	case entity.Number:
		return v.Unit
	}
	return ""
}
